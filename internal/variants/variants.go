// Package variants renders the resized webp renditions served next to
// every original image.
package variants

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"imageAttach/internal/apperr"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Spec is one rendition: the image is fitted into a Size x Size box.
type Spec struct {
	Name    string
	Size    int
	Quality float32
}

// Specs is ordered from the smallest rendition to the largest.
var Specs = []Spec{
	{Name: "thumb", Size: 160, Quality: 60},
	{Name: "sm", Size: 640, Quality: 70},
	{Name: "md", Size: 1024, Quality: 80},
	{Name: "lg", Size: 2048, Quality: 85},
}

func Names() []string {
	names := make([]string, len(Specs))
	for i, s := range Specs {
		names[i] = s.Name
	}
	return names
}

// Validate checks that data carries a decodable image header.
func Validate(data []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return apperr.UnsupportedImage("Invalid file type")
	}
	return nil
}

func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.UnsupportedImage("Invalid file type")
	}
	return img, nil
}

// Render fits img into the spec's box without upscaling and encodes it as lossy webp.
func Render(img image.Image, spec Spec) ([]byte, error) {
	fitted := imaging.Fit(img, spec.Size, spec.Size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, fitted, &webp.Options{Lossless: false, Quality: spec.Quality}); err != nil {
		return nil, errors.Wrapf(err, "encode %s variant", spec.Name)
	}
	return buf.Bytes(), nil
}

// Generate renders every entry of Specs, keyed by name.
func Generate(data []byte) (map[string][]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(Specs))
	for _, spec := range Specs {
		encoded, err := Render(img, spec)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = encoded
	}
	return out, nil
}

// AvatarSpecs is the two-size set used for profile pictures.
var AvatarSpecs = []Spec{
	{Name: "small", Size: 160, Quality: 65},
	{Name: "large", Size: 600, Quality: 85},
}

// GenerateAvatar renders AvatarSpecs from data.
func GenerateAvatar(data []byte) (small, large []byte, err error) {
	img, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	if small, err = Render(img, AvatarSpecs[0]); err != nil {
		return nil, nil, err
	}
	if large, err = Render(img, AvatarSpecs[1]); err != nil {
		return nil, nil, err
	}
	return small, large, nil
}

// DetectContentType sniffs data, ignoring whatever the client declared.
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}
