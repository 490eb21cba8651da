package service

import (
	"context"

	"imageAttach/internal/storage"
	"imageAttach/internal/variants"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// ErrOriginalMissing means the original blob is gone, so nothing can be rendered.
var ErrOriginalMissing = errors.New("original image missing")

type VariantService interface {
	Generate(ctx context.Context, key string) ([]string, error)
}

type variantService struct {
	storage storage.Storage
	group   singleflight.Group
}

func NewVariantService(store storage.Storage) VariantService {
	return &variantService{storage: store}
}

// Generate renders and stores the variants of key that do not exist yet
// and returns their names. Concurrent calls for one key share a single run.
func (v *variantService) Generate(ctx context.Context, key string) ([]string, error) {
	res, err, _ := v.group.Do(key, func() (any, error) {
		return v.generate(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

func (v *variantService) generate(ctx context.Context, key string) ([]string, error) {
	var missing []variants.Spec
	for _, spec := range variants.Specs {
		exists, err := v.storage.Exists(ctx, storage.VariantKey(key, spec.Name))
		if err != nil || !exists {
			missing = append(missing, spec)
		}
	}
	if len(missing) == 0 {
		return []string{}, nil
	}

	data, err := v.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, errors.Wrap(ErrOriginalMissing, key)
		}
		return nil, err
	}

	img, err := variants.Decode(data)
	if err != nil {
		return nil, err
	}

	created := make([]string, 0, len(missing))
	for _, spec := range missing {
		encoded, err := variants.Render(img, spec)
		if err != nil {
			return created, err
		}
		if _, err := v.storage.Put(ctx, storage.VariantKey(key, spec.Name), encoded, "image/webp"); err != nil {
			return created, errors.Wrapf(err, "store %s variant", spec.Name)
		}
		created = append(created, spec.Name)
	}
	return created, nil
}
