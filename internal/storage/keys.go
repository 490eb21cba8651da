package storage

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VariantKey derives the blob key of a rendition: photo.png -> photo_thumb.webp.
func VariantKey(key, name string) string {
	base := strings.TrimSuffix(key, path.Ext(key))
	return base + "_" + name + ".webp"
}

func VariantKeys(key string, names []string) []string {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = VariantKey(key, name)
	}
	return keys
}

// UploadKey builds a collision resistant key from a prefix, the first 12
// characters of the original name, a UTC timestamp and a random suffix.
func UploadKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	base = sanitize(base)

	if r := []rune(base); len(r) > 12 {
		base = string(r[:12])
	}
	if base == "" {
		base = "file"
	}

	parts := []string{base, now.UTC().Format("20060102T150405"), randomSuffix(6)}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, "-") + ext
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func randomSuffix(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
