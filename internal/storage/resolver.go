package storage

import (
	"context"
	"time"

	"imageAttach/internal/logger"
	"imageAttach/internal/models"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const OriginalVariant = "original"

// URLResolver builds the variants map of an image. A rendition that has
// not been generated yet points at the original.
type URLResolver struct {
	store    Storage
	names    []string
	existing *cache.Cache
}

// NewURLResolver memoizes positive existence checks for ttl. Renditions are
// immutable once written, so only misses are checked again.
func NewURLResolver(store Storage, names []string, ttl time.Duration) *URLResolver {
	return &URLResolver{
		store:    store,
		names:    names,
		existing: cache.New(ttl, 2*ttl),
	}
}

func (r *URLResolver) Variants(ctx context.Context, key string) (models.Variants, error) {
	original, err := r.store.URL(ctx, key)
	if err != nil {
		return nil, err
	}

	out := models.Variants{OriginalVariant: original}
	for _, name := range r.names {
		out[name] = original

		variantKey := VariantKey(key, name)
		if !r.exists(ctx, variantKey) {
			continue
		}

		u, err := r.store.URL(ctx, variantKey)
		if err != nil {
			logger.Log.Warn("variant url failed", zap.String("key", variantKey), zap.Error(err))
			continue
		}
		out[name] = u
	}

	return out, nil
}

// Forget drops memoized checks, used once a key's blobs are deleted.
func (r *URLResolver) Forget(key string) {
	for _, name := range r.names {
		r.existing.Delete(VariantKey(key, name))
	}
}

func (r *URLResolver) exists(ctx context.Context, key string) bool {
	if _, ok := r.existing.Get(key); ok {
		return true
	}

	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		logger.Log.Warn("variant existence check failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if ok {
		r.existing.SetDefault(key, struct{}{})
	}
	return ok
}
