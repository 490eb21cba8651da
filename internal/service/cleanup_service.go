package service

import (
	"context"
	"time"

	"imageAttach/internal/logger"
	"imageAttach/internal/repository"
	"imageAttach/internal/storage"

	"go.uber.org/zap"
)

type CleanupService interface {
	CleanupOrphans(ctx context.Context, minAge time.Duration, limit int) (int, error)
}

type cleanupService struct {
	imageRepo repository.ImageRepository
	storage   storage.Storage
	urls      URLBuilder
	now       func() time.Time
}

func NewCleanupService(imageRepo repository.ImageRepository, store storage.Storage, urls URLBuilder) CleanupService {
	return &cleanupService{imageRepo: imageRepo, storage: store, urls: urls, now: time.Now}
}

// CleanupOrphans deletes up to limit images older than minAge that are
// attached to nothing, together with their blobs. An image attached after
// the listing keeps its row and blobs.
func (c *cleanupService) CleanupOrphans(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	orphans, err := c.imageRepo.ListOrphans(ctx, c.now().Add(-minAge), limit)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, image := range orphans {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}

		ok, err := c.imageRepo.DeleteOrphan(ctx, image.ID)
		if err != nil {
			logger.Log.Warn("orphan delete failed", zap.Int64("image_id", image.ID), zap.Error(err))
			continue
		}
		if !ok {
			logger.Log.Info("image attached since listing, kept", zap.Int64("image_id", image.ID))
			continue
		}

		removeBlobs(ctx, c.storage, c.urls, image.File)
		deleted++
	}

	logger.Log.Info("orphaned images deleted", zap.Int("count", deleted))
	return deleted, nil
}
