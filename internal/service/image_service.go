package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"imageAttach/internal/apperr"
	"imageAttach/internal/config"
	"imageAttach/internal/logger"
	"imageAttach/internal/models"
	"imageAttach/internal/queue"
	"imageAttach/internal/repository"
	"imageAttach/internal/storage"
	"imageAttach/internal/variants"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	msgNoFiles       = "No files uploaded"
	msgTooLarge      = "File too large"
	msgInvalidType   = "Invalid file type"
	msgStoreFailed   = "Failed to store file"
	msgSaveFailed    = "Failed to save image"
	msgImageNotFound = "Image not found"
)

type ImageService interface {
	Upload(ctx context.Context, org *models.Organization, userID string, file models.UploadFile) (*models.ImageOut, error)
	BulkUpload(ctx context.Context, org *models.Organization, userID string, files []models.UploadFile) ([]models.BulkUploadResult, error)
	List(ctx context.Context, orgID int64, ordering string, page models.Page) ([]models.ImageOut, int, error)
	Get(ctx context.Context, orgID, imageID int64) (*models.ImageOut, error)
	UpdateMetadata(ctx context.Context, orgID, imageID int64, update models.ImageMetadataUpdate) (*models.ImageOut, error)
	Delete(ctx context.Context, orgID, imageID int64) error
	BulkDelete(ctx context.Context, orgID int64, ids []int64) error
}

type imageService struct {
	repo    *repository.Repository
	tx      Transactor
	storage storage.Storage
	urls    URLBuilder
	jobs    JobQueue
	upload  config.Upload
	now     func() time.Time
}

func NewImageService(repo *repository.Repository, tx Transactor, store storage.Storage, urls URLBuilder, jobs JobQueue, upload config.Upload) ImageService {
	return &imageService{
		repo:    repo,
		tx:      tx,
		storage: store,
		urls:    urls,
		jobs:    jobs,
		upload:  upload,
		now:     time.Now,
	}
}

// UploadPrefix is the key prefix for an organization's uploads.
func UploadPrefix(slug string) string {
	if len(slug) > 8 {
		slug = slug[:8]
	}
	return "img_" + slug
}

func (s *imageService) Upload(ctx context.Context, org *models.Organization, userID string, file models.UploadFile) (*models.ImageOut, error) {
	if file.Size > s.upload.MaxSize {
		return nil, apperr.Validation(fmt.Sprintf("File too large. Maximum allowed size is %s.", humanSize(s.upload.MaxSize)))
	}
	if !s.allowedType(file) {
		return nil, apperr.UnsupportedImage("Invalid file type. Only images are allowed.")
	}
	if err := variants.Validate(file.Data); err != nil {
		return nil, apperr.UnsupportedImage("Invalid file type. Only images are allowed.")
	}

	key := storage.UploadKey(UploadPrefix(org.Slug), file.Name, s.now())
	if _, err := s.storage.Put(ctx, key, file.Data, variants.DetectContentType(file.Data)); err != nil {
		return nil, errors.Wrap(err, "store upload")
	}

	image := newImage(org, userID, key, file.Name)
	if err := s.repo.Image.Create(ctx, image); err != nil {
		s.removeBlob(ctx, key)
		return nil, err
	}

	s.enqueueVariants(ctx, image)
	return s.toOut(ctx, *image)
}

// BulkUpload validates every file on its own. Invalid files become error
// results and never abort the batch; the valid ones share one transaction.
func (s *imageService) BulkUpload(ctx context.Context, org *models.Organization, userID string, files []models.UploadFile) ([]models.BulkUploadResult, error) {
	if len(files) == 0 {
		return []models.BulkUploadResult{{Status: models.BulkStatusError, Error: msgNoFiles}}, nil
	}

	results := make([]models.BulkUploadResult, len(files))
	var created []*models.Image
	var written []string

	err := s.tx.Transact(ctx, func(tx *repository.Repository) error {
		for i, file := range files {
			if msg := s.checkFile(file); msg != "" {
				results[i] = models.BulkUploadResult{File: file.Name, Status: models.BulkStatusError, Error: msg}
				continue
			}

			key := storage.UploadKey(UploadPrefix(org.Slug), file.Name, s.now())
			if _, err := s.storage.Put(ctx, key, file.Data, variants.DetectContentType(file.Data)); err != nil {
				logger.Log.Warn("bulk upload store failed", zap.String("file", file.Name), zap.Error(err))
				results[i] = models.BulkUploadResult{File: file.Name, Status: models.BulkStatusError, Error: msgStoreFailed}
				continue
			}
			written = append(written, key)

			image := newImage(org, userID, key, file.Name)
			err := tx.Savepoint(ctx, "bulk_item", func() error {
				return tx.Image.Create(ctx, image)
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Log.Warn("bulk upload insert failed", zap.String("file", file.Name), zap.Error(err))
				s.removeBlob(ctx, key)
				results[i] = models.BulkUploadResult{File: file.Name, Status: models.BulkStatusError, Error: msgSaveFailed}
				continue
			}

			id := image.ID
			results[i] = models.BulkUploadResult{ID: &id, File: key, Status: models.BulkStatusSuccess}
			created = append(created, image)
		}
		return nil
	})
	if err != nil {
		for _, key := range written {
			s.removeBlob(ctx, key)
		}
		return nil, err
	}

	for _, image := range created {
		s.enqueueVariants(ctx, image)
	}
	return results, nil
}

func (s *imageService) List(ctx context.Context, orgID int64, ordering string, page models.Page) ([]models.ImageOut, int, error) {
	orderBy, err := imageOrdering.resolve(ordering)
	if err != nil {
		return nil, 0, err
	}

	images, err := s.repo.Image.List(ctx, orgID, orderBy, page)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Image.Count(ctx, orgID)
	if err != nil {
		return nil, 0, err
	}

	out := make([]models.ImageOut, 0, len(images))
	for _, image := range images {
		item, err := s.toOut(ctx, image)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *item)
	}
	return out, count, nil
}

func (s *imageService) Get(ctx context.Context, orgID, imageID int64) (*models.ImageOut, error) {
	image, err := s.getImage(ctx, s.repo, orgID, imageID)
	if err != nil {
		return nil, err
	}
	return s.toOut(ctx, *image)
}

func (s *imageService) UpdateMetadata(ctx context.Context, orgID, imageID int64, update models.ImageMetadataUpdate) (*models.ImageOut, error) {
	image, err := s.getImage(ctx, s.repo, orgID, imageID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		image.Title = update.Title
	}
	if update.Description != nil {
		image.Description = update.Description
	}
	if update.AltText != nil {
		image.AltText = update.AltText
	}
	image.UpdatedAt = s.now().UTC()

	if err := s.repo.Image.UpdateMetadata(ctx, image); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgImageNotFound)
		}
		return nil, err
	}
	return s.toOut(ctx, *image)
}

func (s *imageService) Delete(ctx context.Context, orgID, imageID int64) error {
	return s.tx.Transact(ctx, func(tx *repository.Repository) error {
		image, err := s.getImage(ctx, tx, orgID, imageID)
		if err != nil {
			return err
		}
		return s.deleteImage(ctx, tx, image)
	})
}

// BulkDelete skips ids that are not in the organization.
func (s *imageService) BulkDelete(ctx context.Context, orgID int64, ids []int64) error {
	if len(ids) == 0 {
		return apperr.Validation("No ids provided for deletion")
	}

	return s.tx.Transact(ctx, func(tx *repository.Repository) error {
		images, err := tx.Image.ListByIDs(ctx, orgID, uniqueIDs(ids))
		if err != nil {
			return err
		}
		for i := range images {
			if err := s.deleteImage(ctx, tx, &images[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// deleteImage drops relations, then the blobs, then the row. Blob removal
// is best effort; the row delete always proceeds.
func (s *imageService) deleteImage(ctx context.Context, tx *repository.Repository, image *models.Image) error {
	if _, err := tx.Relation.DeleteByImage(ctx, image.ID); err != nil {
		return err
	}

	removeBlobs(ctx, s.storage, s.urls, image.File)

	if err := tx.Image.Delete(ctx, image.OrganizationID, image.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

func (s *imageService) getImage(ctx context.Context, repo *repository.Repository, orgID, imageID int64) (*models.Image, error) {
	image, err := repo.Image.GetByID(ctx, orgID, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgImageNotFound)
		}
		return nil, err
	}
	return image, nil
}

// checkFile returns the per-file error message, or "" for a valid file.
func (s *imageService) checkFile(file models.UploadFile) string {
	if file.Size > s.upload.MaxSize {
		return msgTooLarge
	}
	if !s.allowedType(file) {
		return msgInvalidType
	}
	if err := variants.Validate(file.Data); err != nil {
		return msgInvalidType
	}
	return ""
}

func (s *imageService) allowedType(file models.UploadFile) bool {
	contentType := file.ContentType
	if contentType == "" {
		contentType = variants.DetectContentType(file.Data)
	}
	for _, prefix := range s.upload.AllowedMimePrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func (s *imageService) enqueueVariants(ctx context.Context, image *models.Image) {
	if err := s.jobs.EnqueueVariants(ctx, queue.VariantJob{ImageID: image.ID, Key: image.File}); err != nil {
		logger.Log.Warn("variant job not queued", zap.Int64("image_id", image.ID), zap.Error(err))
	}
}

func (s *imageService) removeBlob(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		logger.Log.Warn("blob delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *imageService) toOut(ctx context.Context, image models.Image) (*models.ImageOut, error) {
	return imageOut(ctx, s.urls, image)
}

func imageOut(ctx context.Context, urls URLBuilder, image models.Image) (*models.ImageOut, error) {
	v, err := urls.Variants(ctx, image.File)
	if err != nil {
		return nil, err
	}
	return &models.ImageOut{Image: image, URL: v[storage.OriginalVariant], Variants: v}, nil
}

// removeBlobs deletes the original and every variant independently.
func removeBlobs(ctx context.Context, store storage.Storage, urls URLBuilder, key string) {
	keys := append([]string{key}, storage.VariantKeys(key, variants.Names())...)
	for _, k := range keys {
		if err := store.Delete(ctx, k); err != nil {
			logger.Log.Warn("blob delete failed", zap.String("key", k), zap.Error(err))
		}
	}
	urls.Forget(key)
}

func newImage(org *models.Organization, userID, key, name string) *models.Image {
	image := &models.Image{File: key, OrganizationID: org.ID}
	if name != "" {
		title := name
		if r := []rune(title); len(r) > 120 {
			title = string(r[:120])
		}
		image.Title = &title
	}
	if userID != "" {
		image.CreatorID = &userID
	}
	return image
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return fmt.Sprintf("%dGB", n>>30)
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
