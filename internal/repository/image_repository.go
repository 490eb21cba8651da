package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"imageAttach/internal/models"

	"github.com/lib/pq"
)

const imageColumns = `id, file, title, description, alt_text, organization_id, creator_id, created_at, updated_at`

type imageRepository struct {
	db DBTX
}

func NewImageRepository(db DBTX) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	query := `
		INSERT INTO images (file, title, description, alt_text, organization_id, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now().UTC()
	if image.CreatedAt.IsZero() {
		image.CreatedAt = now
	}
	image.UpdatedAt = image.CreatedAt

	err := r.db.QueryRowxContext(ctx, query,
		image.File,
		image.Title,
		image.Description,
		image.AltText,
		image.OrganizationID,
		image.CreatorID,
		image.CreatedAt,
		image.UpdatedAt,
	).Scan(&image.ID)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}

	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, orgID, imageID int64) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1 AND organization_id = $2`

	var image models.Image
	err := r.db.GetContext(ctx, &image, query, imageID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("image %d: %w", imageID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return &image, nil
}

// List returns one page of the organization's images. orderBy must come
// from an allow-list; it is interpolated as is.
func (r *imageRepository) List(ctx context.Context, orgID int64, orderBy string, page models.Page) ([]models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE organization_id = $1 ORDER BY ` + orderBy + ` LIMIT $2 OFFSET $3`

	images := []models.Image{}
	if err := r.db.SelectContext(ctx, &images, query, orgID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	return images, nil
}

func (r *imageRepository) Count(ctx context.Context, orgID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM images WHERE organization_id = $1`, orgID); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

func (r *imageRepository) ListByIDs(ctx context.Context, orgID int64, ids []int64) ([]models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE organization_id = $1 AND id = ANY($2) ORDER BY id`

	images := []models.Image{}
	if err := r.db.SelectContext(ctx, &images, query, orgID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list images by ids: %w", err)
	}

	return images, nil
}

func (r *imageRepository) UpdateMetadata(ctx context.Context, image *models.Image) error {
	query := `
		UPDATE images
		SET title = $1, description = $2, alt_text = $3, updated_at = $4
		WHERE id = $5 AND organization_id = $6
	`

	image.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		image.Title,
		image.Description,
		image.AltText,
		image.UpdatedAt,
		image.ID,
		image.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("image %d: %w", image.ID, ErrNotFound)
	}

	return nil
}

func (r *imageRepository) Delete(ctx context.Context, orgID, imageID int64) error {
	query := `DELETE FROM images WHERE id = $1 AND organization_id = $2`

	result, err := r.db.ExecContext(ctx, query, imageID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("image %d: %w", imageID, ErrNotFound)
	}

	return nil
}

// ListOrphans returns images created before olderThan that are not
// attached to anything, oldest first.
func (r *imageRepository) ListOrphans(ctx context.Context, olderThan time.Time, limit int) ([]models.Image, error) {
	query := `
		SELECT ` + imageColumns + ` FROM images i
		WHERE NOT EXISTS (SELECT 1 FROM image_relations r WHERE r.image_id = i.id)
		AND i.created_at < $1
		ORDER BY i.id
		LIMIT $2
	`

	images := []models.Image{}
	if err := r.db.SelectContext(ctx, &images, query, olderThan, limit); err != nil {
		return nil, fmt.Errorf("failed to list orphaned images: %w", err)
	}

	return images, nil
}

// DeleteOrphan deletes the image only while nothing references it and
// reports whether a row was removed.
func (r *imageRepository) DeleteOrphan(ctx context.Context, imageID int64) (bool, error) {
	query := `
		DELETE FROM images
		WHERE id = $1
		AND NOT EXISTS (SELECT 1 FROM image_relations WHERE image_id = $1)
	`

	result, err := r.db.ExecContext(ctx, query, imageID)
	if err != nil {
		return false, fmt.Errorf("failed to delete orphaned image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check deleted rows: %w", err)
	}

	return rowsAffected > 0, nil
}
