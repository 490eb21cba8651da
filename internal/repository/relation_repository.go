package repository

import (
	"context"
	"fmt"

	"imageAttach/internal/models"
)

const relationColumns = `id, image_id, target_type, target_id, is_cover, sort_order, custom_title, custom_description, custom_alt_text`

type relationRepository struct {
	db DBTX
}

func NewRelationRepository(db DBTX) RelationRepository {
	return &relationRepository{db: db}
}

// LockTarget serializes writers of one target's relation set for the rest
// of the transaction and returns the set, locked, in display order.
// The advisory lock covers targets that have no relations yet.
func (r *relationRepository) LockTarget(ctx context.Context, targetType string, targetID int64) ([]models.ImageRelation, error) {
	lockKey := fmt.Sprintf("%s:%d", targetType, targetID)
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return nil, fmt.Errorf("failed to lock target: %w", err)
	}

	query := `
		SELECT ` + relationColumns + ` FROM image_relations
		WHERE target_type = $1 AND target_id = $2
		ORDER BY sort_order NULLS LAST, id
		FOR UPDATE
	`

	relations := []models.ImageRelation{}
	if err := r.db.SelectContext(ctx, &relations, query, targetType, targetID); err != nil {
		return nil, fmt.Errorf("failed to lock relations: %w", err)
	}

	return relations, nil
}

func (r *relationRepository) Create(ctx context.Context, rel *models.ImageRelation) error {
	query := `
		INSERT INTO image_relations (image_id, target_type, target_id, is_cover, sort_order, custom_title, custom_description, custom_alt_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		rel.ImageID,
		rel.TargetType,
		rel.TargetID,
		rel.IsCover,
		rel.Order,
		rel.CustomTitle,
		rel.CustomDescription,
		rel.CustomAltText,
	).Scan(&rel.ID)
	if err != nil {
		return fmt.Errorf("failed to create relation: %w", err)
	}

	return nil
}

// Delete removes one relation and reports whether it existed.
func (r *relationRepository) Delete(ctx context.Context, imageID int64, targetType string, targetID int64) (bool, error) {
	query := `DELETE FROM image_relations WHERE image_id = $1 AND target_type = $2 AND target_id = $3`

	result, err := r.db.ExecContext(ctx, query, imageID, targetType, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to delete relation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check deleted rows: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *relationRepository) DeleteByImage(ctx context.Context, imageID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM image_relations WHERE image_id = $1`, imageID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete image relations: %w", err)
	}

	return result.RowsAffected()
}

func (r *relationRepository) ClearCover(ctx context.Context, targetType string, targetID int64) (int64, error) {
	query := `UPDATE image_relations SET is_cover = FALSE WHERE target_type = $1 AND target_id = $2 AND is_cover`

	result, err := r.db.ExecContext(ctx, query, targetType, targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cover: %w", err)
	}

	return result.RowsAffected()
}

func (r *relationRepository) SetCover(ctx context.Context, relationID int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE image_relations SET is_cover = TRUE WHERE id = $1`, relationID)
	if err != nil {
		return fmt.Errorf("failed to set cover: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("relation %d: %w", relationID, ErrNotFound)
	}

	return nil
}

func (r *relationRepository) UpdatePosition(ctx context.Context, relationID int64, order int, isCover bool) error {
	query := `UPDATE image_relations SET sort_order = $1, is_cover = $2 WHERE id = $3`

	if _, err := r.db.ExecContext(ctx, query, order, isCover, relationID); err != nil {
		return fmt.Errorf("failed to update relation position: %w", err)
	}

	return nil
}

// ListForTarget returns relations joined with their images. orderBy must
// come from an allow-list and may reference the aliases r and i.
func (r *relationRepository) ListForTarget(ctx context.Context, targetType string, targetID int64, orderBy string, page models.Page) ([]models.RelationWithImage, error) {
	query := `
		SELECT
			r.id, r.image_id, r.target_type, r.target_id, r.is_cover, r.sort_order,
			r.custom_title, r.custom_description, r.custom_alt_text,
			i.id AS "image.id",
			i.file AS "image.file",
			i.title AS "image.title",
			i.description AS "image.description",
			i.alt_text AS "image.alt_text",
			i.organization_id AS "image.organization_id",
			i.creator_id AS "image.creator_id",
			i.created_at AS "image.created_at",
			i.updated_at AS "image.updated_at"
		FROM image_relations r
		JOIN images i ON i.id = r.image_id
		WHERE r.target_type = $1 AND r.target_id = $2
		ORDER BY ` + orderBy + `
		LIMIT $3 OFFSET $4
	`

	relations := []models.RelationWithImage{}
	if err := r.db.SelectContext(ctx, &relations, query, targetType, targetID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}

	return relations, nil
}

func (r *relationRepository) CountForTarget(ctx context.Context, targetType string, targetID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM image_relations WHERE target_type = $1 AND target_id = $2`
	if err := r.db.GetContext(ctx, &count, query, targetType, targetID); err != nil {
		return 0, fmt.Errorf("failed to count relations: %w", err)
	}
	return count, nil
}
