package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"imageAttach/internal/models"
)

type organizationRepository struct {
	db DBTX
}

func NewOrganizationRepository(db DBTX) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization

	err := r.db.GetContext(ctx, &org, `SELECT id, slug, name, created_at FROM organizations WHERE slug = $1`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("organization %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

func (r *organizationRepository) IsMember(ctx context.Context, orgID int64, userID string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM memberships WHERE organization_id = $1 AND user_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, orgID, userID); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return exists, nil
}
