package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"imageAttach/internal/database"
	"imageAttach/internal/models"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByID(ctx context.Context, orgID, imageID int64) (*models.Image, error)
	List(ctx context.Context, orgID int64, orderBy string, page models.Page) ([]models.Image, error)
	Count(ctx context.Context, orgID int64) (int, error)
	ListByIDs(ctx context.Context, orgID int64, ids []int64) ([]models.Image, error)
	UpdateMetadata(ctx context.Context, image *models.Image) error
	Delete(ctx context.Context, orgID, imageID int64) error
	ListOrphans(ctx context.Context, olderThan time.Time, limit int) ([]models.Image, error)
	DeleteOrphan(ctx context.Context, imageID int64) (bool, error)
}

type RelationRepository interface {
	LockTarget(ctx context.Context, targetType string, targetID int64) ([]models.ImageRelation, error)
	Create(ctx context.Context, rel *models.ImageRelation) error
	Delete(ctx context.Context, imageID int64, targetType string, targetID int64) (bool, error)
	DeleteByImage(ctx context.Context, imageID int64) (int64, error)
	ClearCover(ctx context.Context, targetType string, targetID int64) (int64, error)
	SetCover(ctx context.Context, relationID int64) error
	UpdatePosition(ctx context.Context, relationID int64, order int, isCover bool) error
	ListForTarget(ctx context.Context, targetType string, targetID int64, orderBy string, page models.Page) ([]models.RelationWithImage, error)
	CountForTarget(ctx context.Context, targetType string, targetID int64) (int, error)
}

type OrganizationRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	IsMember(ctx context.Context, orgID int64, userID string) (bool, error)
}

type Repository struct {
	Image        ImageRepository
	Relation     RelationRepository
	Organization OrganizationRepository

	db *sqlx.DB
	tx *sqlx.Tx
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		Image:        NewImageRepository(db),
		Relation:     NewRelationRepository(db),
		Organization: NewOrganizationRepository(db),
		db:           db,
	}
}

// Transact runs fn with repositories bound to a single transaction.
func (r *Repository) Transact(ctx context.Context, fn func(repo *Repository) error) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&Repository{
			Image:        NewImageRepository(tx),
			Relation:     NewRelationRepository(tx),
			Organization: NewOrganizationRepository(tx),
			tx:           tx,
		})
	})
}

// Savepoint runs fn so that its failure rolls back only the work fn did.
// Outside a transaction fn runs as is.
func (r *Repository) Savepoint(ctx context.Context, name string, fn func() error) error {
	if r.tx == nil {
		return fn()
	}

	if _, err := r.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if _, rbErr := r.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	_, err := r.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}
