package service

import (
	"context"
	"io"
	"time"

	"imageAttach/internal/models"
	"imageAttach/internal/queue"
	"imageAttach/internal/repository"
	"imageAttach/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) Create(ctx context.Context, image *models.Image) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *MockImageRepository) GetByID(ctx context.Context, orgID, imageID int64) (*models.Image, error) {
	args := m.Called(ctx, orgID, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockImageRepository) List(ctx context.Context, orgID int64, orderBy string, page models.Page) ([]models.Image, error) {
	args := m.Called(ctx, orgID, orderBy, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Image), args.Error(1)
}

func (m *MockImageRepository) Count(ctx context.Context, orgID int64) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *MockImageRepository) ListByIDs(ctx context.Context, orgID int64, ids []int64) ([]models.Image, error) {
	args := m.Called(ctx, orgID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Image), args.Error(1)
}

func (m *MockImageRepository) UpdateMetadata(ctx context.Context, image *models.Image) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *MockImageRepository) Delete(ctx context.Context, orgID, imageID int64) error {
	args := m.Called(ctx, orgID, imageID)
	return args.Error(0)
}

func (m *MockImageRepository) DeleteOrphan(ctx context.Context, imageID int64) (bool, error) {
	args := m.Called(ctx, imageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockImageRepository) ListOrphans(ctx context.Context, olderThan time.Time, limit int) ([]models.Image, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Image), args.Error(1)
}

type MockRelationRepository struct {
	mock.Mock
}

func (m *MockRelationRepository) LockTarget(ctx context.Context, targetType string, targetID int64) ([]models.ImageRelation, error) {
	args := m.Called(ctx, targetType, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ImageRelation), args.Error(1)
}

func (m *MockRelationRepository) Create(ctx context.Context, rel *models.ImageRelation) error {
	args := m.Called(ctx, rel)
	return args.Error(0)
}

func (m *MockRelationRepository) Delete(ctx context.Context, imageID int64, targetType string, targetID int64) (bool, error) {
	args := m.Called(ctx, imageID, targetType, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRelationRepository) DeleteByImage(ctx context.Context, imageID int64) (int64, error) {
	args := m.Called(ctx, imageID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRelationRepository) ClearCover(ctx context.Context, targetType string, targetID int64) (int64, error) {
	args := m.Called(ctx, targetType, targetID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRelationRepository) SetCover(ctx context.Context, relationID int64) error {
	args := m.Called(ctx, relationID)
	return args.Error(0)
}

func (m *MockRelationRepository) UpdatePosition(ctx context.Context, relationID int64, order int, isCover bool) error {
	args := m.Called(ctx, relationID, order, isCover)
	return args.Error(0)
}

func (m *MockRelationRepository) ListForTarget(ctx context.Context, targetType string, targetID int64, orderBy string, page models.Page) ([]models.RelationWithImage, error) {
	args := m.Called(ctx, targetType, targetID, orderBy, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RelationWithImage), args.Error(1)
}

func (m *MockRelationRepository) CountForTarget(ctx context.Context, targetType string, targetID int64) (int, error) {
	args := m.Called(ctx, targetType, targetID)
	return args.Int(0), args.Error(1)
}

type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) IsMember(ctx context.Context, orgID int64, userID string) (bool, error) {
	args := m.Called(ctx, orgID, userID)
	return args.Bool(0), args.Error(1)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) Open(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, storage.ObjectInfo{}, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockStorage) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueVariants(ctx context.Context, job queue.VariantJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// fakeTx runs fn against repo. When relations is set, a failed fn
// restores the relation rows the way a rollback would.
type fakeTx struct {
	repo      *repository.Repository
	relations *memRelations
	calls     int
}

func (f *fakeTx) Transact(ctx context.Context, fn func(repo *repository.Repository) error) error {
	f.calls++

	var snapshot []models.ImageRelation
	if f.relations != nil {
		snapshot = f.relations.snapshot()
	}

	err := fn(f.repo)
	if err != nil && f.relations != nil {
		f.relations.restore(snapshot)
	}
	return err
}

// staticURLs points every variant at the original.
type staticURLs struct{}

func (staticURLs) Variants(_ context.Context, key string) (models.Variants, error) {
	u := "http://cdn.test/" + key
	return models.Variants{"original": u, "thumb": u, "sm": u, "md": u, "lg": u}, nil
}

func (staticURLs) Forget(string) {}
