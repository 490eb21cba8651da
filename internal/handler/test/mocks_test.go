package test

import (
	"context"
	"io"

	"imageAttach/internal/models"
	"imageAttach/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockOrganizationService struct {
	mock.Mock
}

func (m *MockOrganizationService) Authorize(ctx context.Context, slug, userID string) (*models.Organization, error) {
	args := m.Called(ctx, slug, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) Upload(ctx context.Context, org *models.Organization, userID string, file models.UploadFile) (*models.ImageOut, error) {
	args := m.Called(ctx, org, userID, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImageOut), args.Error(1)
}

func (m *MockImageService) BulkUpload(ctx context.Context, org *models.Organization, userID string, files []models.UploadFile) ([]models.BulkUploadResult, error) {
	args := m.Called(ctx, org, userID, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BulkUploadResult), args.Error(1)
}

func (m *MockImageService) List(ctx context.Context, orgID int64, ordering string, page models.Page) ([]models.ImageOut, int, error) {
	args := m.Called(ctx, orgID, ordering, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.ImageOut), args.Int(1), args.Error(2)
}

func (m *MockImageService) Get(ctx context.Context, orgID, imageID int64) (*models.ImageOut, error) {
	args := m.Called(ctx, orgID, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImageOut), args.Error(1)
}

func (m *MockImageService) UpdateMetadata(ctx context.Context, orgID, imageID int64, update models.ImageMetadataUpdate) (*models.ImageOut, error) {
	args := m.Called(ctx, orgID, imageID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImageOut), args.Error(1)
}

func (m *MockImageService) Delete(ctx context.Context, orgID, imageID int64) error {
	args := m.Called(ctx, orgID, imageID)
	return args.Error(0)
}

func (m *MockImageService) BulkDelete(ctx context.Context, orgID int64, ids []int64) error {
	args := m.Called(ctx, orgID, ids)
	return args.Error(0)
}

type MockRelationService struct {
	mock.Mock
}

func (m *MockRelationService) Attach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]models.RelationOut, error) {
	args := m.Called(ctx, orgID, tag, targetID, imageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RelationOut), args.Error(1)
}

func (m *MockRelationService) BulkAttach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]int64, error) {
	args := m.Called(ctx, orgID, tag, targetID, imageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRelationService) Detach(ctx context.Context, orgID int64, tag string, targetID int64, imageID int64) error {
	args := m.Called(ctx, orgID, tag, targetID, imageID)
	return args.Error(0)
}

func (m *MockRelationService) BulkDetach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]int64, error) {
	args := m.Called(ctx, orgID, tag, targetID, imageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRelationService) Reorder(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) error {
	args := m.Called(ctx, orgID, tag, targetID, imageIDs)
	return args.Error(0)
}

func (m *MockRelationService) SetCover(ctx context.Context, orgID int64, tag string, targetID int64, imageID int64) error {
	args := m.Called(ctx, orgID, tag, targetID, imageID)
	return args.Error(0)
}

func (m *MockRelationService) UnsetCover(ctx context.Context, orgID int64, tag string, targetID int64) error {
	args := m.Called(ctx, orgID, tag, targetID)
	return args.Error(0)
}

func (m *MockRelationService) ListForTarget(ctx context.Context, orgID int64, tag string, targetID int64, ordering string, page models.Page) ([]models.RelationOut, int, error) {
	args := m.Called(ctx, orgID, tag, targetID, ordering, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.RelationOut), args.Int(1), args.Error(2)
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

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
