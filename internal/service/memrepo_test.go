package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"imageAttach/internal/models"
	"imageAttach/internal/repository"
)

var errCoverViolation = errors.New(`duplicate key value violates unique constraint "image_relations_one_cover_idx"`)

// memRelations is an in-memory relation table that enforces the one-cover
// index the way Postgres would.
type memRelations struct {
	mu     sync.Mutex
	nextID int64
	rows   []models.ImageRelation
	images *memImages
	locks  int
}

func newMemRelations(images *memImages) *memRelations {
	return &memRelations{images: images}
}

func (m *memRelations) snapshot() []models.ImageRelation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRelations(m.rows)
}

func (m *memRelations) restore(rows []models.ImageRelation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

func cloneRelations(rows []models.ImageRelation) []models.ImageRelation {
	out := make([]models.ImageRelation, len(rows))
	for i, row := range rows {
		out[i] = row
		if row.Order != nil {
			order := *row.Order
			out[i].Order = &order
		}
	}
	return out
}

func (m *memRelations) forTarget(targetType string, targetID int64) []models.ImageRelation {
	var out []models.ImageRelation
	for _, row := range m.rows {
		if row.TargetType == targetType && row.TargetID == targetID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Order, out[j].Order
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		default:
			return out[i].ID < out[j].ID
		}
	})
	return cloneRelations(out)
}

func (m *memRelations) coverCount(targetType string, targetID int64, except int64) int {
	n := 0
	for _, row := range m.rows {
		if row.TargetType == targetType && row.TargetID == targetID && row.IsCover && row.ID != except {
			n++
		}
	}
	return n
}

func (m *memRelations) LockTarget(_ context.Context, targetType string, targetID int64) ([]models.ImageRelation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks++
	return m.forTarget(targetType, targetID), nil
}

func (m *memRelations) Create(_ context.Context, rel *models.ImageRelation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rel.IsCover && m.coverCount(rel.TargetType, rel.TargetID, 0) > 0 {
		return errCoverViolation
	}
	m.nextID++
	rel.ID = m.nextID
	m.rows = append(m.rows, cloneRelations([]models.ImageRelation{*rel})[0])
	return nil
}

func (m *memRelations) Delete(_ context.Context, imageID int64, targetType string, targetID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ImageID == imageID && row.TargetType == targetType && row.TargetID == targetID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memRelations) DeleteByImage(_ context.Context, imageID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, row := range m.rows {
		if row.ImageID == imageID {
			n++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return n, nil
}

func (m *memRelations) ClearCover(_ context.Context, targetType string, targetID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		if m.rows[i].TargetType == targetType && m.rows[i].TargetID == targetID && m.rows[i].IsCover {
			m.rows[i].IsCover = false
			n++
		}
	}
	return n, nil
}

func (m *memRelations) SetCover(_ context.Context, relationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == relationID {
			if m.coverCount(m.rows[i].TargetType, m.rows[i].TargetID, relationID) > 0 {
				return errCoverViolation
			}
			m.rows[i].IsCover = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memRelations) UpdatePosition(_ context.Context, relationID int64, order int, isCover bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == relationID {
			if isCover && m.coverCount(m.rows[i].TargetType, m.rows[i].TargetID, relationID) > 0 {
				return errCoverViolation
			}
			o := order
			m.rows[i].Order = &o
			m.rows[i].IsCover = isCover
			return nil
		}
	}
	return nil
}

func (m *memRelations) ListForTarget(_ context.Context, targetType string, targetID int64, _ string, page models.Page) ([]models.RelationWithImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.forTarget(targetType, targetID)
	out := make([]models.RelationWithImage, 0, len(rows))
	for i, row := range rows {
		if i < page.Offset || (page.Limit > 0 && len(out) >= page.Limit) {
			continue
		}
		out = append(out, models.RelationWithImage{ImageRelation: row, Image: m.images.byID[row.ImageID]})
	}
	return out, nil
}

func (m *memRelations) CountForTarget(_ context.Context, targetType string, targetID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.forTarget(targetType, targetID)), nil
}

// state returns image id -> (order, cover) for one target.
func (m *memRelations) state(targetType string, targetID int64) map[int64]relationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]relationState{}
	for _, row := range m.forTarget(targetType, targetID) {
		s := relationState{Cover: row.IsCover, Order: -1}
		if row.Order != nil {
			s.Order = *row.Order
		}
		out[row.ImageID] = s
	}
	return out
}

func (m *memRelations) covers(targetType string, targetID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coverCount(targetType, targetID, 0)
}

type relationState struct {
	Order int
	Cover bool
}

// memImages is an in-memory image table.
type memImages struct {
	byID map[int64]models.Image
}

func newMemImages(images ...models.Image) *memImages {
	m := &memImages{byID: map[int64]models.Image{}}
	for _, image := range images {
		m.byID[image.ID] = image
	}
	return m
}

func (m *memImages) Create(_ context.Context, image *models.Image) error {
	image.ID = int64(len(m.byID) + 1000)
	m.byID[image.ID] = *image
	return nil
}

func (m *memImages) GetByID(_ context.Context, orgID, imageID int64) (*models.Image, error) {
	image, ok := m.byID[imageID]
	if !ok || image.OrganizationID != orgID {
		return nil, repository.ErrNotFound
	}
	return &image, nil
}

func (m *memImages) List(_ context.Context, orgID int64, _ string, _ models.Page) ([]models.Image, error) {
	var out []models.Image
	for _, image := range m.byID {
		if image.OrganizationID == orgID {
			out = append(out, image)
		}
	}
	return out, nil
}

func (m *memImages) Count(ctx context.Context, orgID int64) (int, error) {
	images, _ := m.List(ctx, orgID, "", models.Page{})
	return len(images), nil
}

func (m *memImages) ListByIDs(_ context.Context, orgID int64, ids []int64) ([]models.Image, error) {
	out := []models.Image{}
	for _, id := range ids {
		if image, ok := m.byID[id]; ok && image.OrganizationID == orgID {
			out = append(out, image)
		}
	}
	return out, nil
}

func (m *memImages) UpdateMetadata(_ context.Context, image *models.Image) error {
	if _, ok := m.byID[image.ID]; !ok {
		return repository.ErrNotFound
	}
	m.byID[image.ID] = *image
	return nil
}

func (m *memImages) Delete(_ context.Context, orgID, imageID int64) error {
	image, ok := m.byID[imageID]
	if !ok || image.OrganizationID != orgID {
		return repository.ErrNotFound
	}
	delete(m.byID, imageID)
	return nil
}

func (m *memImages) ListOrphans(context.Context, time.Time, int) ([]models.Image, error) {
	return nil, nil
}

func (m *memImages) DeleteOrphan(context.Context, int64) (bool, error) {
	return false, nil
}
