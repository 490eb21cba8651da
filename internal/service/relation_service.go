package service

import (
	"context"
	"fmt"

	"imageAttach/internal/apperr"
	"imageAttach/internal/models"
	"imageAttach/internal/repository"
)

type RelationService interface {
	Attach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]models.RelationOut, error)
	BulkAttach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]int64, error)
	Detach(ctx context.Context, orgID int64, tag string, targetID int64, imageID int64) error
	BulkDetach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]int64, error)
	Reorder(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) error
	SetCover(ctx context.Context, orgID int64, tag string, targetID int64, imageID int64) error
	UnsetCover(ctx context.Context, orgID int64, tag string, targetID int64) error
	ListForTarget(ctx context.Context, orgID int64, tag string, targetID int64, ordering string, page models.Page) ([]models.RelationOut, int, error)
}

type relationService struct {
	repo    *repository.Repository
	tx      Transactor
	targets TargetResolver
	urls    URLBuilder
}

func NewRelationService(repo *repository.Repository, tx Transactor, targets TargetResolver, urls URLBuilder) RelationService {
	return &relationService{repo: repo, tx: tx, targets: targets, urls: urls}
}

// relationSet is a target's locked relations, indexed by image.
type relationSet struct {
	byImage  map[int64]*models.ImageRelation
	hasCover bool
	maxOrder *int
}

func newRelationSet(relations []models.ImageRelation) *relationSet {
	set := &relationSet{byImage: make(map[int64]*models.ImageRelation, len(relations))}
	for i := range relations {
		set.add(&relations[i])
	}
	return set
}

func (s *relationSet) add(rel *models.ImageRelation) {
	s.byImage[rel.ImageID] = rel
	if rel.IsCover {
		s.hasCover = true
	}
	if rel.Order != nil && (s.maxOrder == nil || *rel.Order > *s.maxOrder) {
		order := *rel.Order
		s.maxOrder = &order
	}
}

// nextOrder is one past the highest order, or 0 when no relation has one.
func (s *relationSet) nextOrder() int {
	if s.maxOrder == nil {
		return 0
	}
	return *s.maxOrder + 1
}

// lock takes the target's relation set for the rest of tx.
func (r *relationService) lock(ctx context.Context, tx *repository.Repository, target models.Target) (*relationSet, error) {
	relations, err := tx.Relation.LockTarget(ctx, target.Type, target.ID)
	if err != nil {
		return nil, err
	}
	return newRelationSet(relations), nil
}

// requireOwned fails with a PermissionError unless every id is an image of
// orgID. It returns the images by id.
func requireOwned(ctx context.Context, tx *repository.Repository, orgID int64, ids []int64) (map[int64]models.Image, error) {
	images, err := tx.Image.ListByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}

	owned := make(map[int64]models.Image, len(images))
	for _, image := range images {
		owned[image.ID] = image
	}
	for _, id := range ids {
		if _, ok := owned[id]; !ok {
			return nil, apperr.Permission(fmt.Sprintf("Image %d does not belong to this organization", id))
		}
	}
	return owned, nil
}

type attachResult struct {
	relations []*models.ImageRelation
	attached  []int64
	images    map[int64]models.Image
}

// attach creates the missing relations for ids in request order. The
// result holds every relation (existing or new) and the ids newly attached.
func (r *relationService) attach(ctx context.Context, tx *repository.Repository, orgID int64, target models.Target, ids []int64) (*attachResult, error) {
	ids = uniqueIDs(ids)

	set, err := r.lock(ctx, tx, target)
	if err != nil {
		return nil, err
	}
	images, err := requireOwned(ctx, tx, orgID, ids)
	if err != nil {
		return nil, err
	}

	relations := make([]*models.ImageRelation, 0, len(ids))
	attached := []int64{}
	for _, id := range ids {
		if existing, ok := set.byImage[id]; ok {
			relations = append(relations, existing)
			continue
		}

		order := set.nextOrder()
		rel := &models.ImageRelation{
			ImageID:    id,
			TargetType: target.Type,
			TargetID:   target.ID,
			IsCover:    !set.hasCover,
			Order:      &order,
		}
		if err := tx.Relation.Create(ctx, rel); err != nil {
			return nil, err
		}

		set.add(rel)
		relations = append(relations, rel)
		attached = append(attached, id)
	}

	return &attachResult{relations: relations, attached: attached, images: images}, nil
}

func (r *relationService) Attach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]models.RelationOut, error) {
	if len(imageIDs) == 0 {
		return nil, apperr.Validation("No image ids provided")
	}

	target, err := r.targets.Resolve(ctx, tag, targetID, orgID)
	if err != nil {
		return nil, err
	}

	var result *attachResult
	err = r.tx.Transact(ctx, func(tx *repository.Repository) error {
		var err error
		result, err = r.attach(ctx, tx, orgID, target, imageIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.RelationOut, 0, len(result.relations))
	for _, rel := range result.relations {
		item, err := r.relationOut(ctx, *rel, result.images[rel.ImageID])
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// BulkAttach is all or nothing: one foreign id fails the whole call.
func (r *relationService) BulkAttach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]int64, error) {
	target, err := r.targets.Resolve(ctx, tag, targetID, orgID)
	if err != nil {
		return nil, err
	}
	if len(imageIDs) == 0 {
		return []int64{}, nil
	}

	var result *attachResult
	err = r.tx.Transact(ctx, func(tx *repository.Repository) error {
		var err error
		result, err = r.attach(ctx, tx, orgID, target, imageIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result.attached, nil
}

// Detach is idempotent: a missing relation is not an error.
func (r *relationService) Detach(ctx context.Context, orgID int64, tag string, targetID int64, imageID int64) error {
	_, err := r.BulkDetach(ctx, orgID, tag, targetID, []int64{imageID})
	return err
}

func (r *relationService) BulkDetach(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) ([]int64, error) {
	target, err := r.targets.Resolve(ctx, tag, targetID, orgID)
	if err != nil {
		return nil, err
	}

	detached := []int64{}
	if len(imageIDs) == 0 {
		return detached, nil
	}

	err = r.tx.Transact(ctx, func(tx *repository.Repository) error {
		if _, err := r.lock(ctx, tx, target); err != nil {
			return err
		}
		for _, id := range uniqueIDs(imageIDs) {
			deleted, err := tx.Relation.Delete(ctx, id, target.Type, target.ID)
			if err != nil {
				return err
			}
			if deleted {
				detached = append(detached, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detached, nil
}

// Reorder requires the complete set of attached images. Position 0 becomes
// the cover.
func (r *relationService) Reorder(ctx context.Context, orgID int64, tag string, targetID int64, imageIDs []int64) error {
	target, err := r.targets.Resolve(ctx, tag, targetID, orgID)
	if err != nil {
		return err
	}

	if len(uniqueIDs(imageIDs)) != len(imageIDs) {
		return apperr.Validation("Duplicate image ids in reorder list")
	}

	return r.tx.Transact(ctx, func(tx *repository.Repository) error {
		set, err := r.lock(ctx, tx, target)
		if err != nil {
			return err
		}

		if len(imageIDs) > 0 {
			images, err := tx.Image.ListByIDs(ctx, orgID, imageIDs)
			if err != nil {
				return err
			}
			if len(images) != len(imageIDs) {
				return apperr.Validation("Some images do not belong to this organization")
			}
		}

		for _, id := range imageIDs {
			if _, ok := set.byImage[id]; !ok {
				return apperr.Validation(fmt.Sprintf("Image %d is not attached to this object", id))
			}
		}
		if len(imageIDs) != len(set.byImage) {
			return apperr.Validation("Reorder list must contain every attached image")
		}

		// The cover is cleared first so the one-cover index never sees two.
		if _, err := tx.Relation.ClearCover(ctx, target.Type, target.ID); err != nil {
			return err
		}
		for i, id := range imageIDs {
			if err := tx.Relation.UpdatePosition(ctx, set.byImage[id].ID, i, i == 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *relationService) SetCover(ctx context.Context, orgID int64, tag string, targetID int64, imageID int64) error {
	target, err := r.targets.Resolve(ctx, tag, targetID, orgID)
	if err != nil {
		return err
	}

	return r.tx.Transact(ctx, func(tx *repository.Repository) error {
		set, err := r.lock(ctx, tx, target)
		if err != nil {
			return err
		}

		rel, ok := set.byImage[imageID]
		if !ok {
			return apperr.NotFound("Image is not attached to this object")
		}

		if _, err := tx.Relation.ClearCover(ctx, target.Type, target.ID); err != nil {
			return err
		}
		return tx.Relation.SetCover(ctx, rel.ID)
	})
}

// UnsetCover is a no-op when the target has no cover.
func (r *relationService) UnsetCover(ctx context.Context, orgID int64, tag string, targetID int64) error {
	target, err := r.targets.Resolve(ctx, tag, targetID, orgID)
	if err != nil {
		return err
	}

	return r.tx.Transact(ctx, func(tx *repository.Repository) error {
		set, err := r.lock(ctx, tx, target)
		if err != nil {
			return err
		}
		if !set.hasCover {
			return nil
		}
		_, err = tx.Relation.ClearCover(ctx, target.Type, target.ID)
		return err
	})
}

func (r *relationService) ListForTarget(ctx context.Context, orgID int64, tag string, targetID int64, ordering string, page models.Page) ([]models.RelationOut, int, error) {
	orderBy, err := relationOrdering.resolve(ordering)
	if err != nil {
		return nil, 0, err
	}

	target, err := r.targets.Resolve(ctx, tag, targetID, orgID)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.repo.Relation.ListForTarget(ctx, target.Type, target.ID, orderBy, page)
	if err != nil {
		return nil, 0, err
	}
	count, err := r.repo.Relation.CountForTarget(ctx, target.Type, target.ID)
	if err != nil {
		return nil, 0, err
	}

	out := make([]models.RelationOut, 0, len(rows))
	for _, row := range rows {
		item, err := r.relationOut(ctx, row.ImageRelation, row.Image)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, item)
	}
	return out, count, nil
}

func (r *relationService) relationOut(ctx context.Context, rel models.ImageRelation, image models.Image) (models.RelationOut, error) {
	img, err := imageOut(ctx, r.urls, image)
	if err != nil {
		return models.RelationOut{}, err
	}

	return models.RelationOut{
		ID:                rel.ID,
		Image:             *img,
		ContentType:       rel.TargetType,
		ObjectID:          rel.TargetID,
		IsCover:           rel.IsCover,
		Order:             rel.Order,
		CustomTitle:       rel.CustomTitle,
		CustomDescription: rel.CustomDescription,
		CustomAltText:     rel.CustomAltText,
	}, nil
}
