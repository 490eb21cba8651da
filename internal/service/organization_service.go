package service

import (
	"context"
	"fmt"

	"imageAttach/internal/apperr"
	"imageAttach/internal/models"
	"imageAttach/internal/repository"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

type OrganizationService interface {
	Authorize(ctx context.Context, slug, userID string) (*models.Organization, error)
}

type organizationService struct {
	orgRepo repository.OrganizationRepository
	members *cache.Cache
}

// NewOrganizationService caches positive membership checks in members.
// Revoked memberships stay valid until their entry expires.
func NewOrganizationService(orgRepo repository.OrganizationRepository, members *cache.Cache) OrganizationService {
	return &organizationService{orgRepo: orgRepo, members: members}
}

func (o *organizationService) Authorize(ctx context.Context, slug, userID string) (*models.Organization, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("Authentication credentials were not provided.")
	}

	org, err := o.orgRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Organization not found")
		}
		return nil, err
	}

	cacheKey := fmt.Sprintf("%d:%s", org.ID, userID)
	if _, ok := o.members.Get(cacheKey); ok {
		return org, nil
	}

	member, err := o.orgRepo.IsMember(ctx, org.ID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.Permission("You do not have access to this organization.")
	}

	o.members.SetDefault(cacheKey, struct{}{})
	return org, nil
}
