package service

import (
	"context"
	"time"

	"imageAttach/internal/config"
	"imageAttach/internal/logger"
	"imageAttach/internal/models"
	"imageAttach/internal/queue"
	"imageAttach/internal/repository"
	"imageAttach/internal/storage"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Transactor runs fn with repositories bound to one transaction.
type Transactor interface {
	Transact(ctx context.Context, fn func(repo *repository.Repository) error) error
}

type TargetResolver interface {
	Resolve(ctx context.Context, tag string, id, orgID int64) (models.Target, error)
}

// URLBuilder turns storage keys into the URLs clients receive.
type URLBuilder interface {
	Variants(ctx context.Context, key string) (models.Variants, error)
	Forget(key string)
}

// JobQueue schedules variant generation. Enqueue failures never fail the
// request that caused them.
type JobQueue interface {
	EnqueueVariants(ctx context.Context, job queue.VariantJob) error
}

type Service struct {
	Auth         AuthService
	Organization OrganizationService
	Image        ImageService
	Relation     RelationService
	Variant      VariantService
	Cleanup      CleanupService
}

type Deps struct {
	Repo    *repository.Repository
	Tx      Transactor
	Targets TargetResolver
	Storage storage.Storage
	URLs    URLBuilder
	Jobs    JobQueue
}

func NewService(deps Deps, cfg *config.Config) *Service {
	variant := NewVariantService(deps.Storage)

	jobs := deps.Jobs
	if jobs == nil {
		jobs = NewInlineJobs(variant)
	}

	images := NewImageService(deps.Repo, deps.Tx, deps.Storage, deps.URLs, jobs, cfg.Upload)

	return &Service{
		Auth:         NewAuthService(cfg),
		Organization: NewOrganizationService(deps.Repo.Organization, cache.New(cfg.MembershipCacheTTL, 2*cfg.MembershipCacheTTL)),
		Image:        images,
		Relation:     NewRelationService(deps.Repo, deps.Tx, deps.Targets, deps.URLs),
		Variant:      variant,
		Cleanup:      NewCleanupService(deps.Repo.Image, deps.Storage, deps.URLs),
	}
}

// InlineJobs renders variants in a goroutine of the API process. Used when
// no Redis stream is configured.
type InlineJobs struct {
	variants VariantService
	timeout  time.Duration
}

func NewInlineJobs(variants VariantService) *InlineJobs {
	return &InlineJobs{variants: variants, timeout: 2 * time.Minute}
}

func (j *InlineJobs) EnqueueVariants(_ context.Context, job queue.VariantJob) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()

		if _, err := j.variants.Generate(ctx, job.Key); err != nil {
			logger.Log.Warn("inline variant generation failed",
				zap.Int64("image_id", job.ImageID),
				zap.String("key", job.Key),
				zap.Error(err),
			)
		}
	}()
	return nil
}
