package handlers

import (
	"context"
	"reflect"
	"strings"

	"imageAttach/internal/config"
	"imageAttach/internal/service"
	"imageAttach/internal/storage"

	"github.com/go-playground/validator/v10"
)

// HealthChecker is satisfied by *database.DB.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Handlers struct {
	OrgService      service.OrganizationService
	ImageService    service.ImageService
	RelationService service.RelationService
	Storage         storage.Storage
	DB              HealthChecker
	Cfg             *config.Config
	Validate        *validator.Validate
}

func NewHandlers(services *service.Service, store storage.Storage, db HealthChecker, cfg *config.Config) *Handlers {
	return &Handlers{
		OrgService:      services.Organization,
		ImageService:    services.Image,
		RelationService: services.Relation,
		Storage:         store,
		DB:              db,
		Cfg:             cfg,
		Validate:        newValidator(),
	}
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
