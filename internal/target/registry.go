// Package target resolves the "type.model" tags used in attach routes to
// concrete entities and the organization that owns them.
package target

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"imageAttach/internal/apperr"
	"imageAttach/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	ContactTag      = "contacts.contact"
	OrganizationTag = "organizations.organization"
)

// Resolver reports whether an entity exists and which organization owns it.
type Resolver interface {
	Lookup(ctx context.Context, id int64) (orgID int64, exists bool, err error)
}

type ResolverFunc func(ctx context.Context, id int64) (int64, bool, error)

func (f ResolverFunc) Lookup(ctx context.Context, id int64) (int64, bool, error) {
	return f(ctx, id)
}

type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

// NewDefaultRegistry registers the kinds shipped with the service.
func NewDefaultRegistry(db *sqlx.DB) *Registry {
	r := NewRegistry()
	r.Register(ContactTag, &TableResolver{DB: db, Table: "contacts", OrgColumn: "organization_id"})
	r.Register(OrganizationTag, &TableResolver{DB: db, Table: "organizations", OrgColumn: "id"})
	return r
}

func Tag(appLabel, model string) string {
	return appLabel + "." + model
}

func (r *Registry) Register(tag string, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[tag] = resolver
}

func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.resolvers))
	for tag := range r.resolvers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Resolve looks the entity up and checks it belongs to orgID.
func (r *Registry) Resolve(ctx context.Context, tag string, id, orgID int64) (models.Target, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[tag]
	r.mu.RUnlock()
	if !ok {
		return models.Target{}, apperr.NotFound("Content type not found")
	}

	owner, exists, err := resolver.Lookup(ctx, id)
	if err != nil {
		return models.Target{}, errors.Wrapf(err, "resolve %s %d", tag, id)
	}
	if !exists {
		return models.Target{}, apperr.NotFound("Object not found")
	}
	if owner != orgID {
		return models.Target{}, apperr.Permission("Object belongs to another organization")
	}

	return models.Target{Type: tag, ID: id, OrganizationID: owner}, nil
}

// TableResolver looks entities up in a table that carries an owner column.
// Table and OrgColumn are trusted identifiers, never request input.
type TableResolver struct {
	DB        *sqlx.DB
	Table     string
	OrgColumn string
}

func (t *TableResolver) Lookup(ctx context.Context, id int64) (int64, bool, error) {
	var orgID int64
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.OrgColumn, t.Table)

	err := t.DB.GetContext(ctx, &orgID, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up %s: %w", t.Table, err)
	}

	return orgID, true, nil
}
