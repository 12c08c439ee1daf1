package resource

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"automation-hub/internal/domain"
)

// Requester is the slice of the API client the catalogs use.
type Requester interface {
	GetJSON(ctx context.Context, path string, out any) error
	SendJSON(ctx context.Context, method, path string, in, out any) error
}

// catalog implements the REST verbs shared by every entity type.
type catalog[T any] struct {
	api  Requester
	path string
	kind string
	coll *Collection[T]

	onMutate []func()
}

func newCatalog[T any](api Requester, path, kind string, ttl time.Duration, logger *slog.Logger) *catalog[T] {
	c := &catalog[T]{api: api, path: path, kind: kind}
	c.coll = NewCollection(kind, func(ctx context.Context) ([]T, error) {
		var out []T
		if err := api.GetJSON(ctx, path, &out); err != nil {
			return nil, fmt.Errorf("list %ss: %w", kind, err)
		}
		return out, nil
	}, ttl, logger)
	return c
}

// OnMutate registers fn to run after every successful create, update or
// delete. Catalogs that embed this entity's fields use it to drop their own
// cached copies. Register hooks before the catalog is shared.
func (c *catalog[T]) OnMutate(fn func()) {
	c.onMutate = append(c.onMutate, fn)
}

func (c *catalog[T]) mutated() {
	c.coll.Invalidate()
	for _, fn := range c.onMutate {
		fn()
	}
}

func (c *catalog[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", c.path, id)
}

func (c *catalog[T]) get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := c.api.GetJSON(ctx, c.itemPath(id), &out); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", c.kind, id, err)
	}
	return &out, nil
}

func (c *catalog[T]) create(ctx context.Context, in any) (*T, error) {
	var out T
	if err := c.api.SendJSON(ctx, http.MethodPost, c.path, in, &out); err != nil {
		return nil, c.fail("create", 0, err)
	}
	c.mutated()
	return &out, nil
}

func (c *catalog[T]) update(ctx context.Context, id int64, in any) (*T, error) {
	var out T
	if err := c.api.SendJSON(ctx, http.MethodPut, c.itemPath(id), in, &out); err != nil {
		return nil, c.fail("update", id, err)
	}
	c.mutated()
	return &out, nil
}

func (c *catalog[T]) delete(ctx context.Context, id int64) error {
	if err := c.api.SendJSON(ctx, http.MethodDelete, c.itemPath(id), nil, nil); err != nil {
		return c.fail("delete", id, err)
	}
	c.mutated()
	return nil
}

func (c *catalog[T]) fail(op string, id int64, err error) error {
	return &domain.MutationError{Op: op, Resource: c.kind, ID: id, Err: err}
}

// Automations is the automation catalog.
type Automations struct {
	*catalog[domain.Automation]
}

// NewAutomations creates the automation catalog.
func NewAutomations(api Requester, ttl time.Duration, logger *slog.Logger) *Automations {
	return &Automations{newCatalog[domain.Automation](api, "/automations", "automation", ttl, logger)}
}

// Collection exposes the shared cached list.
func (a *Automations) Collection() *Collection[domain.Automation] { return a.coll }

// List returns the cached automations.
func (a *Automations) List(ctx context.Context) ([]domain.Automation, error) {
	return a.coll.List(ctx)
}

// Get fetches one automation from the server.
func (a *Automations) Get(ctx context.Context, id int64) (*domain.Automation, error) {
	return a.get(ctx, id)
}

// Create registers a new automation.
func (a *Automations) Create(ctx context.Context, in domain.AutomationRequest) (*domain.Automation, error) {
	if err := in.Validate(); err != nil {
		return nil, a.fail("create", 0, err)
	}
	return a.create(ctx, in)
}

// Update replaces an automation, including its full sector set.
func (a *Automations) Update(ctx context.Context, id int64, in domain.AutomationRequest) (*domain.Automation, error) {
	if err := in.Validate(); err != nil {
		return nil, a.fail("update", id, err)
	}
	return a.update(ctx, id, in)
}

// Delete removes an automation.
func (a *Automations) Delete(ctx context.Context, id int64) error {
	return a.delete(ctx, id)
}

// Users is the user catalog.
type Users struct {
	*catalog[domain.User]
}

// NewUsers creates the user catalog.
func NewUsers(api Requester, ttl time.Duration, logger *slog.Logger) *Users {
	return &Users{newCatalog[domain.User](api, "/users", "user", ttl, logger)}
}

// Collection exposes the shared cached list.
func (u *Users) Collection() *Collection[domain.User] { return u.coll }

// List returns the cached users.
func (u *Users) List(ctx context.Context) ([]domain.User, error) {
	return u.coll.List(ctx)
}

// Get fetches one user from the server.
func (u *Users) Get(ctx context.Context, id int64) (*domain.User, error) {
	return u.get(ctx, id)
}

// Create adds a user. A non-blank password is required.
func (u *Users) Create(ctx context.Context, in domain.CreateUserRequest) (*domain.User, error) {
	if err := in.Validate(); err != nil {
		return nil, u.fail("create", 0, err)
	}
	return u.create(ctx, in)
}

// Update replaces a user's fields and grants. A blank password is left out
// of the request so the stored one is kept.
func (u *Users) Update(ctx context.Context, id int64, in domain.UpdateUserRequest) (*domain.User, error) {
	if err := in.Validate(); err != nil {
		return nil, u.fail("update", id, err)
	}
	return u.update(ctx, id, in)
}

// Delete removes a user.
func (u *Users) Delete(ctx context.Context, id int64) error {
	return u.delete(ctx, id)
}

// Sectors is the sector catalog.
type Sectors struct {
	*catalog[domain.Sector]
}

// NewSectors creates the sector catalog.
func NewSectors(api Requester, ttl time.Duration, logger *slog.Logger) *Sectors {
	return &Sectors{newCatalog[domain.Sector](api, "/sectors", "sector", ttl, logger)}
}

// Collection exposes the shared cached list.
func (s *Sectors) Collection() *Collection[domain.Sector] { return s.coll }

// List returns the cached sectors.
func (s *Sectors) List(ctx context.Context) ([]domain.Sector, error) {
	return s.coll.List(ctx)
}

// Get fetches one sector from the server.
func (s *Sectors) Get(ctx context.Context, id int64) (*domain.Sector, error) {
	return s.get(ctx, id)
}

// Create adds a sector. A blank slug is derived from the name.
func (s *Sectors) Create(ctx context.Context, in domain.SectorRequest) (*domain.Sector, error) {
	if err := in.Validate(); err != nil {
		return nil, s.fail("create", 0, err)
	}
	return s.create(ctx, in)
}

// Update replaces a sector.
func (s *Sectors) Update(ctx context.Context, id int64, in domain.SectorRequest) (*domain.Sector, error) {
	if err := in.Validate(); err != nil {
		return nil, s.fail("update", id, err)
	}
	return s.update(ctx, id, in)
}

// Delete removes a sector.
func (s *Sectors) Delete(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}
