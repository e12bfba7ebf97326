package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/model"
)

var (
	// ErrInvalidType is returned when a resource of an unexpected type is passed to a repository.
	ErrInvalidType = errors.New("invalid resource type")

	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("resource not found")
)

// Repository defines the interface for a generic repository that can manage resources.
type Repository interface {
	Create(ctx context.Context, resource Resource) (result Resource, err error)
	List(ctx context.Context, query Query) (result []Resource, err error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (result Resource, err error) // find one
}

// Resource represents a generic resource that can be managed by the repository.
type Resource interface {
	InitMeta()
}

// CatalogTransactor writes product changes together with their outbox events.
type CatalogTransactor interface {
	CreateProductWithEvents(ctx context.Context, product *model.Product, events ...*model.Event) (*model.Product, error)
	UpdateProductWithEvents(ctx context.Context, product *model.Product, events ...*model.Event) error
	// RepriceWithEvents hands the locked stored product to reprice and persists
	// its new selling price and margin together with the returned events.
	RepriceWithEvents(ctx context.Context, id uuid.UUID, reprice func(stored *model.Product) ([]*model.Event, error)) (*model.Product, error)
	DeleteProductWithEvent(ctx context.Context, id uuid.UUID, event *model.Event) error
}

// EventStatusUpdater marks outbox events as processed or failed.
type EventStatusUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error
}

// MarginPolicyStore persists the margin policy singleton.
type MarginPolicyStore interface {
	// Get returns the stored policy. found is false when none was saved yet.
	Get(ctx context.Context) (policy *model.MarginPolicy, found bool, err error)
	Save(ctx context.Context, policy *model.MarginPolicy) error
}

// AccountStore persists sign-in accounts of the identity provider.
type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// BumpTokenVersion invalidates every token issued so far and returns the new version.
	BumpTokenVersion(ctx context.Context, id uuid.UUID) (int, error)
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Detail string
}

// Error implements the error interface.
func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
