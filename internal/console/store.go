// Package console keeps the per-principal view of the catalog that the admin
// API works against: the mirrored product list, the current selection and the
// super-admin extras.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/model"
)

// CatalogReader loads the whole catalog.
type CatalogReader interface {
	ListAll(ctx context.Context) ([]*model.Product, error)
}

// PolicyReader loads the current margin policy.
type PolicyReader interface {
	Get(ctx context.Context) (model.MarginPolicy, error)
}

// AdminLister loads the admin profiles.
type AdminLister interface {
	ListAdmins(ctx context.Context) ([]*model.User, error)
}

// Store owns the console states of all signed-in principals.
type Store struct {
	catalog  CatalogReader
	policies PolicyReader
	admins   AdminLister

	mu     sync.Mutex
	states map[uuid.UUID]*State
}

// NewStore creates an empty Store.
func NewStore(catalog CatalogReader, policies PolicyReader, admins AdminLister) *Store {
	return &Store{
		catalog:  catalog,
		policies: policies,
		admins:   admins,
		states:   map[uuid.UUID]*State{},
	}
}

// Open loads a fresh state for principal and replaces any previous one.
// Products are loaded first; the policy and the admin list only for
// super-admins.
func (s *Store) Open(ctx context.Context, principal *identity.Principal) (*State, error) {
	state := newState(*principal)

	products, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	state.products = products

	if principal.IsSuperAdmin() {
		policy, err := s.policies.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load margin policy: %w", err)
		}
		state.policy = &policy

		admins, err := s.admins.ListAdmins(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load admins: %w", err)
		}
		state.admins = admins
	}
	state.loadedAt = time.Now().UTC()

	s.mu.Lock()
	s.states[principal.ID] = state
	s.mu.Unlock()

	slog.Debug("console state loaded",
		slog.String("principal_id", principal.ID.String()),
		slog.Int("products", len(products)))
	return state, nil
}

// Session returns the state of principal, opening it on first use. A state
// whose role no longer matches the principal is reloaded.
func (s *Store) Session(ctx context.Context, principal *identity.Principal) (*State, error) {
	s.mu.Lock()
	state, ok := s.states[principal.ID]
	s.mu.Unlock()

	if ok && state.Principal().Role == principal.Role {
		return state, nil
	}
	return s.Open(ctx, principal)
}

// Drop forgets the state of a principal.
func (s *Store) Drop(id uuid.UUID) {
	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()
}

// Len returns the number of open states.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Run drops states of principals that signed out or were invalidated until ctx
// is done. changes is usually a Broadcaster subscription.
func (s *Store) Run(ctx context.Context, changes <-chan identity.StateChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			if change.Kind != identity.SignedOut {
				continue
			}
			s.Drop(change.AccountID)
			slog.Info("console state dropped",
				slog.String("principal_id", change.AccountID.String()),
				slog.String("reason", change.Reason))
		}
	}
}
