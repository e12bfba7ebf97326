package console

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/access"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/service"
)

// AllCategories disables the category filter.
const AllCategories = "all"

// Filter narrows the product list shown in the console.
type Filter struct {
	Search   string
	Category string
}

func (f Filter) match(p *model.Product) bool {
	if f.Category != "" && f.Category != AllCategories && p.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

// Snapshot is a read-only view of a console session.
type Snapshot struct {
	Principal     identity.Principal  `json:"principal"`
	Capabilities  access.Capabilities `json:"capabilities"`
	ProductCount  int                 `json:"product_count"`
	LowStockCount int                 `json:"low_stock_count"`
	Categories    []string            `json:"categories"`
	Selection     []uuid.UUID         `json:"selection"`
	Policy        *model.MarginPolicy `json:"policy,omitempty"`
	Admins        []*model.User       `json:"admins,omitempty"`
	LoadedAt      time.Time           `json:"loaded_at"`
}

// State is the console view of one signed-in principal: the mirrored product
// list, the selection and, for super-admins, the policy and admin list.
// All methods are safe for concurrent use.
type State struct {
	mu           sync.RWMutex
	principal    identity.Principal
	capabilities access.Capabilities
	products     []*model.Product
	selected     map[uuid.UUID]struct{}
	policy       *model.MarginPolicy
	admins       []*model.User
	loadedAt     time.Time
}

func newState(principal identity.Principal) *State {
	return &State{
		principal:    principal,
		capabilities: access.CapabilitiesFor(principal.Role),
		selected:     map[uuid.UUID]struct{}{},
	}
}

// Principal returns the owner of the state.
func (s *State) Principal() identity.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// Snapshot returns the current summary of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Principal:     s.principal,
		Capabilities:  s.capabilities,
		ProductCount:  len(s.products),
		LowStockCount: len(service.LowStock(s.products)),
		Categories:    s.categories(),
		Selection:     s.selectionIDs(),
		Admins:        s.admins,
		LoadedAt:      s.loadedAt,
	}
	if s.policy != nil {
		policy := *s.policy
		snap.Policy = &policy
	}
	return snap
}

// Products returns the products matching filter in list order.
func (s *State) Products(filter Filter) []*model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Product{}
	for _, p := range s.products {
		if filter.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the sorted distinct categories of the mirrored products.
func (s *State) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories()
}

func (s *State) categories() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range s.products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

// LowStock returns the mirrored products at or below their threshold.
func (s *State) LowStock() []*model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return service.LowStock(s.products)
}

// Find returns a mirrored product by id.
func (s *State) Find(id uuid.UUID) (*model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	return s.products[idx], true
}

// Toggle flips the selection of a product and reports whether it is selected
// afterwards. Unknown ids are ignored.
func (s *State) Toggle(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return false
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = struct{}{}
	return true
}

// SelectAll selects every product matching filter. When all of them are
// already selected the selection is cleared instead. It returns the number of
// selected products afterwards.
func (s *State) SelectAll(filter Filter) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var visible []uuid.UUID
	allSelected := true
	for _, p := range s.products {
		if !filter.match(p) {
			continue
		}
		visible = append(visible, p.ID)
		if _, ok := s.selected[p.ID]; !ok {
			allSelected = false
		}
	}

	if allSelected && len(visible) > 0 {
		s.selected = map[uuid.UUID]struct{}{}
		return 0
	}
	for _, id := range visible {
		s.selected[id] = struct{}{}
	}
	return len(s.selected)
}

// Selection returns the selected products in list order.
func (s *State) Selection() []*model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Product{}
	for _, p := range s.products {
		if _, ok := s.selected[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *State) selectionIDs() []uuid.UUID {
	ids := []uuid.UUID{}
	for _, p := range s.products {
		if _, ok := s.selected[p.ID]; ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// ClearSelection drops the whole selection.
func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = map[uuid.UUID]struct{}{}
}

// ApplyCreated puts a new product at the top of the list.
func (s *State) ApplyCreated(p *model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append([]*model.Product{p}, s.products...)
}

// ApplyUpdated replaces the mirrored copy of p.
func (s *State) ApplyUpdated(p *model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(p.ID); idx >= 0 {
		s.products[idx] = p
	}
}

// ApplyPricing replaces the mirrored copies of repriced products.
func (s *State) ApplyPricing(products []*model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if idx := s.indexOf(p.ID); idx >= 0 {
			s.products[idx] = p
		}
	}
}

// ApplyDeleted removes a product from the list and the selection.
func (s *State) ApplyDeleted(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		s.products = append(s.products[:idx:idx], s.products[idx+1:]...)
	}
	delete(s.selected, id)
}

// SetPolicy records the current margin policy.
func (s *State) SetPolicy(policy model.MarginPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = &policy
}

// AddAdmin appends a newly provisioned admin profile.
func (s *State) AddAdmin(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = append(s.admins, user)
}

// Admins returns the mirrored admin profiles.
func (s *State) Admins() []*model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.User{}, s.admins...)
}

func (s *State) indexOf(id uuid.UUID) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
