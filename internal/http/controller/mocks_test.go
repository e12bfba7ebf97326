package controller_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/console"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"github.com/iyhunko/catalog-admin/internal/service"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListAll(ctx context.Context) ([]*model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Product), args.Error(1)
}

func (m *MockCatalog) ListProducts(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Product), args.Error(1)
}

func (m *MockCatalog) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalog) Create(ctx context.Context, fields service.ProductFields, privileged bool) (*model.Product, error) {
	args := m.Called(ctx, fields, privileged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalog) Update(ctx context.Context, id uuid.UUID, fields service.ProductFields, privileged bool) (*model.Product, error) {
	args := m.Called(ctx, id, fields, privileged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) ImportFile(ctx context.Context, principal *identity.Principal, fileName, payload string, onCreated func(*model.Product)) (*service.ImportOutcome, error) {
	args := m.Called(ctx, principal, fileName, payload, onCreated)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportOutcome), args.Error(1)
}

func (m *MockImporter) ImportObject(ctx context.Context, principal *identity.Principal, key string, onCreated func(*model.Product)) (*service.ImportOutcome, error) {
	args := m.Called(ctx, principal, key, onCreated)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportOutcome), args.Error(1)
}

type MockMargins struct {
	mock.Mock
}

func (m *MockMargins) Get(ctx context.Context) (model.MarginPolicy, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.MarginPolicy), args.Error(1)
}

func (m *MockMargins) Save(ctx context.Context, policy model.MarginPolicy, by uuid.UUID) (*model.MarginPolicy, error) {
	args := m.Called(ctx, policy, by)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MarginPolicy), args.Error(1)
}

func (m *MockMargins) ApplyToSelection(ctx context.Context, products []*model.Product) (*service.ApplyResult, error) {
	args := m.Called(ctx, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ApplyResult), args.Error(1)
}

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockSessions) SignOut(ctx context.Context, principal *identity.Principal) error {
	args := m.Called(ctx, principal)
	return args.Error(0)
}

func (m *MockSessions) ProvisionAdmin(ctx context.Context, email, password string, createdBy *identity.Principal) (*identity.Principal, error) {
	args := m.Called(ctx, email, password, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Principal), args.Error(1)
}

func (m *MockSessions) ListAdmins(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

type fixedPolicy struct{}

func (fixedPolicy) Get(context.Context) (model.MarginPolicy, error) {
	return model.DefaultMarginPolicy(), nil
}

// newStore returns a console store whose catalog always holds products.
func newStore(products ...*model.Product) *console.Store {
	catalog := new(MockCatalog)
	catalog.On("ListAll", mock.Anything).Return(products, nil)
	sessions := new(MockSessions)
	sessions.On("ListAdmins", mock.Anything).Return([]*model.User{}, nil)
	return console.NewStore(catalog, fixedPolicy{}, sessions)
}

func asPrincipal(principal *identity.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetPrincipal(c, principal)
		c.Next()
	}
}

func newPrincipal(role model.Role) *identity.Principal {
	return &identity.Principal{ID: uuid.New(), Email: string(role) + "@example.com", Role: role}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type pinger struct {
	err error
}

func (p pinger) PingContext(context.Context) error {
	return p.err
}
