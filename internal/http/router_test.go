package http_test

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/console"
	httpAPI "github.com/iyhunko/catalog-admin/internal/http"
	"github.com/iyhunko/catalog-admin/internal/http/controller"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/stretchr/testify/assert"
)

type tokenAuth map[string]*identity.Principal

func (a tokenAuth) Authenticate(_ context.Context, token string) (*identity.Principal, error) {
	if p, ok := a[token]; ok {
		return p, nil
	}
	return nil, &identity.Error{Kind: identity.KindUnauthenticated, Op: identity.OpAuthenticate, Err: errors.New("unknown token")}
}

type emptyCatalog struct{}

func (emptyCatalog) ListAll(context.Context) ([]*model.Product, error) { return nil, nil }

type defaultPolicy struct{}

func (defaultPolicy) Get(context.Context) (model.MarginPolicy, error) {
	return model.DefaultMarginPolicy(), nil
}

type noAdmins struct{}

func (noAdmins) ListAdmins(context.Context) ([]*model.User, error) { return nil, nil }

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := tokenAuth{
		"admin-token": {ID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin},
		"root-token":  {ID: uuid.New(), Email: "root@example.com", Role: model.RoleSuperAdmin},
	}
	store := console.NewStore(emptyCatalog{}, defaultPolicy{}, noAdmins{})

	return httpAPI.InitRouter(gin.New(), middleware.New(auth), httpAPI.Controllers{
		General:  controller.New(nil),
		Auth:     controller.NewAuthController(nil, store),
		Products: controller.NewProductController(nil, store),
		Imports:  controller.NewImportController(nil, store),
		Margins:  controller.NewMarginController(nil, store),
		Admins:   controller.NewAdminController(nil, store),
	})
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestInitRouter(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health", nethttp.MethodGet, "/healthz", "", nethttp.StatusOK},
		{"console entry", nethttp.MethodGet, "/admin", "", nethttp.StatusOK},
		{"products need a session", nethttp.MethodGet, "/admin/api/products", "", nethttp.StatusUnauthorized},
		{"unknown token", nethttp.MethodGet, "/admin/api/products", "bogus", nethttp.StatusUnauthorized},
		{"admin lists products", nethttp.MethodGet, "/admin/api/products", "admin-token", nethttp.StatusOK},
		{"admin reads console", nethttp.MethodGet, "/admin/api/console", "admin-token", nethttp.StatusOK},
		{"admin cannot read policy", nethttp.MethodGet, "/admin/api/margin-policy", "admin-token", nethttp.StatusForbidden},
		{"admin cannot list admins", nethttp.MethodGet, "/admin/api/admins", "admin-token", nethttp.StatusForbidden},
		{"admin cannot apply margins", nethttp.MethodPost, "/admin/api/selection/apply-margin", "admin-token", nethttp.StatusForbidden},
		{"super admin selection", nethttp.MethodDelete, "/admin/api/selection", "root-token", nethttp.StatusOK},
		{"unknown api path", nethttp.MethodGet, "/admin/api/nope", "", nethttp.StatusNotFound},
		{"preflight", nethttp.MethodOptions, "/admin/api/products", "", nethttp.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestInitRouter_RedirectsUnknownPaths(t *testing.T) {
	router := newRouter()

	w := serve(router, nethttp.MethodGet, "/some/page", "")

	assert.Equal(t, nethttp.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
}
