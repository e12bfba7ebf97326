package controller_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/console"
	"github.com/iyhunko/catalog-admin/internal/http/controller"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(sessions *MockSessions, store *console.Store, principal *identity.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	ac := controller.NewAuthController(sessions, store)
	adm := controller.NewAdminController(sessions, store)
	router.POST("/auth/sign-in", ac.SignIn)

	authed := router.Group("", asPrincipal(principal))
	authed.POST("/auth/sign-out", ac.SignOut)
	authed.GET("/console", ac.Console)
	authed.GET("/admins", adm.ListAdmins)
	authed.POST("/admins", adm.CreateAdmin)
	return router
}

func TestAuthController_SignIn(t *testing.T) {
	t.Run("success returns token and console", func(t *testing.T) {
		sessions := new(MockSessions)
		store := newStore(product("Lamp", "Home", 40))
		router := newAuthRouter(sessions, store, nil)

		principal := newPrincipal(model.RoleSuperAdmin)
		sessions.On("SignIn", mock.Anything, "root@example.com", "secret1").Return(&identity.Session{
			Token: "tok", ExpiresAt: time.Now().Add(time.Hour), Principal: principal,
		}, nil)

		w := doJSON(t, router, http.MethodPost, "/auth/sign-in", controller.SignInRequest{Email: "root@example.com", Password: "secret1"})

		require.Equal(t, http.StatusOK, w.Code)
		var resp controller.SignInResponse
		decode(t, w, &resp)
		assert.Equal(t, "tok", resp.Token)
		require.NotNil(t, resp.Console)
		assert.Equal(t, 1, resp.Console.ProductCount)
		assert.True(t, resp.Console.Capabilities.ProvisionAdmins)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("wrong password", func(t *testing.T) {
		sessions := new(MockSessions)
		router := newAuthRouter(sessions, newStore(), nil)
		sessions.On("SignIn", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &identity.Error{Kind: identity.KindWrongCredential, Op: identity.OpSignIn})

		w := doJSON(t, router, http.MethodPost, "/auth/sign-in", controller.SignInRequest{Email: "a@example.com", Password: "nope"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Invalid email or password"}`, w.Body.String())
	})

	t.Run("unknown failure uses the sign-in message", func(t *testing.T) {
		sessions := new(MockSessions)
		router := newAuthRouter(sessions, newStore(), nil)
		sessions.On("SignIn", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &identity.Error{Kind: identity.KindUnknown, Op: identity.OpSignIn, Err: errors.New("network")})

		w := doJSON(t, router, http.MethodPost, "/auth/sign-in", controller.SignInRequest{Email: "a@example.com", Password: "x"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Failed to sign in. Please try again.")
	})

	t.Run("missing fields", func(t *testing.T) {
		router := newAuthRouter(new(MockSessions), newStore(), nil)

		w := doJSON(t, router, http.MethodPost, "/auth/sign-in", controller.SignInRequest{Email: "a@example.com"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthController_SignOut(t *testing.T) {
	principal := newPrincipal(model.RoleAdmin)
	sessions := new(MockSessions)
	store := newStore()
	router := newAuthRouter(sessions, store, principal)
	sessions.On("SignOut", mock.Anything, principal).Return(nil)

	w := doJSON(t, router, http.MethodGet, "/console", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.Len())

	w = doJSON(t, router, http.MethodPost, "/auth/sign-out", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.Len())
}

func TestAdminController(t *testing.T) {
	creator := newPrincipal(model.RoleSuperAdmin)

	t.Run("list", func(t *testing.T) {
		sessions := new(MockSessions)
		router := newAuthRouter(sessions, newStore(), creator)
		sessions.On("ListAdmins", mock.Anything).Return([]*model.User{{ID: uuid.New(), Email: "a@example.com", Role: model.RoleAdmin}}, nil)

		w := doJSON(t, router, http.MethodGet, "/admins", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "a@example.com")
	})

	t.Run("create", func(t *testing.T) {
		sessions := new(MockSessions)
		store := newStore()
		router := newAuthRouter(sessions, store, creator)
		created := &identity.Principal{ID: uuid.New(), Email: "new@example.com", Role: model.RoleAdmin}
		sessions.On("ProvisionAdmin", mock.Anything, "new@example.com", "secret1", creator).Return(created, nil)

		w := doJSON(t, router, http.MethodPost, "/admins", controller.CreateAdminRequest{Email: "new@example.com", Password: "secret1"})

		require.Equal(t, http.StatusCreated, w.Code)
		var resp controller.AdminResponse
		decode(t, w, &resp)
		assert.Equal(t, created.ID.String(), resp.ID)
		assert.Equal(t, creator.ID.String(), resp.CreatedBy)

		w = doJSON(t, router, http.MethodGet, "/console", nil)
		assert.Contains(t, w.Body.String(), "new@example.com")
	})

	t.Run("email in use", func(t *testing.T) {
		sessions := new(MockSessions)
		router := newAuthRouter(sessions, newStore(), creator)
		sessions.On("ProvisionAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &identity.Error{Kind: identity.KindEmailInUse, Op: identity.OpProvision})

		w := doJSON(t, router, http.MethodPost, "/admins", controller.CreateAdminRequest{Email: "dup@example.com", Password: "secret1"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Email already in use")
	})

	t.Run("profile write failure reports the orphan account", func(t *testing.T) {
		sessions := new(MockSessions)
		router := newAuthRouter(sessions, newStore(), creator)
		accountID := uuid.New()
		sessions.On("ProvisionAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&identity.Principal{ID: accountID}, &identity.ProvisionError{AccountID: accountID, AccountCreated: true, Err: errors.New("db")})

		w := doJSON(t, router, http.MethodPost, "/admins", controller.CreateAdminRequest{Email: "x@example.com", Password: "secret1"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), accountID.String())
		assert.Contains(t, w.Body.String(), `"account_created":true`)
	})
}

func TestController_Healthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ok", func(t *testing.T) {
		router := gin.New()
		router.GET("/healthz", controller.New(pinger{}).Healthz)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("database down", func(t *testing.T) {
		router := gin.New()
		router.GET("/healthz", controller.New(pinger{err: errors.New("down")}).Healthz)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
