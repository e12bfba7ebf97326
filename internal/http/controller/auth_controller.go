package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-admin/internal/console"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/identity"
)

// AuthController handles sign-in, sign-out and the console snapshot.
type AuthController struct {
	sessions Sessions
	store    *console.Store
}

// NewAuthController creates a new AuthController.
func NewAuthController(sessions Sessions, store *console.Store) *AuthController {
	return &AuthController{
		sessions: sessions,
		store:    store,
	}
}

// SignInRequest represents the request body for signing in.
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignInResponse represents a new session.
type SignInResponse struct {
	Token     string              `json:"token"`
	ExpiresAt string              `json:"expires_at"`
	Principal *identity.Principal `json:"principal"`
	Console   *console.Snapshot   `json:"console,omitempty"`
}

// SignIn handles the HTTP POST request for signing in.
func (ac *AuthController) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := ac.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.AbortWithIdentityError(c, err)
		return
	}

	resp := SignInResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		Principal: session.Principal,
	}

	// the session is valid even when the console fails to load; the next
	// console request retries
	state, err := ac.store.Open(c.Request.Context(), session.Principal)
	if err != nil {
		slog.Error("Failed to load console after sign-in",
			slog.String("principal_id", session.Principal.ID.String()),
			slog.Any("err", err))
	} else {
		snap := state.Snapshot()
		resp.Console = &snap
	}

	c.JSON(http.StatusOK, resp)
}

// SignOut handles the HTTP POST request for signing out.
func (ac *AuthController) SignOut(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if err := ac.sessions.SignOut(c.Request.Context(), principal); err != nil {
		middleware.AbortWithIdentityError(c, err)
		return
	}

	ac.store.Drop(principal.ID)
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Console handles the HTTP GET request for the console snapshot.
func (ac *AuthController) Console(c *gin.Context) {
	state, ok := consoleState(c, ac.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, state.Snapshot())
}
