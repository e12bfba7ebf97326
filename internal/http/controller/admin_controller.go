package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-admin/internal/console"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/model"
)

// AdminController handles admin provisioning. All routes are super-admin only.
type AdminController struct {
	sessions Sessions
	store    *console.Store
}

// NewAdminController creates a new AdminController.
func NewAdminController(sessions Sessions, store *console.Store) *AdminController {
	return &AdminController{
		sessions: sessions,
		store:    store,
	}
}

// CreateAdminRequest represents the request body for provisioning an admin.
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminResponse represents an admin profile.
type AdminResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ListAdmins handles the HTTP GET request for the admin list.
func (ac *AdminController) ListAdmins(c *gin.Context) {
	admins, err := ac.sessions.ListAdmins(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list admins", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list admins"})
		return
	}

	resp := make([]AdminResponse, 0, len(admins))
	for _, admin := range admins {
		resp = append(resp, toAdminResponse(admin))
	}
	c.JSON(http.StatusOK, gin.H{"admins": resp})
}

// CreateAdmin handles the HTTP POST request for provisioning an admin.
func (ac *AdminController) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, ok := consoleState(c, ac.store)
	if !ok {
		return
	}

	creator := middleware.PrincipalFrom(c)
	principal, err := ac.sessions.ProvisionAdmin(c.Request.Context(), req.Email, req.Password, creator)
	if err != nil {
		var provErr *identity.ProvisionError
		if errors.As(err, &provErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":           "admin account created but role assignment failed",
				"account_id":      provErr.AccountID.String(),
				"account_created": provErr.AccountCreated,
			})
			return
		}
		middleware.AbortWithIdentityError(c, err)
		return
	}

	creatorID := creator.ID
	profile := &model.User{ID: principal.ID, Email: principal.Email, Role: principal.Role, CreatedBy: &creatorID}
	state.AddAdmin(profile)
	c.JSON(http.StatusCreated, toAdminResponse(profile))
}

func toAdminResponse(user *model.User) AdminResponse {
	resp := AdminResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Role:  string(user.Role),
	}
	if user.CreatedBy != nil {
		resp.CreatedBy = user.CreatedBy.String()
	}
	if !user.CreatedAt.IsZero() {
		resp.CreatedAt = user.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
