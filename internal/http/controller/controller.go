package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/console"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"github.com/iyhunko/catalog-admin/internal/service"
)

// Catalog is the product store used by the controllers.
type Catalog interface {
	ListProducts(ctx context.Context, query repository.Query) ([]*model.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Create(ctx context.Context, fields service.ProductFields, privileged bool) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, fields service.ProductFields, privileged bool) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Importer runs bulk imports.
type Importer interface {
	ImportFile(ctx context.Context, principal *identity.Principal, fileName, payload string, onCreated func(*model.Product)) (*service.ImportOutcome, error)
	ImportObject(ctx context.Context, principal *identity.Principal, key string, onCreated func(*model.Product)) (*service.ImportOutcome, error)
}

// Margins manages the margin policy.
type Margins interface {
	Get(ctx context.Context) (model.MarginPolicy, error)
	Save(ctx context.Context, policy model.MarginPolicy, by uuid.UUID) (*model.MarginPolicy, error)
	ApplyToSelection(ctx context.Context, products []*model.Product) (*service.ApplyResult, error)
}

// Sessions is the identity service used by the controllers.
type Sessions interface {
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context, principal *identity.Principal) error
	ProvisionAdmin(ctx context.Context, email, password string, createdBy *identity.Principal) (*identity.Principal, error)
	ListAdmins(ctx context.Context) ([]*model.User, error)
}

// Pinger checks a backend dependency.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Controller handles general HTTP requests.
type Controller struct {
	db Pinger
}

// New creates a new Controller.
func New(db Pinger) *Controller {
	return &Controller{
		db: db,
	}
}

// Healthz handles the HTTP GET request for the health check endpoint.
func (con *Controller) Healthz(c *gin.Context) {
	if con.db != nil {
		if err := con.db.PingContext(c.Request.Context()); err != nil {
			slog.Error("Health check failed", slog.Any("err", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Index handles the console entry point that unknown paths redirect to.
func (con *Controller) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "catalog-admin",
		"api":     "/admin/api",
	})
}

// NoRoute answers unknown API paths with 404 and redirects everything else to
// the console.
func (con *Controller) NoRoute(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, apiPrefix) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}

const apiPrefix = "/admin/api"

// consoleState returns the console state of the authenticated principal or
// writes an error response.
func consoleState(c *gin.Context, store *console.Store) (*console.State, bool) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return nil, false
	}

	state, err := store.Session(c.Request.Context(), principal)
	if err != nil {
		slog.Error("Failed to load console state", slog.String("principal_id", principal.ID.String()), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load console"})
		return nil, false
	}
	return state, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return uuid.Nil, false
	}
	return id, true
}
