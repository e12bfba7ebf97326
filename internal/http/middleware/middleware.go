package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-admin/internal/identity"
)

const principalKey = "principal"

// Authenticator verifies session tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identity.Principal, error)
}

// DefaultBatchTimeout bounds how long a bulk import or margin application may
// take before its connection is closed.
const DefaultBatchTimeout = 15 * time.Minute

type Middleware struct {
	auth         Authenticator
	batchTimeout time.Duration
}

// New initializes the middleware with the given authenticator.
// We don't need ctx here because it always has Gin context.
func New(auth Authenticator) *Middleware {
	return &Middleware{
		auth:         auth,
		batchTimeout: DefaultBatchTimeout,
	}
}

// WithBatchTimeout overrides DefaultBatchTimeout. Non-positive values are ignored.
func (m *Middleware) WithBatchTimeout(timeout time.Duration) *Middleware {
	if timeout > 0 {
		m.batchTimeout = timeout
	}
	return m
}

// BatchDeadline lifts the server read and write timeouts for routes that run a
// whole batch before answering. Batches are not cancelled when the client goes
// away, so without it a long import finishes but its outcome never reaches the
// client.
func (m *Middleware) BatchDeadline() gin.HandlerFunc {
	return func(c *gin.Context) {
		deadline := time.Now().Add(m.batchTimeout)
		rc := http.NewResponseController(c.Writer)
		if err := rc.SetReadDeadline(deadline); err != nil {
			slog.Debug("read deadline not extended", slog.String("path", c.Request.URL.Path), slog.Any("err", err))
		}
		if err := rc.SetWriteDeadline(deadline); err != nil {
			slog.Debug("write deadline not extended", slog.String("path", c.Request.URL.Path), slog.Any("err", err))
		}
		c.Next()
	}
}

// Recovery is a middleware that recovers from panics and returns a 500 Internal Server Error
// instead of crashing the server.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered",
					slog.Any("error", err),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
				)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal Server Error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// CORS adds permissive cross-origin headers and answers preflight requests.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Logger logs every request once it has been served.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			slog.Error("HTTP request", attrs...)
		case status >= http.StatusBadRequest:
			slog.Warn("HTTP request", attrs...)
		default:
			slog.Info("HTTP request", attrs...)
		}
	}
}

// Auth requires a valid bearer token and stores the principal in the context.
func (m *Middleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			err := &identity.Error{Kind: identity.KindUnauthenticated, Op: identity.OpAuthenticate}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Message()})
			return
		}

		principal, err := m.auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			AbortWithIdentityError(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireSuperAdmin rejects principals without the superadmin role. It must run
// after Auth.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !PrincipalFrom(c).IsSuperAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "super admin access required"})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal or nil.
func PrincipalFrom(c *gin.Context) *identity.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := v.(*identity.Principal)
	return principal
}

// SetPrincipal stores principal in the context.
func SetPrincipal(c *gin.Context, principal *identity.Principal) {
	c.Set(principalKey, principal)
}

// IdentityStatus maps an identity failure to an HTTP status.
func IdentityStatus(err error) int {
	switch identity.KindOf(err) {
	case identity.KindInvalidEmail, identity.KindWeakPassword:
		return http.StatusBadRequest
	case identity.KindNotFound, identity.KindWrongCredential, identity.KindUnauthenticated:
		return http.StatusUnauthorized
	case identity.KindDisabled, identity.KindNoAccess:
		return http.StatusForbidden
	case identity.KindEmailInUse:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithIdentityError writes the user-facing message of an identity failure.
func AbortWithIdentityError(c *gin.Context, err error) {
	message := "Something went wrong"
	var idErr *identity.Error
	if errors.As(err, &idErr) {
		message = idErr.Message()
	}

	status := IdentityStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("identity operation failed", slog.String("path", c.Request.URL.Path), slog.Any("err", err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
