// Package access decides what a principal may do in the console.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
)

// Gate resolves roles from profile records.
type Gate struct {
	users              repository.Repository
	denyWithoutProfile bool
}

// NewGate creates a Gate. With denyWithoutProfile unset, principals without a
// profile resolve to the admin role so accounts created out of band keep access.
func NewGate(users repository.Repository, denyWithoutProfile bool) *Gate {
	return &Gate{users: users, denyWithoutProfile: denyWithoutProfile}
}

// ResolveRole returns the role stored in the principal's profile.
func (g *Gate) ResolveRole(ctx context.Context, principalID uuid.UUID) (model.Role, error) {
	res, err := g.users.FindByID(ctx, principalID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("failed to load profile: %w", err)
		}
		if g.denyWithoutProfile {
			return "", identity.ErrNoProfile
		}
		slog.Warn("principal has no profile, defaulting to admin", slog.String("principal_id", principalID.String()))
		return model.RoleAdmin, nil
	}

	user, ok := res.(*model.User)
	if !ok {
		return "", repository.ErrInvalidType
	}
	if !user.Role.Valid() {
		slog.Warn("profile carries unknown role, treating as admin",
			slog.String("principal_id", principalID.String()),
			slog.String("role", string(user.Role)))
		return model.RoleAdmin, nil
	}
	return user.Role, nil
}

// IsSuperAdmin reports whether role is the superadmin role.
func IsSuperAdmin(role model.Role) bool {
	return role == model.RoleSuperAdmin
}

// Capabilities lists the privileged console features.
type Capabilities struct {
	ViewMargins        bool `json:"view_margins"`
	ManageMarginPolicy bool `json:"manage_margin_policy"`
	BulkApplyMargin    bool `json:"bulk_apply_margin"`
	ProvisionAdmins    bool `json:"provision_admins"`
	AutoPrice          bool `json:"auto_price"`
}

// CapabilitiesFor returns the capabilities granted to role.
func CapabilitiesFor(role model.Role) Capabilities {
	super := IsSuperAdmin(role)
	return Capabilities{
		ViewMargins:        super,
		ManageMarginPolicy: super,
		BulkApplyMargin:    super,
		ProvisionAdmins:    super,
		AutoPrice:          super,
	}
}
