package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the console role of a principal.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is the profile record of a principal. Its ID equals the account ID.
type User struct {
	ID        uuid.UUID
	Email     string
	Role      Role
	CreatedBy *uuid.UUID
	UpdatedAt time.Time
	CreatedAt time.Time
}

func (t *User) InitMeta() {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
}
