package model

import (
	"time"

	"github.com/google/uuid"
)

// Account holds sign-in credentials. It is owned by the identity provider and
// never leaves it; the rest of the service works with profiles.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Disabled     bool
	TokenVersion int
	UpdatedAt    time.Time
	CreatedAt    time.Time
}

func (a *Account) InitMeta() {
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.TokenVersion = 1
}
