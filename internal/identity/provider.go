// Package identity signs principals in and out and provisions admin accounts.
//
// The credential backend sits behind Provider and reports failures with its own
// error codes. Those codes are translated into Kind values in this package only;
// callers never see provider vocabulary.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provider error codes.
const (
	CodeInvalidEmail      = "auth/invalid-email"
	CodeUserDisabled      = "auth/user-disabled"
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeWeakPassword      = "auth/weak-password"
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeInvalidToken      = "auth/invalid-token"
)

// Provider is the authentication backend.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Credentials, error)
	CreateAccount(ctx context.Context, email, password string) (uuid.UUID, error)
	LookupAccount(ctx context.Context, email string) (uuid.UUID, error)
	// Verify checks a session token and returns the identity it was issued to.
	Verify(ctx context.Context, token string) (*Credentials, error)
	// Revoke invalidates every session token of the account.
	Revoke(ctx context.Context, accountID uuid.UUID) error
}

// Credentials identify an authenticated account.
type Credentials struct {
	AccountID uuid.UUID
	Email     string
	Token     string
	ExpiresAt time.Time
}

// ProviderError is a failure reported by a Provider.
type ProviderError struct {
	Code string
	// AccountID is set when the failure concerns a known account, such as a
	// revoked token.
	AccountID uuid.UUID
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
