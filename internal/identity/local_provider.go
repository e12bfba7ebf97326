package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	tokenIssuer       = "catalog-admin"
)

// Claims represents the JWT claims structure
type Claims struct {
	AccountID    uuid.UUID `json:"account_id"`
	Email        string    `json:"email"`
	TokenVersion int       `json:"token_version"`
	jwt.RegisteredClaims
}

// LocalProvider authenticates against the accounts table. Passwords are bcrypt
// hashes and sessions are HS256 tokens carrying the account token version, so
// bumping the version revokes every token issued before.
type LocalProvider struct {
	accounts repository.AccountStore
	secret   []byte
	ttl      time.Duration
	cost     int
	validate *validator.Validate
	now      func() time.Time
}

// NewLocalProvider creates a LocalProvider signing tokens with secret.
func NewLocalProvider(accounts repository.AccountStore, secret string, ttl time.Duration) *LocalProvider {
	return &LocalProvider{
		accounts: accounts,
		secret:   []byte(secret),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (p *LocalProvider) checkEmail(email string) error {
	if err := p.validate.Var(email, "required,email"); err != nil {
		return &ProviderError{Code: CodeInvalidEmail, Err: err}
	}
	return nil
}

// SignInWithPassword verifies the password and issues a session token.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*Credentials, error) {
	email = strings.TrimSpace(email)
	if err := p.checkEmail(email); err != nil {
		return nil, err
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ProviderError{Code: CodeUserNotFound}
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account.Disabled {
		return nil, &ProviderError{Code: CodeUserDisabled, AccountID: account.ID}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, &ProviderError{Code: CodeWrongPassword, AccountID: account.ID}
	}

	return p.issue(account)
}

func (p *LocalProvider) issue(account *model.Account) (*Credentials, error) {
	now := p.now()
	expiresAt := now.Add(p.ttl)
	claims := &Claims{
		AccountID:    account.ID,
		Email:        account.Email,
		TokenVersion: account.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Credentials{
		AccountID: account.ID,
		Email:     account.Email,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// CreateAccount registers a new enabled account.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (uuid.UUID, error) {
	email = strings.TrimSpace(email)
	if err := p.checkEmail(email); err != nil {
		return uuid.Nil, err
	}
	if len(password) < minPasswordLength {
		return uuid.Nil, &ProviderError{Code: CodeWeakPassword}
	}

	hash, err := p.HashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{Email: email, PasswordHash: hash}
	account.InitMeta()
	if err := p.accounts.Create(ctx, account); err != nil {
		var uniqueErr *repository.UniqueConstraintError
		if errors.As(err, &uniqueErr) {
			return uuid.Nil, &ProviderError{Code: CodeEmailInUse, Err: err}
		}
		return uuid.Nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account.ID, nil
}

// LookupAccount returns the id of the account registered for email.
func (p *LocalProvider) LookupAccount(ctx context.Context, email string) (uuid.UUID, error) {
	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, &ProviderError{Code: CodeUserNotFound}
		}
		return uuid.Nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account.ID, nil
}

// Verify parses a session token and checks it against the current account state.
func (p *LocalProvider) Verify(ctx context.Context, token string) (*Credentials, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(p.now))
	if err != nil || !parsed.Valid {
		return nil, &ProviderError{Code: CodeInvalidToken, Err: err}
	}

	account, err := p.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ProviderError{Code: CodeInvalidToken, AccountID: claims.AccountID, Err: err}
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account.Disabled {
		return nil, &ProviderError{Code: CodeUserDisabled, AccountID: account.ID}
	}
	if account.TokenVersion != claims.TokenVersion {
		return nil, &ProviderError{Code: CodeInvalidToken, AccountID: account.ID, Err: errors.New("token revoked")}
	}

	creds := &Credentials{AccountID: account.ID, Email: account.Email, Token: token}
	if claims.ExpiresAt != nil {
		creds.ExpiresAt = claims.ExpiresAt.Time
	}
	return creds, nil
}

// Revoke bumps the account token version.
func (p *LocalProvider) Revoke(ctx context.Context, accountID uuid.UUID) error {
	if _, err := p.accounts.BumpTokenVersion(ctx, accountID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// HashPassword hashes a password with the provider cost.
func (p *LocalProvider) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
