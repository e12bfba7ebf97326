package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
)

const accountColumns = "id, email, password_hash, disabled, token_version, created_at, updated_at"

// AccountRepository stores the credentials of the local identity provider.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts an account. Emails are stored lower-cased.
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	if account.ID == uuid.Nil {
		account.InitMeta()
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	query := `INSERT INTO accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, account.ID, account.Email, account.PasswordHash, account.Disabled,
		account.TokenVersion, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if detail, ok := uniqueViolation(err); ok {
			return &repository.UniqueConstraintError{Detail: detail}
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// FindByEmail looks an account up by its case-insensitive email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.findOne(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

// FindByID retrieves a single account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Account, error) {
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var a model.Account
	err = stmt.QueryRowContext(ctx, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Disabled, &a.TokenVersion, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	return &a, nil
}

// BumpTokenVersion increments the token version of an account and returns the new value.
func (r *AccountRepository) BumpTokenVersion(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE accounts SET token_version = token_version + 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 RETURNING token_version`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	var version int
	if err := stmt.QueryRowContext(ctx, id).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("account not found: %w", repository.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to bump token version: %w", err)
	}

	return version, nil
}
