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

const userColumns = "id, email, role, created_by, created_at, updated_at"

// UserRepository stores principal profiles.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	user, ok := resource.(*model.User)
	if !ok {
		return nil, fmt.Errorf("resource must be a *model.User: %w", repository.ErrInvalidType)
	}

	user.InitMeta()

	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, user.ID, user.Email, user.Role, user.CreatedBy, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if detail, ok := uniqueViolation(err); ok {
			return nil, &repository.UniqueConstraintError{Detail: detail}
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// List retrieves users from the database based on the provided query.
func (r *UserRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + userColumns + " FROM users WHERE 1=1")

	var args []interface{}
	argIndex := 1

	// Filters are applied in a fixed order so the statement text is stable.
	for _, field := range []repository.QueryField{repository.IDField, repository.EmailField, repository.RoleField} {
		value, ok := query.Values[field]
		if !ok {
			continue
		}
		switch field {
		case repository.IDField:
			id, err := uuid.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("invalid ID format: %w", err)
			}
			queryBuilder.WriteString(fmt.Sprintf(" AND id = $%d", argIndex))
			args = append(args, id)
		case repository.EmailField:
			queryBuilder.WriteString(fmt.Sprintf(" AND lower(email) = lower($%d)", argIndex))
			args = append(args, value)
		case repository.RoleField:
			queryBuilder.WriteString(fmt.Sprintf(" AND role = $%d", argIndex))
			args = append(args, value)
		}
		argIndex++
	}

	// Apply pagination
	if query.Paginator != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1))
		args = append(args, query.Paginator.LastCreatedAt, query.Paginator.LastID)
		argIndex += 2
	}

	// Order by created_at DESC, id DESC for consistent pagination
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
	args = append(args, limit)

	stmt, err := r.db.PrepareContext(ctx, queryBuilder.String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []repository.Resource
	for rows.Next() {
		var user model.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// FindByID retrieves a single user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var result model.User
	if err = scanUser(stmt.QueryRowContext(ctx, id), &result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &result, nil
}

// DeleteByID deletes a user by ID.
func (r *UserRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", repository.ErrNotFound)
	}

	return nil
}

func scanUser(row rowScanner, u *model.User) error {
	var createdBy uuid.NullUUID
	if err := row.Scan(&u.ID, &u.Email, &u.Role, &createdBy, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}
	if createdBy.Valid {
		id := createdBy.UUID
		u.CreatedBy = &id
	}
	return nil
}
