package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/model"
)

// marginPolicyKey is the settings row holding the margin policy.
const marginPolicyKey = "margin"

// MarginPolicyRepository persists the margin policy singleton in the settings table.
type MarginPolicyRepository struct {
	db *sql.DB
}

// NewMarginPolicyRepository creates a new MarginPolicyRepository instance.
func NewMarginPolicyRepository(db *sql.DB) *MarginPolicyRepository {
	return &MarginPolicyRepository{db: db}
}

// Get returns the stored policy, or found=false when none has been saved.
func (r *MarginPolicyRepository) Get(ctx context.Context) (*model.MarginPolicy, bool, error) {
	query := `SELECT margin_type, percentage_margin, fixed_margin, updated_at, updated_by
	          FROM settings WHERE key = $1`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var (
		policy    model.MarginPolicy
		updatedBy uuid.NullUUID
	)
	err = stmt.QueryRowContext(ctx, marginPolicyKey).Scan(
		&policy.Type, &policy.PercentageMargin, &policy.FixedMargin, &policy.UpdatedAt, &updatedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query margin policy: %w", err)
	}
	if updatedBy.Valid {
		id := updatedBy.UUID
		policy.UpdatedBy = &id
	}

	return &policy, true, nil
}

// Save overwrites the stored policy.
func (r *MarginPolicyRepository) Save(ctx context.Context, policy *model.MarginPolicy) error {
	policy.InitMeta()

	query := `INSERT INTO settings (key, margin_type, percentage_margin, fixed_margin, updated_at, updated_by)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (key) DO UPDATE SET
	              margin_type = EXCLUDED.margin_type,
	              percentage_margin = EXCLUDED.percentage_margin,
	              fixed_margin = EXCLUDED.fixed_margin,
	              updated_at = EXCLUDED.updated_at,
	              updated_by = EXCLUDED.updated_by`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, marginPolicyKey, policy.Type, policy.PercentageMargin, policy.FixedMargin,
		policy.UpdatedAt, policy.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to save margin policy: %w", err)
	}

	return nil
}
