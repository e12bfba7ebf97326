package sql_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/iyhunko/catalog-admin/internal/repository/sql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantDetail string
		wantOK     bool
	}{
		{"pgx", &pgconn.PgError{Code: "23505", Detail: "dup"}, "dup", true},
		{"wrapped pgx", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Detail: "dup"}), "dup", true},
		{"lib/pq", &pq.Error{Code: "23505", Detail: "dup"}, "dup", true},
		{"other code", &pgconn.PgError{Code: "23503"}, "", false},
		{"plain", errors.New("boom"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, ok := sql.UniqueViolation(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}
