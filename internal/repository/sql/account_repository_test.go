package sql_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"github.com/iyhunko/catalog-admin/internal/repository/sql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountRowColumns = []string{"id", "email", "password_hash", "disabled", "token_version", "created_at", "updated_at"}

func TestAccountRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := sql.NewAccountRepository(db)
	ctx := context.Background()

	t.Run("normalizes email", func(t *testing.T) {
		account := &model.Account{Email: "  Root@Example.COM ", PasswordHash: "hash"}

		mock.ExpectPrepare("INSERT INTO accounts").
			ExpectExec().
			WithArgs(sqlmock.AnyArg(), "root@example.com", "hash", false, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.Create(ctx, account))
		assert.NotEqual(t, uuid.Nil, account.ID)
		assert.Equal(t, 1, account.TokenVersion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email taken", func(t *testing.T) {
		mock.ExpectPrepare("INSERT INTO accounts").
			ExpectExec().
			WillReturnError(&pgconn.PgError{Code: "23505", Detail: "Key (email) already exists."})

		err := repo.Create(ctx, &model.Account{Email: "root@example.com"})
		var uniqueErr *repository.UniqueConstraintError
		assert.ErrorAs(t, err, &uniqueErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_FindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := sql.NewAccountRepository(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		mock.ExpectPrepare("SELECT (.+) FROM accounts WHERE email = \\$1").
			ExpectQuery().
			WithArgs("root@example.com").
			WillReturnRows(sqlmock.NewRows(accountRowColumns).
				AddRow(id.String(), "root@example.com", "hash", false, 3, now, now))

		account, err := repo.FindByEmail(ctx, "ROOT@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, account.ID)
		assert.Equal(t, 3, account.TokenVersion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectPrepare("SELECT (.+) FROM accounts WHERE email = \\$1").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows(accountRowColumns))

		_, err := repo.FindByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_BumpTokenVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := sql.NewAccountRepository(db)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectPrepare("UPDATE accounts SET token_version = token_version \\+ 1").
		ExpectQuery().
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(5))

	version, err := repo.BumpTokenVersion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, version)

	mock.ExpectPrepare("UPDATE accounts SET token_version = token_version \\+ 1").
		ExpectQuery().
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}))

	_, err = repo.BumpTokenVersion(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
