package sql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "email", "role", "created_by", "created_at", "updated_at"}

func TestUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("profile keeps account id", func(t *testing.T) {
		accountID := uuid.New()
		creator := uuid.New()
		user := &model.User{ID: accountID, Email: "ops@example.com", Role: model.RoleAdmin, CreatedBy: &creator}

		mock.ExpectPrepare("INSERT INTO users").
			ExpectExec().
			WithArgs(accountID, "ops@example.com", "admin", creator, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		result, err := repo.Create(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, accountID, result.(*model.User).ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectPrepare("INSERT INTO users").
			ExpectExec().
			WillReturnError(&pq.Error{Code: pqUniqueViolationErrCode, Detail: "Key (email) already exists."})

		_, err := repo.Create(ctx, &model.User{Email: "ops@example.com", Role: model.RoleAdmin})
		var uniqueErr *repository.UniqueConstraintError
		require.ErrorAs(t, err, &uniqueErr)
		assert.Equal(t, "Key (email) already exists.", uniqueErr.Detail)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("found with creator", func(t *testing.T) {
		id := uuid.New()
		creator := uuid.New()
		now := time.Now()
		mock.ExpectPrepare("SELECT (.+) FROM users WHERE id = \\$1").
			ExpectQuery().
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow(id.String(), "root@example.com", "superadmin", creator.String(), now, now))

		res, err := repo.FindByID(ctx, id)
		require.NoError(t, err)

		user := res.(*model.User)
		assert.Equal(t, model.RoleSuperAdmin, user.Role)
		require.NotNil(t, user.CreatedBy)
		assert.Equal(t, creator, *user.CreatedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectPrepare("SELECT (.+) FROM users WHERE id = \\$1").
			ExpectQuery().
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		res, err := repo.FindByID(ctx, id)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("filter by role", func(t *testing.T) {
		now := time.Now()
		query := repository.NewQuery().With(repository.RoleField, string(model.RoleAdmin))

		mock.ExpectPrepare("SELECT (.+) FROM users WHERE 1=1 AND role = \\$1 ORDER BY created_at DESC, id DESC LIMIT \\$2").
			ExpectQuery().
			WithArgs("admin", repository.DefaultPaginationLimit).
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow(uuid.New().String(), "a@example.com", "admin", nil, now, now).
				AddRow(uuid.New().String(), "b@example.com", "admin", nil, now, now))

		users, err := repo.List(ctx, *query)
		require.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Nil(t, users[0].(*model.User).CreatedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters apply in fixed order", func(t *testing.T) {
		id := uuid.New()
		query := repository.NewQuery().
			With(repository.RoleField, "admin").
			With(repository.EmailField, "A@example.com").
			With(repository.IDField, id.String())

		mock.ExpectPrepare("AND id = \\$1 AND lower\\(email\\) = lower\\(\\$2\\) AND role = \\$3").
			ExpectQuery().
			WithArgs(id, "A@example.com", "admin", repository.DefaultPaginationLimit).
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		_, err := repo.List(ctx, *query)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid id filter", func(t *testing.T) {
		query := repository.NewQuery().With(repository.IDField, "nope")
		_, err := repo.List(ctx, *query)
		assert.ErrorContains(t, err, "invalid ID format")
	})
}

func TestUserRepository_DeleteByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectPrepare("DELETE FROM users WHERE id = \\$1").
		ExpectExec().
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.DeleteByID(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
