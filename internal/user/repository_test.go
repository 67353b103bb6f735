package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodhub-be/internal/apperror"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "full_name", "email", "role", "created_at"}

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	id := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, full_name, email, role, created_at FROM users WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(id, "Jane Doe", "jane@example.com", "admin", time.Now()))

		u, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, RoleAdmin, u.Role)
	})

	t.Run("Null role defaults to customer", func(t *testing.T) {
		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(id, "Jane Doe", "jane@example.com", nil, time.Now()))

		u, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, RoleCustomer, u.Role)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(userColumns))

		u, err := repo.GetByID(context.Background(), id)
		assert.Nil(t, u)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WithArgs(id).
			WillReturnError(errors.New("db error"))

		_, err := repo.GetByID(context.Background(), id)
		assert.EqualError(t, err, "db error")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
