package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/railway-reservation/internal/model"
)

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("should create a user", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("user", "hash", "TRAVELER", created).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewUserRepo(db).Create(ctx, model.User{Username: " user ", PasswordHash: "hash", Role: model.RoleTraveler, CreatedAt: created})

		require.NoError(t, err)
	})

	t.Run("should report a taken username", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'user' for key 'PRIMARY'"))

		err := NewUserRepo(db).Create(ctx, model.User{Username: "user", PasswordHash: "hash", Role: model.RoleTraveler})

		assert.ErrorIs(t, err, model.ErrUsernameTaken)
	})

	t.Run("should fetch by username", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).WithArgs("admin").
			WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "role", "created_at"}).
				AddRow("admin", "hash", "ADMIN", created))

		u, err := NewUserRepo(db).GetByUsername(ctx, "admin")

		require.NoError(t, err)
		assert.True(t, u.IsAdmin())
		assert.Equal(t, created, u.CreatedAt)
	})

	t.Run("should hide a missing user behind invalid credentials", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).WillReturnError(sql.ErrNoRows)

		_, err := NewUserRepo(db).GetByUsername(ctx, "ghost")

		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})
}
