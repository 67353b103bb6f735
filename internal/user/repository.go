package user

import (
	"context"
	"database/sql"
	"errors"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository is the identity provider consumed by orders, payments and ratings.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const selectUser = `
	SELECT id, full_name, email, role, created_at
	FROM users
`

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "User"),
		zap.String("method", "GetByID"),
		zap.String("target_user_id", id.String()),
	)

	u, err := r.scanOne(ctx, selectUser+`WHERE id = $1`, id)
	if errors.Is(err, ErrUserNotFound) {
		log.Warn("user not found")
		return nil, err
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	return u, nil
}

func (r *repository) scanOne(ctx context.Context, q string, arg any) (*User, error) {
	var (
		u    User
		role sql.NullString
	)
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.FullName, &u.Email, &role, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Role = RoleCustomer
	if role.Valid && role.String != "" {
		u.Role = Role(role.String)
	}
	return &u, nil
}
