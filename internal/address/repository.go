package address

import (
	"context"
	"database/sql"
	"errors"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Address, error)
	// GetForUser resolves an address only when it belongs to userID.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*Address, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const selectAddress = `
	SELECT
		id, user_id,
		full_name, phone_number,
		full_address, specific_address,
		is_default
	FROM addresses
`

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetByID"),
		zap.String("address_id", id.String()),
	)

	a, err := r.scanOne(ctx, selectAddress+`WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			log.Warn("address not found")
		} else {
			log.Error("query failed", zap.Error(err))
		}
		return nil, err
	}
	return a, nil
}

func (r *repository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetForUser"),
		zap.String("address_id", id.String()),
	)

	a, err := r.scanOne(ctx, selectAddress+`WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			log.Warn("address not found for user")
		} else {
			log.Error("query failed", zap.Error(err))
		}
		return nil, err
	}
	return a, nil
}

func (r *repository) scanOne(ctx context.Context, q string, args ...any) (*Address, error) {
	var a Address
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, q, args...).Scan(
		&a.ID, &a.UserID,
		&a.FullName, &a.PhoneNumber,
		&a.FullAddress, &a.SpecificAddress,
		&a.IsDefault,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
