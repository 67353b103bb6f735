package catalog

import (
	"context"
	"database/sql"
	"errors"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository is the catalog provider used by order assembly, delivery and ratings.
// Batch lookups return only the rows that exist; callers decide what is missing.
type Repository interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	GetMenuItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*MenuItem, error)
	GetOptionGroups(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*OptionGroup, error)
	GetOptions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*ItemOption, error)

	IncrementSoldCount(ctx context.Context, id uuid.UUID, qty int) error
	RecomputeAverageRating(ctx context.Context, id uuid.UUID, rating int) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const selectMenuItem = `
	SELECT
		id, name, selling_price, cost_price, images,
		sold_count, total_rating, average_rating, is_active
	FROM menu_items
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenuItem(s rowScanner) (*MenuItem, error) {
	var m MenuItem
	if err := s.Scan(
		&m.ID, &m.Name, &m.SellingPrice, &m.CostPrice, pq.Array(&m.Images),
		&m.SoldCount, &m.TotalRating, &m.AverageRating, &m.IsActive,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) GetMenuItem(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Catalog"),
		zap.String("method", "GetMenuItem"),
		zap.String("menu_item_id", id.String()),
	)

	row := db.Executor(ctx, r.db).QueryRowContext(ctx, selectMenuItem+`WHERE id = $1`, id)
	m, err := scanMenuItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("menu item not found")
		return nil, ErrMenuItemNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (r *repository) GetMenuItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*MenuItem, error) {
	out := make(map[uuid.UUID]*MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Catalog"),
		zap.String("method", "GetMenuItems"),
		zap.Int("requested", len(ids)),
	)

	rows, err := db.Executor(ctx, r.db).QueryContext(ctx,
		selectMenuItem+`WHERE id = ANY($1::uuid[])`,
		pq.Array(utils.UUIDStrings(ids)),
	)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		out[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}

	return out, nil
}

func (r *repository) GetOptionGroups(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*OptionGroup, error) {
	out := make(map[uuid.UUID]*OptionGroup, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Catalog"),
		zap.String("method", "GetOptionGroups"),
	)

	rows, err := db.Executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, menu_item_id, name
		FROM option_groups
		WHERE id = ANY($1::uuid[])
	`, pq.Array(utils.UUIDStrings(ids)))
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var g OptionGroup
		if err := rows.Scan(&g.ID, &g.MenuItemID, &g.Name); err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		out[g.ID] = &g
	}
	return out, rows.Err()
}

func (r *repository) GetOptions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*ItemOption, error) {
	out := make(map[uuid.UUID]*ItemOption, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Catalog"),
		zap.String("method", "GetOptions"),
	)

	rows, err := db.Executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, option_group_id, name, additional_price
		FROM item_options
		WHERE id = ANY($1::uuid[])
	`, pq.Array(utils.UUIDStrings(ids)))
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var o ItemOption
		if err := rows.Scan(&o.ID, &o.OptionGroupID, &o.Name, &o.AdditionalPrice); err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		out[o.ID] = &o
	}
	return out, rows.Err()
}

func (r *repository) IncrementSoldCount(ctx context.Context, id uuid.UUID, qty int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Catalog"),
		zap.String("method", "IncrementSoldCount"),
		zap.String("menu_item_id", id.String()),
		zap.Int("qty", qty),
	)

	res, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE menu_items
		SET sold_count = sold_count + $2
		WHERE id = $1
	`, id, qty)
	if err != nil {
		log.Error("update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Warn("menu item not found")
		return ErrMenuItemNotFound
	}
	return nil
}

// RecomputeAverageRating folds one new rating into the running average
// in a single statement so concurrent ratings do not lose updates.
func (r *repository) RecomputeAverageRating(ctx context.Context, id uuid.UUID, rating int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Catalog"),
		zap.String("method", "RecomputeAverageRating"),
		zap.String("menu_item_id", id.String()),
	)

	res, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE menu_items
		SET average_rating = (average_rating * total_rating + $2) / (total_rating + 1),
		    total_rating = total_rating + 1
		WHERE id = $1
	`, id, rating)
	if err != nil {
		log.Error("update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Warn("menu item not found")
		return ErrMenuItemNotFound
	}
	return nil
}
