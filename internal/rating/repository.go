package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// LockItem reads the order line with a row lock held until the
	// surrounding transaction ends.
	LockItem(ctx context.Context, orderItemID uuid.UUID) (*RateableItem, error)
	// MarkRated flips is_rated and reports whether this call did it.
	MarkRated(ctx context.Context, orderItemID uuid.UUID) (bool, error)
	Insert(ctx context.Context, r *Rating) error
	ListByMenuItem(ctx context.Context, f ListFilter) ([]Rating, int, error)
}

type ListFilter struct {
	MenuItemID uuid.UUID
	Stars      int
	HasImages  bool
	OrderBy    string
	Limit      int
	Offset     int
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) LockItem(ctx context.Context, orderItemID uuid.UUID) (*RateableItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Rating"),
		zap.String("method", "LockItem"),
		zap.String("order_item_id", orderItemID.String()),
	)
	exec := db.Executor(ctx, r.db)

	item := RateableItem{OrderItemID: orderItemID}
	err := exec.QueryRowContext(ctx, `
		SELECT oi.menu_item_id, o.user_id, o.current_status, oi.is_rated
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.id = $1
		FOR UPDATE OF oi
	`, orderItemID).Scan(&item.MenuItemID, &item.OwnerID, &item.OrderStatus, &item.IsRated)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("order item not found")
		return nil, ErrOrderItemNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT option_item_name
		FROM order_item_options
		WHERE order_item_id = $1
		ORDER BY seq
	`, orderItemID)
	if err != nil {
		log.Error("query options failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	item.OptionItemNames = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		item.OptionItemNames = append(item.OptionItemNames, name)
	}
	return &item, rows.Err()
}

func (r *repository) MarkRated(ctx context.Context, orderItemID uuid.UUID) (bool, error) {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE order_items SET is_rated = TRUE WHERE id = $1 AND is_rated = FALSE`, orderItemID)
	if err != nil {
		logger.FromCtx(ctx).Error("mark rated failed",
			zap.String("repo", "Rating"),
			zap.String("order_item_id", orderItemID.String()),
			zap.Error(err),
		)
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repository) Insert(ctx context.Context, rt *Rating) error {
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO ratings (
			user_id, food_id, order_item_id, content, rating, images, option_item_names
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		rt.UserID, rt.MenuItemID, rt.OrderItemID, rt.Content, rt.Rating,
		pq.Array(rt.Images), pq.Array(rt.OptionItemNames),
	).Scan(&rt.ID, &rt.CreatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("insert rating failed",
			zap.String("repo", "Rating"),
			zap.String("order_item_id", rt.OrderItemID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) ListByMenuItem(ctx context.Context, f ListFilter) ([]Rating, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Rating"),
		zap.String("method", "ListByMenuItem"),
		zap.String("menu_item_id", f.MenuItemID.String()),
	)
	exec := db.Executor(ctx, r.db)

	where := " WHERE r.food_id = $1"
	args := []any{f.MenuItemID}
	if f.Stars > 0 {
		args = append(args, f.Stars)
		where += fmt.Sprintf(" AND r.rating = $%d", len(args))
	}
	if f.HasImages {
		where += " AND cardinality(r.images) > 0"
	}

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings r`+where, args...).Scan(&total); err != nil {
		log.Error("count ratings failed", zap.Error(err))
		return nil, 0, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "r.created_at DESC"
	}
	n := len(args)
	query := `
		SELECT r.id, r.user_id, r.food_id, r.order_item_id, r.content, r.rating,
		       r.images, r.option_item_names, r.created_at, u.full_name
		FROM ratings r
		JOIN users u ON u.id = r.user_id` + where +
		fmt.Sprintf(" ORDER BY %s, r.id LIMIT $%d OFFSET $%d", orderBy, n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("query ratings failed", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var out []Rating
	for rows.Next() {
		var rt Rating
		if err := rows.Scan(
			&rt.ID, &rt.UserID, &rt.MenuItemID, &rt.OrderItemID, &rt.Content, &rt.Rating,
			pq.Array(&rt.Images), pq.Array(&rt.OptionItemNames), &rt.CreatedAt, &rt.ReviewerName,
		); err != nil {
			log.Error("scan rating failed", zap.Error(err))
			return nil, 0, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
