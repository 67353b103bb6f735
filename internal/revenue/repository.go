package revenue

import (
	"context"
	"database/sql"
	"time"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	Sum(ctx context.Context, from, to time.Time) (*Summary, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, e *Entry) error {
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO revenue_summaries (
			order_id, order_item_id, menu_item_id,
			total_revenue, total_cost, total_profit
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, calculated_at
	`,
		e.OrderID, e.OrderItemID, e.MenuItemID,
		e.TotalRevenue, e.TotalCost, e.TotalProfit,
	).Scan(&e.ID, &e.CalculatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("insert revenue entry failed",
			zap.String("repo", "Revenue"),
			zap.String("order_item_id", e.OrderItemID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) Sum(ctx context.Context, from, to time.Time) (*Summary, error) {
	s := Summary{From: from, To: to}
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(total_revenue), 0),
			COALESCE(SUM(total_cost), 0),
			COALESCE(SUM(total_profit), 0),
			COUNT(*)
		FROM revenue_summaries
		WHERE calculated_at BETWEEN $1 AND $2
	`, from, to).Scan(&s.TotalRevenue, &s.TotalCost, &s.TotalProfit, &s.EntryCount)
	if err != nil {
		logger.FromCtx(ctx).Error("sum revenue failed",
			zap.String("repo", "Revenue"),
			zap.Error(err),
		)
		return nil, err
	}
	return &s, nil
}
