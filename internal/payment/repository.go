package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	// MarkSucceeded settles the payment once. The bool reports whether this call did it.
	MarkSucceeded(ctx context.Context, transactionID string, paidAt time.Time) (*Payment, bool, error)
	List(ctx context.Context, f ListFilter) ([]Payment, int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// RecordWebhook stores a verified delivery keyed by (provider, event id).
	// processed is true when an earlier delivery of the same event completed.
	RecordWebhook(ctx context.Context, evt WebhookEvent) (webhookID int64, processed bool, err error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type ListFilter struct {
	UserID        *uuid.UUID
	PaymentMethod string
	Status        Status
	From          *time.Time
	To            *time.Time
	OrderBy       string
	Limit         int
	Offset        int
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const paymentColumns = `
	id, order_id, user_id, amount, payment_method, status,
	transaction_id, paid_at, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(s rowScanner) (*Payment, error) {
	var (
		p      Payment
		paidAt sql.NullTime
	)
	if err := s.Scan(
		&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.PaymentMethod, &p.Status,
		&p.TransactionID, &paidAt, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return &p, nil
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO payments (
			order_id, user_id, amount, payment_method, status, transaction_id
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, p.OrderID, p.UserID, p.Amount, p.PaymentMethod, p.Status, p.TransactionID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("insert payment failed",
			zap.String("repo", "Payment"),
			zap.String("order_id", p.OrderID.String()),
			zap.String("transaction_id", p.TransactionID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := scanPayment(db.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

func (r *repository) GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	p, err := scanPayment(db.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

func (r *repository) MarkSucceeded(ctx context.Context, transactionID string, paidAt time.Time) (*Payment, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Payment"),
		zap.String("method", "MarkSucceeded"),
		zap.String("transaction_id", transactionID),
	)

	p, err := scanPayment(db.Executor(ctx, r.db).QueryRowContext(ctx, `
		UPDATE payments SET status = 'Success', paid_at = $2
		WHERE transaction_id = $1 AND status <> 'Success'
		RETURNING `+paymentColumns,
		transactionID, paidAt,
	))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("update payment failed", zap.Error(err))
		return nil, false, err
	}

	// nothing updated: either unknown or already settled
	p, err = r.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			log.Warn("payment not found")
		}
		return nil, false, err
	}
	return p, false, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Payment, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Payment"),
		zap.String("method", "List"),
	)

	where := " WHERE 1=1"
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.UserID != nil {
		where += " AND user_id = " + next(*f.UserID)
	}
	if f.PaymentMethod != "" {
		where += " AND payment_method = " + next(f.PaymentMethod)
	}
	if f.Status != "" {
		where += " AND status = " + next(f.Status)
	}
	if f.From != nil {
		where += " AND created_at >= " + next(*f.From)
	}
	if f.To != nil {
		where += " AND created_at <= " + next(*f.To)
	}

	exec := db.Executor(ctx, r.db)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`+where, args...).Scan(&total); err != nil {
		log.Error("count payments failed", zap.Error(err))
		return nil, 0, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	n := len(args)
	query := `SELECT ` + paymentColumns + ` FROM payments` + where +
		fmt.Sprintf(" ORDER BY %s, id LIMIT $%d OFFSET $%d", orderBy, n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("query payments failed", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			log.Error("scan payment failed", zap.Error(err))
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		logger.FromCtx(ctx).Error("delete payment failed",
			zap.String("repo", "Payment"),
			zap.String("payment_id", id.String()),
			zap.Error(err),
		)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *repository) RecordWebhook(ctx context.Context, evt WebhookEvent) (int64, bool, error) {
	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		transaction_id,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET attempts = payment_webhooks.attempts + 1
	RETURNING id, processed_at IS NOT NULL
	`

	var (
		id        int64
		processed bool
	)
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, q,
		evt.Provider,
		evt.EventID,
		evt.EventType,
		evt.TransactionID,
		string(evt.Payload),
	).Scan(&id, &processed)
	if err != nil {
		logger.FromCtx(ctx).Error("record webhook failed",
			zap.String("repo", "Payment"),
			zap.String("event_id", evt.EventID),
			zap.Error(err),
		)
		return 0, false, err
	}
	return id, processed, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	const q = `
	UPDATE payment_webhooks
	SET processed_at = now(), process_error = NULL
	WHERE id = $1
	`

	_, err := db.Executor(ctx, r.db).ExecContext(ctx, q, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	const q = `
	UPDATE payment_webhooks
	SET process_error = $2
	WHERE id = $1
	`

	_, err := db.Executor(ctx, r.db).ExecContext(ctx, q, webhookID, reason)
	return err
}
