package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository persists orders and their snapshots. Every method runs on
// the transaction carried by ctx when there is one.
type Repository interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertItem(ctx context.Context, item *OrderItem) error
	InsertItemOption(ctx context.Context, opt *OrderItemOption) error
	AppendHistory(ctx context.Context, orderID uuid.UUID, status Status) (*StatusHistory, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error)
	GetHistories(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]StatusHistory, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// MarkRevenueRecorded flips the delivery flag and reports whether this call did it.
	MarkRevenueRecorded(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkPaid sets pay_status Success and reports whether this call changed it.
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
}

// ListFilter is the resolved form of every order listing.
type ListFilter struct {
	UserID        *uuid.UUID
	MenuItemID    *uuid.UUID
	Keyword       string
	Statuses      []Status
	PaymentMethod PaymentMethod
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

const orderColumns = `
	o.id, o.user_id,
	o.full_name, o.phone_number, o.full_address, o.specific_address, o.note,
	o.order_date, o.current_status, o.payment_method, o.pay_status,
	o.shipping_fee, o.sub_total, o.total
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*Order, error) {
	var (
		o    Order
		note sql.NullString
	)
	if err := s.Scan(
		&o.ID, &o.UserID,
		&o.FullName, &o.PhoneNumber, &o.FullAddress, &o.SpecificAddress, &note,
		&o.OrderDate, &o.CurrentStatus, &o.PaymentMethod, &o.PayStatus,
		&o.ShippingFee, &o.SubTotal, &o.Total,
	); err != nil {
		return nil, err
	}
	o.Note = note.String
	return &o, nil
}

func (r *repository) InsertOrder(ctx context.Context, o *Order) error {
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, full_name, phone_number, full_address, specific_address, note,
			current_status, payment_method, pay_status,
			shipping_fee, sub_total, total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, order_date
	`,
		o.UserID, o.FullName, o.PhoneNumber, o.FullAddress, o.SpecificAddress, o.Note,
		o.CurrentStatus, o.PaymentMethod, o.PayStatus,
		o.ShippingFee, o.SubTotal, o.Total,
	).Scan(&o.ID, &o.OrderDate)
	if err != nil {
		logger.FromCtx(ctx).Error("insert order failed",
			zap.String("repo", "Order"),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item *OrderItem) error {
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO order_items (
			order_id, menu_item_id, menu_item_name, avatar,
			quantity, unit_price, cost_price, options_price, total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		item.OrderID, item.MenuItemID, item.MenuItemName, item.Avatar,
		item.Quantity, item.UnitPrice, item.CostPrice, item.OptionsPrice, item.TotalPrice,
	).Scan(&item.ID)
	if err != nil {
		logger.FromCtx(ctx).Error("insert order item failed",
			zap.String("repo", "Order"),
			zap.String("order_id", item.OrderID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) InsertItemOption(ctx context.Context, opt *OrderItemOption) error {
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO order_item_options (
			order_item_id, option_group_name, option_item_name, additional_price
		) VALUES ($1, $2, $3, $4)
		RETURNING id
	`, opt.OrderItemID, opt.OptionGroupName, opt.OptionItemName, opt.AdditionalPrice).Scan(&opt.ID)
	if err != nil {
		logger.FromCtx(ctx).Error("insert order item option failed",
			zap.String("repo", "Order"),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) AppendHistory(ctx context.Context, orderID uuid.UUID, status Status) (*StatusHistory, error) {
	h := StatusHistory{OrderID: orderID, Status: status}
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO order_status_history (order_id, status)
		VALUES ($1, $2)
		RETURNING id, changed_at
	`, orderID, status).Scan(&h.ID, &h.ChangedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("append status history failed",
			zap.String("repo", "Order"),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return &h, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOne(ctx, "GetByID", `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id)
}

// LockByID reads the order with a row lock held until the surrounding
// transaction ends. Concurrent status changes on one order serialize here.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOne(ctx, "LockByID", `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id)
}

func (r *repository) getOne(ctx context.Context, method, q string, id uuid.UUID) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Order"),
		zap.String("method", method),
		zap.String("order_id", id.String()),
	)

	o, err := scanOrder(db.Executor(ctx, r.db).QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("order not found")
		return nil, ErrOrderNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	return o, nil
}

func (r *repository) GetItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	out := make(map[uuid.UUID][]OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Order"),
		zap.String("method", "GetItems"),
	)
	exec := db.Executor(ctx, r.db)

	rows, err := exec.QueryContext(ctx, `
		SELECT
			id, order_id, menu_item_id, menu_item_name, avatar,
			quantity, unit_price, cost_price, options_price, total_price, is_rated
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY seq
	`, pq.Array(utils.UUIDStrings(orderIDs)))
	if err != nil {
		log.Error("query items failed", zap.Error(err))
		return nil, err
	}

	var (
		items   []OrderItem
		itemIDs []uuid.UUID
	)
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.MenuItemID, &it.MenuItemName, &it.Avatar,
			&it.Quantity, &it.UnitPrice, &it.CostPrice, &it.OptionsPrice, &it.TotalPrice, &it.IsRated,
		); err != nil {
			rows.Close()
			log.Error("scan item failed", zap.Error(err))
			return nil, err
		}
		items = append(items, it)
		itemIDs = append(itemIDs, it.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	options, err := r.getItemOptions(ctx, exec, itemIDs)
	if err != nil {
		log.Error("query item options failed", zap.Error(err))
		return nil, err
	}

	for _, it := range items {
		it.Options = options[it.ID]
		if it.Options == nil {
			it.Options = []OrderItemOption{}
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, nil
}

func (r *repository) getItemOptions(ctx context.Context, exec db.Querier, itemIDs []uuid.UUID) (map[uuid.UUID][]OrderItemOption, error) {
	out := make(map[uuid.UUID][]OrderItemOption, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT id, order_item_id, option_group_name, option_item_name, additional_price
		FROM order_item_options
		WHERE order_item_id = ANY($1::uuid[])
		ORDER BY seq
	`, pq.Array(utils.UUIDStrings(itemIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var op OrderItemOption
		if err := rows.Scan(&op.ID, &op.OrderItemID, &op.OptionGroupName, &op.OptionItemName, &op.AdditionalPrice); err != nil {
			return nil, err
		}
		out[op.OrderItemID] = append(out[op.OrderItemID], op)
	}
	return out, rows.Err()
}

func (r *repository) GetHistories(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]StatusHistory, error) {
	out := make(map[uuid.UUID][]StatusHistory, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := db.Executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, order_id, status, changed_at
		FROM order_status_history
		WHERE order_id = ANY($1::uuid[])
		ORDER BY changed_at, id
	`, pq.Array(utils.UUIDStrings(orderIDs)))
	if err != nil {
		logger.FromCtx(ctx).Error("query status history failed",
			zap.String("repo", "Order"),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.ChangedAt); err != nil {
			return nil, err
		}
		out[h.OrderID] = append(out[h.OrderID], h)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Order"),
		zap.String("method", "List"),
		zap.Int("limit", f.Limit),
		zap.Int("offset", f.Offset),
	)

	where, args := buildWhere(f)
	exec := db.Executor(ctx, r.db)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		log.Error("count orders failed", zap.Error(err))
		return nil, 0, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "o.order_date DESC"
	}
	n := len(args)
	query := `SELECT ` + orderColumns + ` FROM orders o` + where +
		fmt.Sprintf(" ORDER BY %s, o.id LIMIT $%d OFFSET $%d", orderBy, n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	log.Debug("executing list orders query", zap.String("query", query))

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("query orders failed", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("scan order failed", zap.Error(err))
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, 0, err
	}

	return orders, total, nil
}

// buildWhere renders the filter as " WHERE ..." with positional args.
// OrderBy is not rendered here; callers only pass whitelisted clauses.
func buildWhere(f ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != nil {
		where += " AND o.user_id = " + next(*f.UserID)
	}
	if f.MenuItemID != nil {
		where += " AND EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.menu_item_id = " + next(*f.MenuItemID) + ")"
	}
	if pattern := utils.ContainsPattern(f.Keyword); pattern != "" {
		p := next(pattern)
		where += fmt.Sprintf(
			" AND (o.full_name ILIKE %[1]s OR o.phone_number ILIKE %[1]s OR o.full_address ILIKE %[1]s OR o.specific_address ILIKE %[1]s)",
			p,
		)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where += " AND o.current_status = ANY(" + next(pq.Array(statuses)) + "::order_status[])"
	}
	if f.PaymentMethod != "" {
		where += " AND o.payment_method = " + next(f.PaymentMethod)
	}
	if f.From != nil {
		where += " AND o.order_date >= " + next(*f.From)
	}
	if f.To != nil {
		where += " AND o.order_date <= " + next(*f.To)
	}
	return where, args
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET current_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		logger.FromCtx(ctx).Error("update order status failed",
			zap.String("repo", "Order"),
			zap.String("order_id", id.String()),
			zap.Error(err),
		)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) MarkRevenueRecorded(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE orders SET revenue_recorded = true
		WHERE id = $1 AND revenue_recorded = false
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	exec := db.Executor(ctx, r.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE orders SET pay_status = 'Success'
		WHERE id = $1 AND pay_status <> 'Success'
	`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrOrderNotFound
	}
	return false, nil
}
