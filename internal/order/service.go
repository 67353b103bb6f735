package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"foodhub-be/internal/address"
	"foodhub-be/internal/catalog"
	"foodhub-be/internal/db"
	"foodhub-be/internal/events"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/revenue"
	"foodhub-be/internal/user"
	"foodhub-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	CreateOrder(ctx context.Context, caller utils.Identity, req CreateOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, caller utils.Identity, id uuid.UUID) (*Order, error)
	ListUserOrders(ctx context.Context, caller utils.Identity, q UserListQuery) (*PagedResult, error)
	ListOrders(ctx context.Context, caller utils.Identity, q AdminListQuery) (*PagedResult, error)
	ListOrdersByUser(ctx context.Context, caller utils.Identity, userID uuid.UUID, q PageQuery) (*PagedResult, error)
	ListOrdersByMenuItem(ctx context.Context, caller utils.Identity, menuItemID uuid.UUID, q PageQuery) (*PagedResult, error)
	UpdateOrderStatus(ctx context.Context, caller utils.Identity, id uuid.UUID, status string) (*Order, error)

	// Load returns the hydrated order without an access check.
	Load(ctx context.Context, id uuid.UUID) (*Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
}

type Deps struct {
	Repo      Repository
	Users     user.Repository
	Addresses address.Repository

	// Catalog prices new orders and must read current rows inside the
	// order transaction.
	Catalog catalog.Repository

	// Menu serves existence checks and sold-count writes. Defaults to Catalog.
	Menu catalog.Repository

	Ledger revenue.Ledger
	Tx     db.Transactor
	Events events.Publisher
}

type service struct {
	repo      Repository
	users     user.Repository
	addresses address.Repository
	catalog   catalog.Repository
	menu      catalog.Repository
	ledger    revenue.Ledger
	tx        db.Transactor
	events    events.Publisher
	now       func() time.Time
}

func NewService(d Deps) Service {
	pub := d.Events
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	menu := d.Menu
	if menu == nil {
		menu = d.Catalog
	}
	return &service{
		repo:      d.Repo,
		users:     d.Users,
		addresses: d.Addresses,
		catalog:   d.Catalog,
		menu:      menu,
		ledger:    d.Ledger,
		tx:        d.Tx,
		events:    pub,
		now:       time.Now,
	}
}

func (s *service) CreateOrder(ctx context.Context, caller utils.Identity, req CreateOrderRequest) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int("line_count", len(req.Items)),
	)

	if caller.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if req.ShippingFee.IsNegative() {
		return nil, ErrInvalidShipping
	}
	method, ok := ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, ErrInvalidPayMethod
	}

	var created *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, caller.UserID)
		if err != nil {
			return err
		}

		addr, err := s.addresses.GetForUser(ctx, req.AddressID, u.ID)
		if err != nil {
			return err
		}

		cat, err := s.resolveCatalog(ctx, collectRefs(req.Items))
		if err != nil {
			return err
		}

		items, subtotal, err := priceLines(req.Items, cat)
		if err != nil {
			return err
		}

		o := &Order{
			UserID:          u.ID,
			FullName:        addr.FullName,
			PhoneNumber:     addr.PhoneNumber,
			FullAddress:     addr.FullAddress,
			SpecificAddress: addr.SpecificAddress,
			Note:            req.Note,
			CurrentStatus:   StatusPending,
			PaymentMethod:   method,
			PayStatus:       PayFailed,
			ShippingFee:     req.ShippingFee,
			SubTotal:        subtotal,
			Total:           subtotal.Add(req.ShippingFee),
		}
		if err := s.repo.InsertOrder(ctx, o); err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = o.ID
			if err := s.repo.InsertItem(ctx, &items[i]); err != nil {
				return err
			}
			for j := range items[i].Options {
				items[i].Options[j].OrderItemID = items[i].ID
				if err := s.repo.InsertItemOption(ctx, &items[i].Options[j]); err != nil {
					return err
				}
			}
		}

		if _, err := s.repo.AppendHistory(ctx, o.ID, StatusPending); err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		log.Warn("create order aborted", zap.Error(err))
		return nil, err
	}

	log.Info("order created",
		zap.String("order_id", created.ID.String()),
		zap.String("total", created.Total.String()),
	)

	events.Emit(ctx, s.events, events.New(events.OrderCreated, created.ID.String(), map[string]any{
		"orderId":       created.ID,
		"userId":        created.UserID,
		"total":         created.Total,
		"paymentMethod": created.PaymentMethod,
	}))

	return s.Load(ctx, created.ID)
}

// resolveCatalog loads every referenced row kind in one batch each.
func (s *service) resolveCatalog(ctx context.Context, refs catalogRefs) (resolvedCatalog, error) {
	var (
		cat resolvedCatalog
		err error
	)
	if cat.menuItems, err = s.catalog.GetMenuItems(ctx, refs.menuItems); err != nil {
		return cat, err
	}
	if cat.optionGroups, err = s.catalog.GetOptionGroups(ctx, refs.optionGroups); err != nil {
		return cat, err
	}
	if cat.options, err = s.catalog.GetOptions(ctx, refs.options); err != nil {
		return cat, err
	}
	return cat, nil
}

func (s *service) Load(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	orders := []Order{*o}
	if err := s.hydrate(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// hydrate attaches items, option snapshots and history in two batch reads.
func (s *service) hydrate(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	items, err := s.repo.GetItems(ctx, ids)
	if err != nil {
		return err
	}
	histories, err := s.repo.GetHistories(ctx, ids)
	if err != nil {
		return err
	}

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []OrderItem{}
		}
		orders[i].StatusHistories = histories[orders[i].ID]
		if orders[i].StatusHistories == nil {
			orders[i].StatusHistories = []StatusHistory{}
		}
	}
	return nil
}

// GetOrder hides orders the caller does not own behind NotFound.
func (s *service) GetOrder(ctx context.Context, caller utils.Identity, id uuid.UUID) (*Order, error) {
	if caller.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	o, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && o.UserID != caller.UserID {
		logger.FromCtx(ctx).Warn("order access denied",
			zap.String("layer", "service"),
			zap.String("order_id", id.String()),
		)
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) ListUserOrders(ctx context.Context, caller utils.Identity, q UserListQuery) (*PagedResult, error) {
	if caller.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	statuses, err := parseStatusFilter([]string{q.Status})
	if err != nil {
		return nil, err
	}
	page, limit := normalizePage(q.Page, q.Limit, defaultUserPageSize)

	userID := caller.UserID
	return s.list(ctx, ListFilter{
		UserID:   &userID,
		Keyword:  q.Keyword,
		Statuses: statuses,
		OrderBy:  resolveSort(userSorts, q.Sort, "o.order_date ASC"),
	}, page, limit)
}

func (s *service) ListOrders(ctx context.Context, caller utils.Identity, q AdminListQuery) (*PagedResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	statuses, err := parseStatusFilter(q.Statuses)
	if err != nil {
		return nil, err
	}

	var method PaymentMethod
	if q.PaymentMethod != "" && !strings.EqualFold(q.PaymentMethod, statusAll) {
		pm, ok := ParsePaymentMethod(q.PaymentMethod)
		if !ok {
			return nil, ErrInvalidPayMethod
		}
		method = pm
	}

	from, to := utils.DayRange(q.From, q.To, revenue.DefaultWindow, s.now())
	page, limit := normalizePage(q.Page, q.Limit, defaultAdminPageSize)

	f := ListFilter{
		Keyword:       q.Keyword,
		Statuses:      statuses,
		PaymentMethod: method,
		OrderBy:       resolveSort(adminSorts, q.Sort, "o.order_date DESC"),
		To:            &to,
	}
	if !from.IsZero() {
		f.From = &from
	}
	return s.list(ctx, f, page, limit)
}

func (s *service) ListOrdersByUser(ctx context.Context, caller utils.Identity, userID uuid.UUID, q PageQuery) (*PagedResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	page, limit := normalizePage(q.Page, q.Limit, defaultAdminPageSize)
	return s.list(ctx, ListFilter{UserID: &userID, OrderBy: "o.order_date DESC"}, page, limit)
}

func (s *service) ListOrdersByMenuItem(ctx context.Context, caller utils.Identity, menuItemID uuid.UUID, q PageQuery) (*PagedResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.menu.GetMenuItem(ctx, menuItemID); err != nil {
		return nil, err
	}

	page, limit := normalizePage(q.Page, q.Limit, defaultAdminPageSize)
	return s.list(ctx, ListFilter{MenuItemID: &menuItemID, OrderBy: "o.order_date DESC"}, page, limit)
}

func (s *service) list(ctx context.Context, f ListFilter, page, limit int) (*PagedResult, error) {
	f.Limit = limit
	f.Offset = page * limit

	orders, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, orders); err != nil {
		return nil, err
	}
	return NewPagedResult(orders, total, page, limit), nil
}

// UpdateOrderStatus sets any enum status. The row lock serializes concurrent
// updates; delivery effects run only on the first transition into Delivered.
func (s *service) UpdateOrderStatus(ctx context.Context, caller utils.Identity, id uuid.UUID, raw string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateOrderStatus"),
		zap.String("order_id", id.String()),
		zap.String("status", raw),
	)

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	status, ok := ParseStatus(raw)
	if !ok {
		return nil, ErrInvalidStatus
	}

	var (
		previous  Status
		delivered bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		previous = o.CurrentStatus

		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		if _, err := s.repo.AppendHistory(ctx, id, status); err != nil {
			return err
		}

		if status != StatusDelivered {
			return nil
		}
		first, err := s.repo.MarkRevenueRecorded(ctx, id)
		if err != nil {
			return err
		}
		if !first {
			log.Info("delivery effects already applied")
			return nil
		}
		delivered = true
		return s.applyDelivery(ctx, id)
	})
	if err != nil {
		log.Warn("status update aborted", zap.Error(err))
		return nil, err
	}

	log.Info("order status updated",
		zap.String("from", string(previous)),
		zap.Bool("delivery_recorded", delivered),
	)

	events.Emit(ctx, s.events, events.New(events.OrderStatusChanged, id.String(), map[string]any{
		"orderId": id,
		"from":    previous,
		"to":      status,
	}))

	return s.Load(ctx, id)
}

// applyDelivery writes the revenue rows and bumps sold counts. It runs
// inside the status transaction.
func (s *service) applyDelivery(ctx context.Context, orderID uuid.UUID) error {
	byOrder, err := s.repo.GetItems(ctx, []uuid.UUID{orderID})
	if err != nil {
		return err
	}
	items := byOrder[orderID]

	lines := make([]revenue.Line, len(items))
	for i, it := range items {
		lines[i] = revenue.Line{
			OrderID:     orderID,
			OrderItemID: it.ID,
			MenuItemID:  it.MenuItemID,
			UnitPrice:   it.UnitPrice,
			CostPrice:   it.CostPrice,
			Quantity:    it.Quantity,
		}
	}
	if _, err := s.ledger.RecordDelivery(ctx, lines); err != nil {
		return err
	}

	for _, it := range items {
		err := s.menu.IncrementSoldCount(ctx, it.MenuItemID, it.Quantity)
		if errors.Is(err, catalog.ErrMenuItemNotFound) {
			// the menu item was removed after the order was placed
			logger.FromCtx(ctx).Warn("sold count skipped",
				zap.String("menu_item_id", it.MenuItemID.String()),
			)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.MarkPaid(ctx, id)
}

func requireAdmin(caller utils.Identity) error {
	if caller.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	if !caller.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}
