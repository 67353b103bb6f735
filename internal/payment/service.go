package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"foodhub-be/internal/db"
	"foodhub-be/internal/events"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/metrics"
	"foodhub-be/internal/order"
	"foodhub-be/internal/revenue"
	"foodhub-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"
)

const (
	eventCheckoutCompleted = "checkout.session.completed"
	defaultPageSize        = 10
	maxPageSize            = 100
)

// Orders is the slice of the order service payments depend on.
type Orders interface {
	Load(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetOrder(ctx context.Context, caller utils.Identity, id uuid.UUID) (*order.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service interface {
	CreatePayment(ctx context.Context, o *order.Order, payerEmail string) (*PayResponse, error)
	Repay(ctx context.Context, caller utils.Identity, orderID uuid.UUID) (*PayResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
	GetAllPayments(ctx context.Context, caller utils.Identity, q ListQuery) (*PagedResult, error)
	DeletePayment(ctx context.Context, caller utils.Identity, id uuid.UUID) error
}

type Deps struct {
	Repo    Repository
	Orders  Orders
	Gateway Gateway
	Tx      db.Transactor
	Events  events.Publisher
	Stats   *metrics.WebhookStats
}

type service struct {
	repo    Repository
	orders  Orders
	gateway Gateway
	tx      db.Transactor
	events  events.Publisher
	stats   *metrics.WebhookStats
	now     func() time.Time
}

func NewService(d Deps) Service {
	s := &service{
		repo:    d.Repo,
		orders:  d.Orders,
		gateway: d.Gateway,
		tx:      d.Tx,
		events:  d.Events,
		stats:   d.Stats,
		now:     time.Now,
	}
	if s.events == nil {
		s.events = events.NoopPublisher{}
	}
	if s.stats == nil {
		s.stats = &metrics.WebhookStats{}
	}
	return s
}

// CreatePayment opens a checkout session and records the pending attempt.
// No row is written unless the provider accepted the session.
func (s *service) CreatePayment(ctx context.Context, o *order.Order, payerEmail string) (*PayResponse, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreatePayment"),
		zap.String("order_id", o.ID.String()),
	)

	if o.PayStatus == order.PaySuccess {
		return nil, ErrAlreadyPaid
	}

	lines := checkoutLines(o)
	sess, err := s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		OrderID: o.ID,
		Email:   payerEmail,
		Lines:   lines,
	})
	if err != nil {
		return nil, err
	}

	amount := chargedAmount(sess, lines)
	if !amount.Equal(o.Total) {
		log.Warn("checkout total differs from order total",
			zap.String("order_total", o.Total.String()),
			zap.String("charged", amount.String()),
		)
	}

	p := &Payment{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Amount:        amount,
		PaymentMethod: string(order.PaymentStripe),
		Status:        StatusFailed,
		TransactionID: sess.ID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	log.Info("payment initiated",
		zap.String("payment_id", p.ID.String()),
		zap.String("transaction_id", sess.ID),
	)
	return &PayResponse{PayURL: sess.URL}, nil
}

// checkoutLines prices each line at unit price plus its per-unit share of
// the option surcharge. Shipping is a separate line when non-zero.
func checkoutLines(o *order.Order) []CheckoutLine {
	lines := make([]CheckoutLine, 0, len(o.Items)+1)
	for _, it := range o.Items {
		unit := it.UnitPrice
		if it.Quantity > 0 {
			unit = unit.Add(it.OptionsPrice.Div(decimal.NewFromInt(int64(it.Quantity))))
		}

		line := CheckoutLine{
			Name:       it.MenuItemName,
			Image:      it.Avatar,
			UnitAmount: toMinorUnits(unit),
			Quantity:   int64(it.Quantity),
		}
		if len(it.Options) > 0 {
			names := make([]string, len(it.Options))
			for i, op := range it.Options {
				names[i] = op.OptionItemName
			}
			line.Description = "Options: " + strings.Join(names, ", ")
		}
		lines = append(lines, line)
	}

	if o.ShippingFee.IsPositive() {
		lines = append(lines, CheckoutLine{
			Name:       "Shipping Fee",
			UnitAmount: toMinorUnits(o.ShippingFee),
			Quantity:   1,
		})
	}
	return lines
}

// chargedAmount is what the provider collects. Rounding each per-unit option
// share to cents can move it off the order total.
func chargedAmount(sess *CheckoutSession, lines []CheckoutLine) decimal.Decimal {
	minor := sess.AmountTotal
	if minor <= 0 {
		for _, l := range lines {
			minor += l.UnitAmount * l.Quantity
		}
	}
	return fromMinorUnits(minor)
}

func (s *service) Repay(ctx context.Context, caller utils.Identity, orderID uuid.UUID) (*PayResponse, error) {
	o, err := s.orders.GetOrder(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if o.PayStatus == order.PaySuccess {
		logger.FromCtx(ctx).Warn("repay rejected: order already paid",
			zap.String("layer", "service"),
			zap.String("order_id", orderID.String()),
		)
		return nil, ErrAlreadyPaid
	}
	return s.CreatePayment(ctx, o, caller.Email)
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "HandleWebhook"),
	)

	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.stats.Rejected.Inc()
		log.Warn("webhook rejected", zap.Error(err))
		return nil, err
	}
	s.stats.Received.Inc()

	eventType := string(evt.Type)
	log = log.With(zap.String("event_id", evt.ID), zap.String("event_type", eventType))

	var sess stripe.CheckoutSession
	if eventType == eventCheckoutCompleted {
		if evt.Data == nil || json.Unmarshal(evt.Data.Raw, &sess) != nil || sess.ID == "" {
			s.stats.Failed.Inc()
			log.Warn("checkout session payload unreadable")
			return nil, ErrInvalidPayload
		}
	}

	webhookID, processed, err := s.repo.RecordWebhook(ctx, WebhookEvent{
		Provider:      ProviderStripe,
		EventID:       evt.ID,
		EventType:     eventType,
		TransactionID: sess.ID,
		Payload:       payload,
	})
	if err != nil {
		s.stats.Failed.Inc()
		return nil, err
	}
	if processed {
		s.stats.Duplicate.Inc()
		log.Info("webhook already processed")
		return &WebhookResult{Success: true, Message: "event already processed"}, nil
	}

	if eventType != eventCheckoutCompleted {
		s.markProcessed(ctx, webhookID)
		s.stats.Unhandled.Inc()
		return &WebhookResult{Success: false, Message: fmt.Sprintf("unhandled event type %s", eventType)}, nil
	}

	res, err := s.reconcile(ctx, &sess)
	if err != nil {
		s.stats.Failed.Inc()
		log.Error("webhook reconciliation failed", zap.Error(err))
		if mErr := s.repo.MarkWebhookFailed(ctx, webhookID, err.Error()); mErr != nil {
			log.Error("failed to record webhook failure", zap.Error(mErr))
		}
		return nil, err
	}

	s.markProcessed(ctx, webhookID)
	s.stats.Processed.Inc()
	return res, nil
}

// reconcile settles the payment and its order in one transaction. Both
// updates are conditional, so a replayed event changes nothing.
func (s *service) reconcile(ctx context.Context, sess *stripe.CheckoutSession) (*WebhookResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "reconcile"),
		zap.String("transaction_id", sess.ID),
	)

	orderID, err := correlatedOrderID(sess)
	if err != nil {
		return nil, err
	}

	var (
		p       *Payment
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, changed, err = s.repo.MarkSucceeded(ctx, sess.ID, s.now())
		if err != nil {
			return err
		}
		if orderID == uuid.Nil {
			orderID = p.OrderID
		}
		_, err = s.orders.MarkPaid(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		log.Info("payment already settled")
		return &WebhookResult{Success: true, Message: "payment already settled"}, nil
	}

	log.Info("payment settled", zap.String("order_id", orderID.String()))
	events.Emit(ctx, s.events, events.New(events.PaymentSucceeded, orderID.String(), map[string]any{
		"paymentId":     p.ID,
		"orderId":       orderID,
		"transactionId": p.TransactionID,
		"amount":        p.Amount,
	}))
	return &WebhookResult{Success: true, Message: "payment succeeded"}, nil
}

// correlatedOrderID reads the order id carried by the session. Nil means the
// session carries none and the payment row decides.
func correlatedOrderID(sess *stripe.CheckoutSession) (uuid.UUID, error) {
	ref := sess.ClientReferenceID
	if ref == "" {
		ref = sess.Metadata["OrderId"]
	}
	if ref == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: order reference %q", ErrInvalidPayload, ref)
	}
	return id, nil
}

func (s *service) markProcessed(ctx context.Context, webhookID int64) {
	if err := s.repo.MarkWebhookProcessed(ctx, webhookID); err != nil {
		logger.FromCtx(ctx).Error("failed to mark webhook processed",
			zap.Int64("webhook_id", webhookID),
			zap.Error(err),
		)
	}
}

var paymentSorts = map[string]string{
	"amount_asc":  "amount ASC",
	"amount_desc": "amount DESC",
	"paidat_asc":  "paid_at ASC NULLS LAST",
	"paidat_desc": "paid_at DESC NULLS LAST",
}

// GetAllPayments scopes customers to their own payments. Only admins may
// filter by method, status and date range.
func (s *service) GetAllPayments(ctx context.Context, caller utils.Identity, q ListQuery) (*PagedResult, error) {
	if caller.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	page, limit := q.Page, q.Limit
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	f := ListFilter{
		Limit:  limit,
		Offset: page * limit,
	}
	if clause, ok := paymentSorts[strings.ToLower(strings.TrimSpace(q.Sort))]; ok {
		f.OrderBy = clause
	}

	if !caller.IsAdmin() {
		userID := caller.UserID
		f.UserID = &userID
	} else {
		if q.PaymentMethod != "" {
			pm, ok := order.ParsePaymentMethod(q.PaymentMethod)
			if !ok {
				return nil, fmt.Errorf("%w: payment method %q", ErrInvalidFilter, q.PaymentMethod)
			}
			f.PaymentMethod = string(pm)
		}
		if q.Status != "" {
			st, ok := parseStatus(q.Status)
			if !ok {
				return nil, fmt.Errorf("%w: status %q", ErrInvalidFilter, q.Status)
			}
			f.Status = st
		}
		from, to := utils.DayRange(q.From, q.To, revenue.DefaultWindow, s.now())
		if !from.IsZero() {
			f.From = &from
		}
		f.To = &to
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return newPagedResult(items, total, page, limit), nil
}

func parseStatus(raw string) (Status, bool) {
	for _, st := range []Status{StatusFailed, StatusSuccess} {
		if strings.EqualFold(strings.TrimSpace(raw), string(st)) {
			return st, true
		}
	}
	return "", false
}

func (s *service) DeletePayment(ctx context.Context, caller utils.Identity, id uuid.UUID) error {
	if caller.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	if !caller.IsAdmin() {
		return ErrAdminOnly
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("payment deleted",
		zap.String("layer", "service"),
		zap.String("payment_id", id.String()),
	)
	return nil
}
