package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"foodhub-be/internal/apperror"
	"foodhub-be/internal/events"
	"foodhub-be/internal/metrics"
	"foodhub-be/internal/order"
	"foodhub-be/internal/revenue"
	"foodhub-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) MarkSucceeded(ctx context.Context, transactionID string, paidAt time.Time) (*Payment, bool, error) {
	args := m.Called(ctx, transactionID, paidAt)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*Payment), args.Bool(1), args.Error(2)
}

func (m *MockRepository) List(ctx context.Context, f ListFilter) ([]Payment, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]Payment), args.Int(1), args.Error(2)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) RecordWebhook(ctx context.Context, evt WebhookEvent) (int64, bool, error) {
	args := m.Called(ctx, evt)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockRepository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	return m.Called(ctx, webhookID).Error(0)
}

func (m *MockRepository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	return m.Called(ctx, webhookID, reason).Error(0)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Load(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) GetOrder(ctx context.Context, caller utils.Identity, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type paymentHarness struct {
	svc      *service
	repo     *MockRepository
	orders   *MockOrders
	sessions *fakeSessions
	pub      *recordingPublisher
	stats    *metrics.WebhookStats
}

func newPaymentHarness(t *testing.T) *paymentHarness {
	h := &paymentHarness{
		repo:     new(MockRepository),
		orders:   new(MockOrders),
		sessions: &fakeSessions{result: &stripe.CheckoutSession{ID: "cs_new", URL: "https://checkout.stripe.test/cs_new"}},
		pub:      &recordingPublisher{},
		stats:    &metrics.WebhookStats{},
	}
	h.svc = NewService(Deps{
		Repo:    h.repo,
		Orders:  h.orders,
		Gateway: newTestGateway(t, h.sessions),
		Tx:      inlineTx{},
		Events:  h.pub,
		Stats:   h.stats,
	}).(*service)
	return h
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func unpaidOrder() *order.Order {
	id := uuid.New()
	return &order.Order{
		ID:            id,
		UserID:        uuid.New(),
		PaymentMethod: order.PaymentStripe,
		PayStatus:     order.PayFailed,
		ShippingFee:   dec("2"),
		SubTotal:      dec("21"),
		Total:         dec("23"),
		Items: []order.OrderItem{
			{
				MenuItemName: "Pho", Avatar: "pho.png", Quantity: 2,
				UnitPrice: dec("5"), OptionsPrice: dec("1"), TotalPrice: dec("11"),
				Options: []order.OrderItemOption{{OptionGroupName: "Size", OptionItemName: "Large", AdditionalPrice: dec("1")}},
			},
			{MenuItemName: "Bun Cha", Quantity: 1, UnitPrice: dec("10"), TotalPrice: dec("10")},
		},
	}
}

func TestCheckoutLines(t *testing.T) {
	o := unpaidOrder()

	lines := checkoutLines(o)
	require.Len(t, lines, 3)

	assert.Equal(t, int64(550), lines[0].UnitAmount)
	assert.Equal(t, int64(2), lines[0].Quantity)
	assert.Equal(t, "Options: Large", lines[0].Description)
	assert.Equal(t, "pho.png", lines[0].Image)

	assert.Equal(t, int64(1000), lines[1].UnitAmount)
	assert.Empty(t, lines[1].Description)

	assert.Equal(t, "Shipping Fee", lines[2].Name)
	assert.Equal(t, int64(200), lines[2].UnitAmount)

	var charged int64
	for _, l := range lines {
		charged += l.UnitAmount * l.Quantity
	}
	assert.Equal(t, toMinorUnits(o.Total), charged)

	o.ShippingFee = decimal.Zero
	assert.Len(t, checkoutLines(o), 2)
}

func TestService_CreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newPaymentHarness(t)
		o := unpaidOrder()

		h.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
			return p.OrderID == o.ID &&
				p.UserID == o.UserID &&
				p.TransactionID == "cs_new" &&
				p.Status == StatusFailed &&
				p.PaymentMethod == "stripe" &&
				p.Amount.Equal(dec("23"))
		})).Return(nil).Once()

		res, err := h.svc.CreatePayment(ctx, o, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.test/cs_new", res.PayURL)
		assert.Len(t, h.sessions.params.LineItems, 3)
		h.repo.AssertExpectations(t)
	})

	t.Run("Option share rounding records the charged amount", func(t *testing.T) {
		h := newPaymentHarness(t)
		o := unpaidOrder()
		o.ShippingFee = decimal.Zero
		o.SubTotal, o.Total = dec("16"), dec("16")
		o.Items = []order.OrderItem{{
			MenuItemName: "Pho", Quantity: 3,
			UnitPrice: dec("5"), OptionsPrice: dec("1"), TotalPrice: dec("16"),
		}}

		h.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
			return p.Amount.Equal(dec("15.99"))
		})).Return(nil).Once()

		_, err := h.svc.CreatePayment(ctx, o, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(533), *h.sessions.params.LineItems[0].PriceData.UnitAmount)
		h.repo.AssertExpectations(t)
	})

	t.Run("Provider total wins when reported", func(t *testing.T) {
		h := newPaymentHarness(t)
		h.sessions.result.AmountTotal = 2250
		o := unpaidOrder()

		h.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
			return p.Amount.Equal(dec("22.5"))
		})).Return(nil).Once()

		_, err := h.svc.CreatePayment(ctx, o, "jane@example.com")
		require.NoError(t, err)
		h.repo.AssertExpectations(t)
	})

	t.Run("AlreadyPaid", func(t *testing.T) {
		h := newPaymentHarness(t)
		o := unpaidOrder()
		o.PayStatus = order.PaySuccess

		_, err := h.svc.CreatePayment(ctx, o, "jane@example.com")
		assert.ErrorIs(t, err, ErrAlreadyPaid)
		assert.Zero(t, h.sessions.calls)
	})

	t.Run("GatewayFailure leaves no payment row", func(t *testing.T) {
		h := newPaymentHarness(t)
		h.sessions.err = assert.AnError

		_, err := h.svc.CreatePayment(ctx, unpaidOrder(), "jane@example.com")
		assert.ErrorIs(t, err, apperror.ErrUpstream)
		h.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_Repay(t *testing.T) {
	ctx := context.Background()
	caller := utils.Identity{UserID: uuid.New(), Email: "jane@example.com", Role: utils.RoleCustomer}

	t.Run("PaidOrder", func(t *testing.T) {
		h := newPaymentHarness(t)
		o := unpaidOrder()
		o.PayStatus = order.PaySuccess
		h.orders.On("GetOrder", mock.Anything, caller, o.ID).Return(o, nil)

		_, err := h.svc.Repay(ctx, caller, o.ID)
		assert.ErrorIs(t, err, ErrAlreadyPaid)
		assert.ErrorIs(t, err, apperror.ErrInvalidState)
		assert.Zero(t, h.sessions.calls)
		h.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("UnpaidOrder", func(t *testing.T) {
		h := newPaymentHarness(t)
		o := unpaidOrder()
		h.orders.On("GetOrder", mock.Anything, caller, o.ID).Return(o, nil)
		h.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		res, err := h.svc.Repay(ctx, caller, o.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, res.PayURL)
		assert.Equal(t, "jane@example.com", *h.sessions.params.CustomerEmail)
	})

	t.Run("NotVisible", func(t *testing.T) {
		h := newPaymentHarness(t)
		id := uuid.New()
		h.orders.On("GetOrder", mock.Anything, caller, id).Return(nil, order.ErrOrderNotFound)

		_, err := h.svc.Repay(ctx, caller, id)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestService_HandleWebhook(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	recordArgs := func(eventID, eventType, txID string) any {
		return mock.MatchedBy(func(e WebhookEvent) bool {
			return e.Provider == "stripe" && e.EventID == eventID && e.EventType == eventType && e.TransactionID == txID
		})
	}

	t.Run("InvalidSignature is rejected before any write", func(t *testing.T) {
		h := newPaymentHarness(t)
		body, _ := signedEvent("evt_1", eventCheckoutCompleted, "cs_1", orderID.String())

		_, err := h.svc.HandleWebhook(ctx, body, "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, ErrInvalidSignature)
		h.repo.AssertNotCalled(t, "RecordWebhook", mock.Anything, mock.Anything)
		h.repo.AssertNotCalled(t, "MarkSucceeded", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, uint64(1), h.stats.Rejected.Load())
	})

	t.Run("CompletedSettlesPaymentAndOrder", func(t *testing.T) {
		h := newPaymentHarness(t)
		body, header := signedEvent("evt_1", eventCheckoutCompleted, "cs_1", orderID.String())
		paid := &Payment{ID: uuid.New(), OrderID: orderID, TransactionID: "cs_1", Amount: dec("23"), Status: StatusSuccess}

		h.repo.On("RecordWebhook", mock.Anything, recordArgs("evt_1", eventCheckoutCompleted, "cs_1")).Return(int64(1), false, nil).Once()
		h.repo.On("MarkSucceeded", mock.Anything, "cs_1", mock.Anything).Return(paid, true, nil).Once()
		h.orders.On("MarkPaid", mock.Anything, orderID).Return(true, nil).Once()
		h.repo.On("MarkWebhookProcessed", mock.Anything, int64(1)).Return(nil).Once()

		res, err := h.svc.HandleWebhook(ctx, body, header)
		require.NoError(t, err)
		assert.True(t, res.Success)

		h.repo.AssertExpectations(t)
		h.orders.AssertExpectations(t)
		require.Len(t, h.pub.events, 1)
		assert.Equal(t, events.PaymentSucceeded, h.pub.events[0].Type)
		assert.Equal(t, uint64(1), h.stats.Processed.Load())
	})

	t.Run("ReplayedEventIsAcknowledged", func(t *testing.T) {
		h := newPaymentHarness(t)
		body, header := signedEvent("evt_1", eventCheckoutCompleted, "cs_1", orderID.String())
		h.repo.On("RecordWebhook", mock.Anything, mock.Anything).Return(int64(1), true, nil).Once()

		res, err := h.svc.HandleWebhook(ctx, body, header)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "event already processed", res.Message)
		h.repo.AssertNotCalled(t, "MarkSucceeded", mock.Anything, mock.Anything, mock.Anything)
		h.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
		assert.Equal(t, uint64(1), h.stats.Duplicate.Load())
	})

	t.Run("SettledPaymentIsNotReapplied", func(t *testing.T) {
		h := newPaymentHarness(t)
		body, header := signedEvent("evt_2", eventCheckoutCompleted, "cs_1", orderID.String())
		settled := &Payment{ID: uuid.New(), OrderID: orderID, TransactionID: "cs_1", Status: StatusSuccess}

		h.repo.On("RecordWebhook", mock.Anything, mock.Anything).Return(int64(2), false, nil)
		h.repo.On("MarkSucceeded", mock.Anything, "cs_1", mock.Anything).Return(settled, false, nil)
		h.orders.On("MarkPaid", mock.Anything, orderID).Return(false, nil)
		h.repo.On("MarkWebhookProcessed", mock.Anything, int64(2)).Return(nil)

		res, err := h.svc.HandleWebhook(ctx, body, header)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "payment already settled", res.Message)
		assert.Empty(t, h.pub.events)
	})

	t.Run("UnknownPayment", func(t *testing.T) {
		h := newPaymentHarness(t)
		body, header := signedEvent("evt_3", eventCheckoutCompleted, "cs_forged", orderID.String())

		h.repo.On("RecordWebhook", mock.Anything, mock.Anything).Return(int64(3), false, nil)
		h.repo.On("MarkSucceeded", mock.Anything, "cs_forged", mock.Anything).Return(nil, false, ErrPaymentNotFound)
		h.repo.On("MarkWebhookFailed", mock.Anything, int64(3), mock.AnythingOfType("string")).Return(nil).Once()

		_, err := h.svc.HandleWebhook(ctx, body, header)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		h.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
		h.repo.AssertExpectations(t)
		assert.Equal(t, uint64(1), h.stats.Failed.Load())
	})

	t.Run("MissingOrder", func(t *testing.T) {
		h := newPaymentHarness(t)
		body, header := signedEvent("evt_4", eventCheckoutCompleted, "cs_1", orderID.String())

		h.repo.On("RecordWebhook", mock.Anything, mock.Anything).Return(int64(4), false, nil)
		h.repo.On("MarkSucceeded", mock.Anything, "cs_1", mock.Anything).Return(&Payment{OrderID: orderID}, true, nil)
		h.orders.On("MarkPaid", mock.Anything, orderID).Return(false, order.ErrOrderNotFound)
		h.repo.On("MarkWebhookFailed", mock.Anything, int64(4), mock.Anything).Return(nil)

		_, err := h.svc.HandleWebhook(ctx, body, header)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
		h.repo.AssertNotCalled(t, "MarkWebhookProcessed", mock.Anything, mock.Anything)
		assert.Empty(t, h.pub.events)
	})

	t.Run("UnhandledEventType", func(t *testing.T) {
		h := newPaymentHarness(t)
		body, header := signedEvent("evt_5", "charge.refunded", "ch_1", "")

		h.repo.On("RecordWebhook", mock.Anything, recordArgs("evt_5", "charge.refunded", "")).Return(int64(5), false, nil)
		h.repo.On("MarkWebhookProcessed", mock.Anything, int64(5)).Return(nil).Once()

		res, err := h.svc.HandleWebhook(ctx, body, header)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "unhandled event type charge.refunded", res.Message)
		h.repo.AssertExpectations(t)
		assert.Equal(t, uint64(1), h.stats.Unhandled.Load())
	})

	t.Run("BadOrderReference", func(t *testing.T) {
		h := newPaymentHarness(t)
		body, header := signedEvent("evt_6", eventCheckoutCompleted, "cs_1", "not-a-uuid")

		h.repo.On("RecordWebhook", mock.Anything, mock.Anything).Return(int64(6), false, nil)
		h.repo.On("MarkWebhookFailed", mock.Anything, int64(6), mock.Anything).Return(nil)

		_, err := h.svc.HandleWebhook(ctx, body, header)
		assert.ErrorIs(t, err, ErrInvalidPayload)
		h.repo.AssertNotCalled(t, "MarkSucceeded", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_GetAllPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("CustomerIsScopedAndFiltersIgnored", func(t *testing.T) {
		h := newPaymentHarness(t)
		caller := utils.Identity{UserID: uuid.New(), Role: utils.RoleCustomer}

		var got ListFilter
		h.repo.On("List", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(ListFilter) }).
			Return([]Payment{{ID: uuid.New()}}, 1, nil)

		res, err := h.svc.GetAllPayments(ctx, caller, ListQuery{Status: "Success", PaymentMethod: "cod", Sort: "amount_desc"})
		require.NoError(t, err)
		require.NotNil(t, got.UserID)
		assert.Equal(t, caller.UserID, *got.UserID)
		assert.Empty(t, got.Status)
		assert.Empty(t, got.PaymentMethod)
		assert.Nil(t, got.From)
		assert.Equal(t, "amount DESC", got.OrderBy)
		assert.Equal(t, defaultPageSize, got.Limit)
		assert.Equal(t, 1, res.TotalCount)
	})

	t.Run("AdminFilters", func(t *testing.T) {
		h := newPaymentHarness(t)
		now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		h.svc.now = func() time.Time { return now }

		var got ListFilter
		h.repo.On("List", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(ListFilter) }).
			Return(nil, 0, nil)

		res, err := h.svc.GetAllPayments(ctx, utils.Identity{UserID: uuid.New(), Role: "admin"}, ListQuery{
			Status: "success", PaymentMethod: "STRIPE", Sort: "paidAt_desc", Page: 2, Limit: 20,
		})
		require.NoError(t, err)
		assert.Nil(t, got.UserID)
		assert.Equal(t, StatusSuccess, got.Status)
		assert.Equal(t, "stripe", got.PaymentMethod)
		assert.Equal(t, "paid_at DESC NULLS LAST", got.OrderBy)
		assert.Equal(t, now.Add(-revenue.DefaultWindow), *got.From)
		assert.Equal(t, 40, got.Offset)
		assert.NotNil(t, res.Items)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		h := newPaymentHarness(t)
		_, err := h.svc.GetAllPayments(ctx, utils.Identity{UserID: uuid.New(), Role: "admin"}, ListQuery{Status: "Pending"})
		assert.ErrorIs(t, err, ErrInvalidFilter)
	})

	t.Run("Anonymous", func(t *testing.T) {
		h := newPaymentHarness(t)
		_, err := h.svc.GetAllPayments(ctx, utils.Identity{}, ListQuery{})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestService_DeletePayment(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	adminCaller := utils.Identity{UserID: uuid.New(), Role: "admin"}

	t.Run("Customer", func(t *testing.T) {
		h := newPaymentHarness(t)
		err := h.svc.DeletePayment(ctx, utils.Identity{UserID: uuid.New(), Role: "customer"}, id)
		assert.ErrorIs(t, err, ErrAdminOnly)
		h.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("Admin", func(t *testing.T) {
		h := newPaymentHarness(t)
		h.repo.On("Delete", mock.Anything, id).Return(nil).Once()
		assert.NoError(t, h.svc.DeletePayment(ctx, adminCaller, id))
	})

	t.Run("NotFound", func(t *testing.T) {
		h := newPaymentHarness(t)
		h.repo.On("Delete", mock.Anything, id).Return(ErrPaymentNotFound)
		assert.ErrorIs(t, h.svc.DeletePayment(ctx, adminCaller, id), ErrPaymentNotFound)
	})
}
