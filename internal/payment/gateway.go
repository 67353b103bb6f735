package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"foodhub-be/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

const ProviderStripe = "stripe"

// CheckoutLine is one row of the hosted checkout page. UnitAmount is in
// minor currency units.
type CheckoutLine struct {
	Name        string
	Description string
	Image       string
	UnitAmount  int64
	Quantity    int64
}

type CheckoutRequest struct {
	OrderID uuid.UUID
	Email   string
	Lines   []CheckoutLine
}

type CheckoutSession struct {
	ID  string
	URL string

	// AmountTotal is the provider's total in minor units, zero when not reported.
	AmountTotal int64
}

// Gateway is the hosted-checkout provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseWebhook verifies the signature header over the raw body before decoding.
	ParseWebhook(payload []byte, signature string) (stripe.Event, error)
}

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
	Timeout       time.Duration
}

type StripeGateway struct {
	sessions      stripeSessionAPI
	webhookSecret string
	successURL    string
	cancelURL     string
	currency      string
	timeout       time.Duration
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, ErrMissingStripeKey
	}

	backends := stripe.NewBackends(&http.Client{Timeout: cfg.Timeout})
	sc := client.New(key, backends)
	return newStripeGateway(cfg, sc.CheckoutSessions)
}

func newStripeGateway(cfg StripeConfig, sessions stripeSessionAPI) (*StripeGateway, error) {
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, ErrMissingWebhookKey
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "usd"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &StripeGateway{
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		currency:      currency,
		timeout:       timeout,
	}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("order_id", req.OrderID.String()),
		zap.Int("lines", len(req.Lines)),
	)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	orderRef := req.OrderID.String()
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(g.successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(g.cancelURL + "?order_id=" + orderRef),
		ClientReferenceID:  stripe.String(orderRef),
	}
	params.Context = ctx
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Metadata = map[string]string{
		"OrderId":   orderRef,
		"UserEmail": req.Email,
	}

	params.LineItems = make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, l := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(l.Name),
		}
		if l.Description != "" {
			product.Description = stripe.String(l.Description)
		}
		if l.Image != "" {
			product.Images = stripe.StringSlice([]string{l.Image})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(l.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				UnitAmount:  stripe.Int64(l.UnitAmount),
				ProductData: product,
			},
		})
	}

	sess, err := g.sessions.New(params)
	if err != nil {
		log.Error("stripe checkout session failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	log.Info("stripe checkout session created", zap.String("session_id", sess.ID))
	return &CheckoutSession{ID: sess.ID, URL: sess.URL, AmountTotal: sess.AmountTotal}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return evt, nil
}

// toMinorUnits converts an amount to cents, rounding half away from zero.
func toMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}
