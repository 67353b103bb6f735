package webhook

import (
	"context"
	"io"
	"net/http"

	"foodhub-be/internal/apperror"
	"foodhub-be/internal/httpx"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/metrics"
	"foodhub-be/internal/payment"

	"go.uber.org/zap"
)

const (
	signatureHeader = "Stripe-Signature"
	maxBodyBytes    = 64 << 10
)

var (
	errMissingSignature = apperror.New(apperror.ErrValidation, "missing Stripe-Signature header")
	errEmptyBody        = apperror.New(apperror.ErrValidation, "empty webhook body")
	errBodyTooLarge     = apperror.New(apperror.ErrValidation, "webhook body too large")
)

// Processor is the payment service method the handler drives.
type Processor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookResult, error)
}

type Handler struct {
	payments Processor
}

func NewWebhookHandler(payments Processor) *Handler {
	return &Handler{payments: payments}
}

// PaymentWebhookHandler hands the raw body to the payment service untouched,
// since the signature covers the exact bytes Stripe sent.
func (h *Handler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	timer := metrics.StartTimer()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "webhook"),
		zap.String("method", "PaymentWebhookHandler"),
	)

	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		log.Warn("webhook without signature")
		httpx.RespondError(ctx, w, errMissingSignature)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	if err != nil {
		log.Warn("failed to read webhook body", zap.Error(err))
		httpx.RespondError(ctx, w, errBodyTooLarge)
		return
	}
	if len(body) == 0 {
		httpx.RespondError(ctx, w, errEmptyBody)
		return
	}

	res, err := h.payments.HandleWebhook(ctx, body, signature)
	if err != nil {
		log.Warn("webhook not acknowledged",
			zap.Error(err),
			zap.Duration("duration", timer.Duration()),
		)
		httpx.RespondError(ctx, w, err)
		return
	}

	log.Info("webhook acknowledged",
		zap.Bool("success", res.Success),
		zap.String("message", res.Message),
		zap.Duration("duration", timer.Duration()),
	)
	httpx.WriteJSON(w, http.StatusOK, res)
}
