package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"foodhub-be/internal/order"
	"foodhub-be/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) HandleWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookResult), args.Error(1)
}

func newWebhookRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewBufferString(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	return req
}

func TestHandler_PaymentWebhookHandler(t *testing.T) {
	const body = `{"id":"evt_1","type":"checkout.session.completed"}`

	t.Run("Success", func(t *testing.T) {
		proc := new(MockProcessor)
		h := NewWebhookHandler(proc)
		proc.On("HandleWebhook", mock.Anything, []byte(body), "t=1,v1=abc").
			Return(&payment.WebhookResult{Success: true, Message: "payment succeeded"}, nil).Once()

		w := httptest.NewRecorder()
		h.PaymentWebhookHandler(w, newWebhookRequest(body, "t=1,v1=abc"))

		assert.Equal(t, http.StatusOK, w.Code)
		var res payment.WebhookResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.True(t, res.Success)
		assert.Equal(t, "payment succeeded", res.Message)
		proc.AssertExpectations(t)
	})

	t.Run("UnhandledTypeIsStillAcknowledged", func(t *testing.T) {
		proc := new(MockProcessor)
		h := NewWebhookHandler(proc)
		proc.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything).
			Return(&payment.WebhookResult{Success: false, Message: "unhandled event type charge.refunded"}, nil)

		w := httptest.NewRecorder()
		h.PaymentWebhookHandler(w, newWebhookRequest(body, "sig"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	})

	t.Run("MissingSignature", func(t *testing.T) {
		proc := new(MockProcessor)
		h := NewWebhookHandler(proc)

		w := httptest.NewRecorder()
		h.PaymentWebhookHandler(w, newWebhookRequest(body, ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		proc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		proc := new(MockProcessor)
		h := NewWebhookHandler(proc)

		w := httptest.NewRecorder()
		h.PaymentWebhookHandler(w, newWebhookRequest("", "sig"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		proc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("BodyTooLarge", func(t *testing.T) {
		proc := new(MockProcessor)
		h := NewWebhookHandler(proc)

		w := httptest.NewRecorder()
		h.PaymentWebhookHandler(w, newWebhookRequest(strings.Repeat("x", maxBodyBytes+1), "sig"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		proc := new(MockProcessor)
		h := NewWebhookHandler(proc)
		proc.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, payment.ErrInvalidSignature)

		w := httptest.NewRecorder()
		h.PaymentWebhookHandler(w, newWebhookRequest(body, "bad"))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "invalid webhook signature")
	})

	t.Run("MissingOrderIsRetriable", func(t *testing.T) {
		proc := new(MockProcessor)
		h := NewWebhookHandler(proc)
		proc.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, order.ErrOrderNotFound)

		w := httptest.NewRecorder()
		h.PaymentWebhookHandler(w, newWebhookRequest(body, "sig"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
