package handlers

import (
	"net/http"

	"foodhub-be/internal/httpx"
	"foodhub-be/internal/payment"

	"github.com/go-chi/chi/v5"
)

type PaymentHandlers struct {
	payments payment.Service
}

func NewPaymentHandlers(payments payment.Service) *PaymentHandlers {
	return &PaymentHandlers{payments: payments}
}

func (h *PaymentHandlers) Routes(r chi.Router, requireAuth, requireAdmin func(http.Handler) http.Handler) {
	r.With(requireAuth).Get("/", h.listPayments)
	r.With(requireAdmin).Delete("/{id}", h.deletePayment)
}

func (h *PaymentHandlers) listPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, limit, err := pageParams(r)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	q := r.URL.Query()
	res, err := h.payments.GetAllPayments(ctx, callerFrom(r), payment.ListQuery{
		PaymentMethod: q.Get("paymentMethod"),
		Status:        q.Get("status"),
		From:          from,
		To:            to,
		Sort:          q.Get("sort"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *PaymentHandlers) deletePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuidParam(r, "id")
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	if err := h.payments.DeletePayment(ctx, callerFrom(r), id); err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
