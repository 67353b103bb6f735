package handlers

import (
	"net/http"

	"foodhub-be/internal/httpx"
	"foodhub-be/internal/revenue"
)

type RevenueHandlers struct {
	ledger revenue.Ledger
}

func NewRevenueHandlers(ledger revenue.Ledger) *RevenueHandlers {
	return &RevenueHandlers{ledger: ledger}
}

// summary totals revenue, cost and profit over ?from&to, last 60 days by default.
func (h *RevenueHandlers) summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from, to, err := dateRange(r)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	sum, err := h.ledger.Summarize(ctx, from, to)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sum)
}
