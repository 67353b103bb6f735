package handlers

import (
	"context"
	"net/http"

	"foodhub-be/internal/httpx"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/order"
	"foodhub-be/internal/payment"
	"foodhub-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Checkout is the payment step order handlers trigger.
type Checkout interface {
	CreatePayment(ctx context.Context, o *order.Order, payerEmail string) (*payment.PayResponse, error)
	Repay(ctx context.Context, caller utils.Identity, orderID uuid.UUID) (*payment.PayResponse, error)
}

type OrderHandlers struct {
	orders   order.Service
	checkout Checkout
}

func NewOrderHandlers(orders order.Service, checkout Checkout) *OrderHandlers {
	return &OrderHandlers{orders: orders, checkout: checkout}
}

// Routes registers the /orders endpoints. Admin-only routes are guarded
// again by the service.
func (h *OrderHandlers) Routes(r chi.Router, requireAuth, requireAdmin func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.createOrder)
		r.Get("/me", h.listMyOrders)
		r.Get("/{id}", h.getOrder)
		r.Post("/{id}/repay", h.repay)
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/", h.listOrders)
		r.Get("/user/{userId}", h.listByUser)
		r.Get("/food/{foodId}", h.listByFood)
		r.Patch("/{id}", h.updateStatus)
	})
}

// createOrder answers with the order, or with the checkout URL when the
// order is paid online.
func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := callerFrom(r)

	var req order.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	o, err := h.orders.CreateOrder(ctx, caller, req)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	if o.PaymentMethod != order.PaymentStripe {
		httpx.WriteJSON(w, http.StatusCreated, o)
		return
	}

	pay, err := h.checkout.CreatePayment(ctx, o, caller.Email)
	if err != nil {
		logger.FromCtx(ctx).Warn("order created but checkout failed",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, pay)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuidParam(r, "id")
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	o, err := h.orders.GetOrder(ctx, callerFrom(r), id)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *OrderHandlers) listMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, limit, err := pageParams(r)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	q := r.URL.Query()
	res, err := h.orders.ListUserOrders(ctx, callerFrom(r), order.UserListQuery{
		Keyword: q.Get("keyword"),
		Status:  q.Get("status"),
		Sort:    q.Get("sort"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
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
	res, err := h.orders.ListOrders(ctx, callerFrom(r), order.AdminListQuery{
		Keyword:       q.Get("keyword"),
		Statuses:      queryList(r, "status"),
		PaymentMethod: q.Get("paymentMethod"),
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

func (h *OrderHandlers) listByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := uuidParam(r, "userId")
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	res, err := h.orders.ListOrdersByUser(ctx, callerFrom(r), userID, order.PageQuery{Page: page, Limit: limit})
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *OrderHandlers) listByFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	foodID, err := uuidParam(r, "foodId")
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	res, err := h.orders.ListOrdersByMenuItem(ctx, callerFrom(r), foodID, order.PageQuery{Page: page, Limit: limit})
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuidParam(r, "id")
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	o, err := h.orders.UpdateOrderStatus(ctx, callerFrom(r), id, req.Status)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *OrderHandlers) repay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuidParam(r, "id")
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	pay, err := h.checkout.Repay(ctx, callerFrom(r), id)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pay)
}
