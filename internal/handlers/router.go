package handlers

import (
	"fmt"
	"net/http"
	"time"

	"foodhub-be/internal/httpx"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

type RouterDeps struct {
	Tokens  middleware.TokenParser
	Limiter *middleware.RateLimiter

	Health   *HealthHandler
	Webhook  http.HandlerFunc
	Orders   *OrderHandlers
	Payments *PaymentHandlers
	Ratings  *RatingHandlers
	Revenue  *RevenueHandlers
}

// NewRouter mounts every route behind request ids, access logging and
// optional bearer authentication. The rate limiter runs after
// authentication so quotas key on the caller when there is one.
func NewRouter(d RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.Authenticate(d.Tokens))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	health := d.Health
	if health == nil {
		health = NewHealthHandler(nil)
	}
	r.Get("/healthz", health.Healthz)

	r.Route("/api", func(api chi.Router) {
		if d.Webhook != nil {
			api.Post("/payment/webhook", d.Webhook)
		}
		if d.Orders != nil {
			api.Route("/orders", func(r chi.Router) {
				d.Orders.Routes(r, middleware.RequireAuth, middleware.RequireAdmin)
			})
		}
		if d.Payments != nil {
			api.Route("/payments", func(r chi.Router) {
				d.Payments.Routes(r, middleware.RequireAuth, middleware.RequireAdmin)
			})
		}
		if d.Ratings != nil {
			api.Route("/ratings", func(r chi.Router) {
				d.Ratings.Routes(r, middleware.RequireAuth)
			})
		}
		if d.Revenue != nil {
			api.With(middleware.RequireAdmin).Get("/dashboard/revenue", d.Revenue.summary)
		}
	})

	return r
}
