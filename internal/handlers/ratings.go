package handlers

import (
	"net/http"

	"foodhub-be/internal/httpx"
	"foodhub-be/internal/rating"

	"github.com/go-chi/chi/v5"
)

type RatingHandlers struct {
	ratings rating.Service
}

func NewRatingHandlers(ratings rating.Service) *RatingHandlers {
	return &RatingHandlers{ratings: ratings}
}

func (h *RatingHandlers) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.With(requireAuth).Post("/", h.createRating)
	r.Get("/food/{foodId}", h.listForFood)
}

func (h *RatingHandlers) createRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req rating.CreateRatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}

	rt, err := h.ratings.CreateRating(ctx, callerFrom(r), req)
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rt)
}

func (h *RatingHandlers) listForFood(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	res, err := h.ratings.ListForMenuItem(ctx, foodID, rating.ListQuery{
		FilterBy: q.Get("filterBy"),
		SortBy:   q.Get("sortBy"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		httpx.RespondError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
