package rating

import (
	"time"

	"github.com/google/uuid"
)

type Rating struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"userId"`
	MenuItemID      uuid.UUID `json:"menuItemId"`
	OrderItemID     uuid.UUID `json:"orderItemId"`
	Content         string    `json:"content"`
	Rating          int       `json:"rating"`
	Images          []string  `json:"images"`
	OptionItemNames []string  `json:"optionItemNames"`
	CreatedAt       time.Time `json:"createdAt"`

	// ReviewerName is only filled on listings.
	ReviewerName string `json:"reviewerName,omitempty"`
}

type CreateRatingRequest struct {
	OrderItemID uuid.UUID `json:"orderItemId"`
	MenuItemID  uuid.UUID `json:"menuItemId"`
	Rating      int       `json:"rating"`
	Content     string    `json:"content"`
	Images      []string  `json:"images"`
}

// RateableItem is an order line as seen by the rating flow.
type RateableItem struct {
	OrderItemID     uuid.UUID
	MenuItemID      uuid.UUID
	OwnerID         uuid.UUID
	OrderStatus     string
	IsRated         bool
	OptionItemNames []string
}

type ListQuery struct {
	FilterBy string
	SortBy   string
	Page     int
	Limit    int
}

type PagedResult struct {
	Items      []Rating `json:"items"`
	TotalCount int      `json:"totalCount"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"totalPages"`
}

func newPagedResult(items []Rating, total, page, limit int) *PagedResult {
	if items == nil {
		items = []Rating{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &PagedResult{Items: items, TotalCount: total, Page: page, Limit: limit, TotalPages: pages}
}
