package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusFailed  Status = "Failed"
	StatusSuccess Status = "Success"
)

// Payment is one collection attempt. Retries create new rows; TransactionID
// is the provider session id used to reconcile webhooks.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        uuid.UUID       `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        Status          `json:"status"`
	TransactionID string          `json:"transactionId"`
	PaidAt        *time.Time      `json:"paidAt"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// PayResponse is returned to clients that must finish payment off-site.
type PayResponse struct {
	PayURL string `json:"payUrl"`
}

// WebhookResult is the body of every acknowledged webhook delivery.
type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WebhookEvent is one verified provider delivery as recorded in payment_webhooks.
type WebhookEvent struct {
	Provider      string
	EventID       string
	EventType     string
	TransactionID string
	Payload       []byte
}

type ListQuery struct {
	PaymentMethod string
	Status        string
	From          *time.Time
	To            *time.Time
	Sort          string
	Page          int
	Limit         int
}

type PagedResult struct {
	Items      []Payment `json:"items"`
	TotalCount int       `json:"totalCount"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

func newPagedResult(items []Payment, total, page, limit int) *PagedResult {
	if items == nil {
		items = []Payment{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &PagedResult{Items: items, TotalCount: total, Page: page, Limit: limit, TotalPages: pages}
}
