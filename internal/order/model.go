package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus matches case-insensitively and returns the canonical value.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range allStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentStripe PaymentMethod = "stripe"
	PaymentPaypal PaymentMethod = "paypal"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch pm := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); pm {
	case PaymentCOD, PaymentStripe, PaymentPaypal:
		return pm, true
	}
	return "", false
}

type PayStatus string

const (
	PayFailed  PayStatus = "Failed"
	PaySuccess PayStatus = "Success"
)

// Order carries the shipping fields copied from the address at checkout.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	FullName        string          `json:"fullName"`
	PhoneNumber     string          `json:"phoneNumber"`
	FullAddress     string          `json:"fullAddress"`
	SpecificAddress string          `json:"specificAddress"`
	Note            string          `json:"note,omitempty"`
	OrderDate       time.Time       `json:"orderDate"`
	CurrentStatus   Status          `json:"currentStatus"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PayStatus       PayStatus       `json:"payStatus"`
	ShippingFee     decimal.Decimal `json:"shippingFee"`
	SubTotal        decimal.Decimal `json:"subTotal"`
	Total           decimal.Decimal `json:"total"`

	Items           []OrderItem     `json:"items"`
	StatusHistories []StatusHistory `json:"statusHistories"`
}

// OrderItem snapshots the menu item at order time. CostPrice never leaves the server.
type OrderItem struct {
	ID           uuid.UUID         `json:"id"`
	OrderID      uuid.UUID         `json:"orderId"`
	MenuItemID   uuid.UUID         `json:"menuItemId"`
	MenuItemName string            `json:"menuItemName"`
	Avatar       string            `json:"avatar"`
	Quantity     int               `json:"quantity"`
	UnitPrice    decimal.Decimal   `json:"unitPrice"`
	CostPrice    decimal.Decimal   `json:"-"`
	OptionsPrice decimal.Decimal   `json:"optionsPrice"`
	TotalPrice   decimal.Decimal   `json:"totalPrice"`
	IsRated      bool              `json:"isRated"`
	Options      []OrderItemOption `json:"orderItemOptions"`
}

type OrderItemOption struct {
	ID              uuid.UUID       `json:"id"`
	OrderItemID     uuid.UUID       `json:"orderItemId"`
	OptionGroupName string          `json:"optionGroupName"`
	OptionItemName  string          `json:"optionItemName"`
	AdditionalPrice decimal.Decimal `json:"additionalPrice"`
}

type StatusHistory struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
}

type CreateOrderRequest struct {
	AddressID     uuid.UUID          `json:"addressId"`
	ShippingFee   decimal.Decimal    `json:"shippingFee"`
	PaymentMethod string             `json:"paymentMethod"`
	Note          string             `json:"note"`
	Items         []OrderItemRequest `json:"orderItems"`
}

type OrderItemRequest struct {
	MenuItemID uuid.UUID       `json:"menuItemId"`
	Quantity   int             `json:"quantity"`
	Options    []OptionRequest `json:"options"`
}

type OptionRequest struct {
	OptionGroupID uuid.UUID `json:"optionGroupId"`
	OptionItemID  uuid.UUID `json:"optionItemId"`
}

type PagedResult struct {
	Items      []Order `json:"items"`
	TotalCount int     `json:"totalCount"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

func NewPagedResult(items []Order, total, page, limit int) *PagedResult {
	if items == nil {
		items = []Order{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &PagedResult{Items: items, TotalCount: total, Page: page, Limit: limit, TotalPages: pages}
}
