package revenue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is the slice of a delivered order item the ledger needs.
type Line struct {
	OrderID     uuid.UUID
	OrderItemID uuid.UUID
	MenuItemID  uuid.UUID
	UnitPrice   decimal.Decimal
	CostPrice   decimal.Decimal
	Quantity    int
}

// Entry is one append-only revenue_summaries row.
type Entry struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	OrderItemID  uuid.UUID
	MenuItemID   uuid.UUID
	TotalRevenue decimal.Decimal
	TotalCost    decimal.Decimal
	TotalProfit  decimal.Decimal
	CalculatedAt time.Time
}

type Summary struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
	EntryCount   int             `json:"entryCount"`
}

// EntryFor computes revenue = unit*qty, cost = cost*qty, profit = revenue-cost.
// Option surcharges are not part of recognized revenue.
func EntryFor(l Line) Entry {
	qty := decimal.NewFromInt(int64(l.Quantity))
	rev := l.UnitPrice.Mul(qty)
	cost := l.CostPrice.Mul(qty)
	return Entry{
		OrderID:      l.OrderID,
		OrderItemID:  l.OrderItemID,
		MenuItemID:   l.MenuItemID,
		TotalRevenue: rev,
		TotalCost:    cost,
		TotalProfit:  rev.Sub(cost),
	}
}
