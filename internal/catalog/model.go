package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID            uuid.UUID
	Name          string
	SellingPrice  decimal.Decimal
	CostPrice     decimal.Decimal
	Images        []string
	SoldCount     int
	TotalRating   int
	AverageRating float64
	IsActive      bool
}

// Avatar is the first image, used as the line-item thumbnail.
func (m MenuItem) Avatar() string {
	if len(m.Images) == 0 {
		return ""
	}
	return m.Images[0]
}

type OptionGroup struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
	Name       string
}

type ItemOption struct {
	ID              uuid.UUID
	OptionGroupID   uuid.UUID
	Name            string
	AdditionalPrice decimal.Decimal
}
