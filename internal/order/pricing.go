package order

import (
	"fmt"

	"foodhub-be/internal/catalog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// catalogRefs collects every id a request points at so each kind can be
// loaded in one round trip.
type catalogRefs struct {
	menuItems    []uuid.UUID
	optionGroups []uuid.UUID
	options      []uuid.UUID
}

func collectRefs(items []OrderItemRequest) catalogRefs {
	var refs catalogRefs
	seenItem := map[uuid.UUID]bool{}
	seenGroup := map[uuid.UUID]bool{}
	seenOption := map[uuid.UUID]bool{}

	for _, it := range items {
		if !seenItem[it.MenuItemID] {
			seenItem[it.MenuItemID] = true
			refs.menuItems = append(refs.menuItems, it.MenuItemID)
		}
		for _, op := range it.Options {
			if !seenGroup[op.OptionGroupID] {
				seenGroup[op.OptionGroupID] = true
				refs.optionGroups = append(refs.optionGroups, op.OptionGroupID)
			}
			if !seenOption[op.OptionItemID] {
				seenOption[op.OptionItemID] = true
				refs.options = append(refs.options, op.OptionItemID)
			}
		}
	}
	return refs
}

type resolvedCatalog struct {
	menuItems    map[uuid.UUID]*catalog.MenuItem
	optionGroups map[uuid.UUID]*catalog.OptionGroup
	options      map[uuid.UUID]*catalog.ItemOption
}

// priceLines turns requested lines into item snapshots. Prices always come
// from the catalog: line total = unit price * quantity + options price.
func priceLines(reqs []OrderItemRequest, cat resolvedCatalog) ([]OrderItem, decimal.Decimal, error) {
	subtotal := decimal.Zero
	items := make([]OrderItem, 0, len(reqs))

	for _, req := range reqs {
		if req.Quantity < 1 {
			return nil, decimal.Zero, ErrInvalidQuantity
		}

		menuItem, ok := cat.menuItems[req.MenuItemID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", catalog.ErrMenuItemNotFound, req.MenuItemID)
		}

		optionsPrice := decimal.Zero
		options := make([]OrderItemOption, 0, len(req.Options))

		for _, opReq := range req.Options {
			group, ok := cat.optionGroups[opReq.OptionGroupID]
			if !ok {
				return nil, decimal.Zero, fmt.Errorf("%w: %s", catalog.ErrOptionGroupNotFound, opReq.OptionGroupID)
			}
			if group.MenuItemID != menuItem.ID {
				return nil, decimal.Zero, fmt.Errorf("%w: group %s, menu item %s", ErrOptionMismatch, group.ID, menuItem.ID)
			}

			option, ok := cat.options[opReq.OptionItemID]
			if !ok || option.OptionGroupID != group.ID {
				return nil, decimal.Zero, fmt.Errorf("%w: %s", catalog.ErrOptionNotFound, opReq.OptionItemID)
			}

			optionsPrice = optionsPrice.Add(option.AdditionalPrice)
			options = append(options, OrderItemOption{
				OptionGroupName: group.Name,
				OptionItemName:  option.Name,
				AdditionalPrice: option.AdditionalPrice,
			})
		}

		lineTotal := menuItem.SellingPrice.Mul(decimal.NewFromInt(int64(req.Quantity))).Add(optionsPrice)

		items = append(items, OrderItem{
			MenuItemID:   menuItem.ID,
			MenuItemName: menuItem.Name,
			Avatar:       menuItem.Avatar(),
			Quantity:     req.Quantity,
			UnitPrice:    menuItem.SellingPrice,
			CostPrice:    menuItem.CostPrice,
			OptionsPrice: optionsPrice,
			TotalPrice:   lineTotal,
			Options:      options,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	return items, subtotal, nil
}
