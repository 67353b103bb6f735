package order

import (
	"testing"

	"foodhub-be/internal/apperror"
	"foodhub-be/internal/catalog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	pho, bun   *catalog.MenuItem
	size       *catalog.OptionGroup
	large      *catalog.ItemOption
	resolved   resolvedCatalog
	phoRequest OrderItemRequest
	bunRequest OrderItemRequest
}

func newFixture() fixture {
	pho := &catalog.MenuItem{ID: uuid.New(), Name: "Pho", SellingPrice: dec("5"), CostPrice: dec("2"), Images: []string{"pho.png"}}
	bun := &catalog.MenuItem{ID: uuid.New(), Name: "Bun Cha", SellingPrice: dec("10"), CostPrice: dec("6")}
	size := &catalog.OptionGroup{ID: uuid.New(), MenuItemID: pho.ID, Name: "Size"}
	large := &catalog.ItemOption{ID: uuid.New(), OptionGroupID: size.ID, Name: "Large", AdditionalPrice: dec("1")}

	return fixture{
		pho: pho, bun: bun, size: size, large: large,
		resolved: resolvedCatalog{
			menuItems:    map[uuid.UUID]*catalog.MenuItem{pho.ID: pho, bun.ID: bun},
			optionGroups: map[uuid.UUID]*catalog.OptionGroup{size.ID: size},
			options:      map[uuid.UUID]*catalog.ItemOption{large.ID: large},
		},
		phoRequest: OrderItemRequest{
			MenuItemID: pho.ID,
			Quantity:   2,
			Options:    []OptionRequest{{OptionGroupID: size.ID, OptionItemID: large.ID}},
		},
		bunRequest: OrderItemRequest{MenuItemID: bun.ID, Quantity: 1},
	}
}

func TestPriceLines(t *testing.T) {
	t.Run("Two lines with one option", func(t *testing.T) {
		f := newFixture()

		items, subtotal, err := priceLines([]OrderItemRequest{f.phoRequest, f.bunRequest}, f.resolved)
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.True(t, dec("11").Equal(items[0].TotalPrice))
		assert.True(t, dec("1").Equal(items[0].OptionsPrice))
		assert.Equal(t, "pho.png", items[0].Avatar)
		assert.True(t, dec("2").Equal(items[0].CostPrice))
		require.Len(t, items[0].Options, 1)
		assert.Equal(t, "Size", items[0].Options[0].OptionGroupName)
		assert.Equal(t, "Large", items[0].Options[0].OptionItemName)

		assert.True(t, dec("10").Equal(items[1].TotalPrice))
		assert.True(t, dec("21").Equal(subtotal))
	})

	t.Run("Every line total is unit*qty + options", func(t *testing.T) {
		f := newFixture()
		reqs := []OrderItemRequest{f.phoRequest, f.bunRequest, {MenuItemID: f.bun.ID, Quantity: 3}}

		items, subtotal, err := priceLines(reqs, f.resolved)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, it := range items {
			want := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Add(it.OptionsPrice)
			assert.True(t, want.Equal(it.TotalPrice))
			sum = sum.Add(it.TotalPrice)
		}
		assert.True(t, sum.Equal(subtotal))
	})

	t.Run("Unknown menu item", func(t *testing.T) {
		f := newFixture()
		missing := uuid.New()

		_, _, err := priceLines([]OrderItemRequest{{MenuItemID: missing, Quantity: 1}}, f.resolved)

		assert.ErrorIs(t, err, catalog.ErrMenuItemNotFound)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Contains(t, err.Error(), missing.String())
	})

	t.Run("Unknown option group", func(t *testing.T) {
		f := newFixture()
		req := f.phoRequest
		req.Options = []OptionRequest{{OptionGroupID: uuid.New(), OptionItemID: f.large.ID}}

		_, _, err := priceLines([]OrderItemRequest{req}, f.resolved)
		assert.ErrorIs(t, err, catalog.ErrOptionGroupNotFound)
	})

	t.Run("Unknown option", func(t *testing.T) {
		f := newFixture()
		req := f.phoRequest
		req.Options = []OptionRequest{{OptionGroupID: f.size.ID, OptionItemID: uuid.New()}}

		_, _, err := priceLines([]OrderItemRequest{req}, f.resolved)
		assert.ErrorIs(t, err, catalog.ErrOptionNotFound)
	})

	t.Run("Option from another group", func(t *testing.T) {
		f := newFixture()
		other := &catalog.OptionGroup{ID: uuid.New(), MenuItemID: f.pho.ID, Name: "Spice"}
		f.resolved.optionGroups[other.ID] = other
		req := f.phoRequest
		req.Options = []OptionRequest{{OptionGroupID: other.ID, OptionItemID: f.large.ID}}

		_, _, err := priceLines([]OrderItemRequest{req}, f.resolved)
		assert.ErrorIs(t, err, catalog.ErrOptionNotFound)
	})

	t.Run("Group of a different menu item", func(t *testing.T) {
		f := newFixture()
		req := OrderItemRequest{
			MenuItemID: f.bun.ID,
			Quantity:   1,
			Options:    []OptionRequest{{OptionGroupID: f.size.ID, OptionItemID: f.large.ID}},
		}

		_, _, err := priceLines([]OrderItemRequest{req}, f.resolved)
		assert.ErrorIs(t, err, ErrOptionMismatch)
	})

	t.Run("Zero quantity", func(t *testing.T) {
		f := newFixture()
		_, _, err := priceLines([]OrderItemRequest{{MenuItemID: f.bun.ID, Quantity: 0}}, f.resolved)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestCollectRefs(t *testing.T) {
	f := newFixture()

	refs := collectRefs([]OrderItemRequest{f.phoRequest, f.phoRequest, f.bunRequest})

	assert.Equal(t, []uuid.UUID{f.pho.ID, f.bun.ID}, refs.menuItems)
	assert.Equal(t, []uuid.UUID{f.size.ID}, refs.optionGroups)
	assert.Equal(t, []uuid.UUID{f.large.ID}, refs.options)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("delivered")
	assert.True(t, ok)
	assert.Equal(t, StatusDelivered, st)

	st, ok = ParseStatus(" CANCELLED ")
	assert.True(t, ok)
	assert.Equal(t, StatusCancelled, st)

	_, ok = ParseStatus("Lost")
	assert.False(t, ok)
}

func TestParsePaymentMethod(t *testing.T) {
	pm, ok := ParsePaymentMethod("Stripe")
	assert.True(t, ok)
	assert.Equal(t, PaymentStripe, pm)

	_, ok = ParsePaymentMethod("bitcoin")
	assert.False(t, ok)
}

func TestNewPagedResult(t *testing.T) {
	p := NewPagedResult(nil, 21, 0, 10)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 21, p.TotalCount)
}
