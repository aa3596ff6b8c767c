package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name         string
		price        float64
		discount     float64
		quantity     int
		coupon       float64
		wantItem     float64
		wantDelivery float64
		wantTax      float64
		wantFinal    float64
	}{
		{
			name: "discounted pair above threshold", price: 1000, discount: 10, quantity: 2,
			wantItem: 1800, wantDelivery: 0, wantTax: 324, wantFinal: 2124,
		},
		{
			name: "coupon reduces tax base", price: 1000, discount: 10, quantity: 2, coupon: 200,
			wantItem: 1800, wantDelivery: 0, wantTax: 288, wantFinal: 1888,
		},
		{
			name: "below threshold pays delivery", price: 100, discount: 0, quantity: 1,
			wantItem: 100, wantDelivery: 40, wantTax: 18, wantFinal: 158,
		},
		{
			name: "exactly at threshold is free", price: 500, discount: 0, quantity: 1,
			wantItem: 500, wantDelivery: 0, wantTax: 90, wantFinal: 590,
		},
		{
			name: "coupon larger than item total is clamped", price: 100, discount: 0, quantity: 1, coupon: 150,
			wantItem: 100, wantDelivery: 40, wantTax: 0, wantFinal: 40,
		},
		{
			name: "negative coupon is ignored", price: 100, discount: 0, quantity: 1, coupon: -20,
			wantItem: 100, wantDelivery: 40, wantTax: 18, wantFinal: 158,
		},
		{
			name: "discount over 100 is clamped", price: 100, discount: 150, quantity: 1,
			wantItem: 0, wantDelivery: 40, wantTax: 0, wantFinal: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Quote(DefaultRules(), tt.price, tt.discount, tt.quantity, tt.coupon)
			require.NoError(t, err)

			d := b.Display()
			assert.Equal(t, tt.wantItem, d.ItemTotal)
			assert.Equal(t, tt.wantDelivery, d.Delivery)
			assert.Equal(t, tt.wantTax, d.Tax)
			assert.Equal(t, tt.wantFinal, d.Final)
		})
	}
}

func TestQuote_RejectsZeroQuantity(t *testing.T) {
	_, err := Quote(DefaultRules(), 100, 0, 0, 0)

	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "quantity", ve.Field)
}

func TestQuote_KeepsFullPrecisionUntilDisplay(t *testing.T) {
	b, err := Quote(DefaultRules(), 33.33, 0, 3, 0)
	require.NoError(t, err)

	assert.True(t, b.ItemTotal.Equal(decimal.RequireFromString("99.99")))
	assert.True(t, b.Tax.Equal(decimal.RequireFromString("17.9982")))
	assert.Equal(t, 18.0, b.Display().Tax)
	assert.Equal(t, 157.99, b.Display().Final)
}

func TestQuoteCart(t *testing.T) {
	rules := DefaultRules().CartRules(9)

	t.Run("empty cart quotes zeros", func(t *testing.T) {
		d := QuoteCart(rules, nil, 0).Display()
		assert.Equal(t, Display{FreeDelivery: true}, d)
	})

	t.Run("sums lines and adds platform fee", func(t *testing.T) {
		lines := []Line{
			{Price: 200, Discount: 50, Quantity: 2},
			{Price: 300, Discount: 0, Quantity: 1},
		}
		d := QuoteCart(rules, lines, 0).Display()

		assert.Equal(t, 700.0, d.ListTotal)
		assert.Equal(t, 200.0, d.Savings)
		assert.Equal(t, 500.0, d.ItemTotal)
		assert.Equal(t, 0.0, d.Delivery)
		assert.Equal(t, 90.0, d.Tax)
		assert.Equal(t, 9.0, d.PlatformFee)
		assert.Equal(t, 599.0, d.Final)
	})
}

func TestRulesFromConfig(t *testing.T) {
	rules := RulesFromConfig(config.PricingConfig{
		TaxRate:           0.1,
		DeliveryThreshold: 50,
		DeliveryFee:       9.99,
		CartPlatformFee:   9,
	})

	d, err := Quote(rules, 40, 0, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 9.99, d.Display().Delivery)
	assert.Equal(t, 4.0, d.Display().Tax)
	assert.Equal(t, 0.0, d.Display().PlatformFee)
}
