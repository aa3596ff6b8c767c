// Package pricing computes buy-now and cart price breakdowns.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
)

var hundred = decimal.NewFromInt(100)

// Rules holds the configurable pricing constants.
type Rules struct {
	TaxRate           decimal.Decimal
	DeliveryThreshold decimal.Decimal
	DeliveryFee       decimal.Decimal
	PlatformFee       decimal.Decimal
}

// DefaultRules returns the buy-now constants: 18% tax, free delivery from 500, fee 40.
func DefaultRules() Rules {
	return Rules{
		TaxRate:           decimal.NewFromFloat(0.18),
		DeliveryThreshold: decimal.NewFromInt(500),
		DeliveryFee:       decimal.NewFromInt(40),
		PlatformFee:       decimal.Zero,
	}
}

// RulesFromConfig builds buy-now rules. The cart platform fee is applied by CartRules.
func RulesFromConfig(cfg config.PricingConfig) Rules {
	return Rules{
		TaxRate:           decimal.NewFromFloat(cfg.TaxRate),
		DeliveryThreshold: decimal.NewFromFloat(cfg.DeliveryThreshold),
		DeliveryFee:       decimal.NewFromFloat(cfg.DeliveryFee),
		PlatformFee:       decimal.Zero,
	}
}

// CartRules returns r with the platform fee set for cart checkouts.
func (r Rules) CartRules(platformFee float64) Rules {
	r.PlatformFee = nonNegative(decimal.NewFromFloat(platformFee))
	return r
}

// Breakdown is a full-precision price quote.
type Breakdown struct {
	ListTotal   decimal.Decimal `json:"listTotal"`
	Savings     decimal.Decimal `json:"savings"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	ItemTotal   decimal.Decimal `json:"itemTotal"`
	Coupon      decimal.Decimal `json:"coupon"`
	Taxable     decimal.Decimal `json:"taxable"`
	Delivery    decimal.Decimal `json:"delivery"`
	Tax         decimal.Decimal `json:"tax"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	Final       decimal.Decimal `json:"final"`
}

// Display is a Breakdown rounded to two places for presentation.
type Display struct {
	ListTotal    float64 `json:"listTotal"`
	Savings      float64 `json:"savings"`
	UnitPrice    float64 `json:"unitPrice"`
	ItemTotal    float64 `json:"itemTotal"`
	Coupon       float64 `json:"coupon"`
	Taxable      float64 `json:"taxable"`
	Delivery     float64 `json:"delivery"`
	FreeDelivery bool    `json:"freeDelivery"`
	Tax          float64 `json:"tax"`
	PlatformFee  float64 `json:"platformFee"`
	Final        float64 `json:"final"`
}

// Display rounds every component to two decimal places.
func (b Breakdown) Display() Display {
	return Display{
		ListTotal:    round2(b.ListTotal),
		Savings:      round2(b.Savings),
		UnitPrice:    round2(b.UnitPrice),
		ItemTotal:    round2(b.ItemTotal),
		Coupon:       round2(b.Coupon),
		Taxable:      round2(b.Taxable),
		Delivery:     round2(b.Delivery),
		FreeDelivery: b.Delivery.IsZero(),
		Tax:          round2(b.Tax),
		PlatformFee:  round2(b.PlatformFee),
		Final:        round2(b.Final),
	}
}

// Line is one priced product line.
type Line struct {
	Price    float64
	Discount float64
	Quantity int
}

// UnitPrice returns price × (1 − discount/100) with the discount clamped to [0, 100].
func UnitPrice(price, discountPercent float64) decimal.Decimal {
	p := nonNegative(decimal.NewFromFloat(price))
	d := clampPercent(decimal.NewFromFloat(discountPercent))
	return p.Mul(decimal.NewFromInt(1).Sub(d.Div(hundred)))
}

// Quote prices a single product bought now.
func Quote(rules Rules, price, discountPercent float64, quantity int, coupon float64) (Breakdown, error) {
	if quantity < 1 {
		return Breakdown{}, errors.NewValidationError("quantity", "Quantity must be at least 1")
	}
	return quoteLines(rules, []Line{{Price: price, Discount: discountPercent, Quantity: quantity}}, coupon), nil
}

// QuoteCart prices a whole cart. An empty cart quotes all zeros, platform fee included.
func QuoteCart(rules Rules, lines []Line, coupon float64) Breakdown {
	if len(lines) == 0 {
		return zero()
	}
	return quoteLines(rules, lines, coupon)
}

func quoteLines(rules Rules, lines []Line, coupon float64) Breakdown {
	b := zero()
	var qty int64
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		q := decimal.NewFromInt(int64(l.Quantity))
		list := nonNegative(decimal.NewFromFloat(l.Price)).Mul(q)
		total := UnitPrice(l.Price, l.Discount).Mul(q)
		b.ListTotal = b.ListTotal.Add(list)
		b.ItemTotal = b.ItemTotal.Add(total)
		qty += int64(l.Quantity)
	}
	if qty == 0 {
		return b
	}
	b.Savings = b.ListTotal.Sub(b.ItemTotal)
	if len(lines) == 1 {
		b.UnitPrice = UnitPrice(lines[0].Price, lines[0].Discount)
	}

	b.Coupon = decimal.Min(nonNegative(decimal.NewFromFloat(coupon)), b.ItemTotal)
	b.Taxable = b.ItemTotal.Sub(b.Coupon)

	if b.ItemTotal.GreaterThanOrEqual(rules.DeliveryThreshold) {
		b.Delivery = decimal.Zero
	} else {
		b.Delivery = rules.DeliveryFee
	}

	b.Tax = b.Taxable.Mul(rules.TaxRate)
	b.PlatformFee = rules.PlatformFee
	b.Final = b.Taxable.Add(b.Delivery).Add(b.Tax).Add(b.PlatformFee)
	return b
}

func zero() Breakdown {
	return Breakdown{
		ListTotal:   decimal.Zero,
		Savings:     decimal.Zero,
		UnitPrice:   decimal.Zero,
		ItemTotal:   decimal.Zero,
		Coupon:      decimal.Zero,
		Taxable:     decimal.Zero,
		Delivery:    decimal.Zero,
		Tax:         decimal.Zero,
		PlatformFee: decimal.Zero,
		Final:       decimal.Zero,
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampPercent(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
