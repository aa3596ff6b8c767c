package models

import (
	"encoding/json"
	"time"
)

type CouponVerification struct {
	Valid    bool    `json:"valid"`
	Discount float64 `json:"discount"`
	Message  string  `json:"message"`
}

// BuyNowRequest creates an order for a single product, or for the user's
// cart when ProductID is zero.
type BuyNowRequest struct {
	UserID          int64         `json:"userId"`
	ProductID       int64         `json:"productId,omitempty"`
	Quantity        int           `json:"quantity,omitempty"`
	AddressID       int64         `json:"addressId"`
	CouponCode      *string       `json:"couponCode"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	ShippingAddress *Address      `json:"shippingAddress"`
}

// DraftOrder is the provisional order snapshot returned when the payment
// method needs external confirmation. Raw is kept verbatim so it can be
// forwarded to payment session creation unchanged.
type DraftOrder struct {
	Raw         json.RawMessage `json:"raw"`
	UserID      int64           `json:"userId"`
	ProductID   int64           `json:"productId"`
	Quantity    int             `json:"quantity"`
	TotalAmount float64         `json:"totalAmount"`
	FinalAmount float64         `json:"finalAmount"`
	Discount    float64         `json:"discount"`
}

// ParseDraftOrder decodes the known fields of a temp order and keeps the raw body.
func ParseDraftOrder(raw json.RawMessage) (*DraftOrder, error) {
	d := &DraftOrder{}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	d.Raw = append(json.RawMessage(nil), raw...)
	return d, nil
}

// PlaceOrderResponse is the bifurcated answer of order creation: either a
// draft (online payment) or a confirmed order id.
type PlaceOrderResponse struct {
	StatusCode int             `json:"-"`
	TempOrder  json.RawMessage `json:"tempOrder,omitempty"`
	OrderID    int64           `json:"orderId,omitempty"`
}

// HasDraft reports whether the response carries a non-null temp order.
func (r *PlaceOrderResponse) HasDraft() bool {
	return len(r.TempOrder) > 0 && string(r.TempOrder) != "null"
}

type PaymentSession struct {
	PaymentSessionID string `json:"payment_session_id"`
	OrderID          string `json:"order_id,omitempty"`
}

type CheckoutState string

const (
	CheckoutIdle            CheckoutState = "Idle"
	CheckoutSubmitting      CheckoutState = "Submitting"
	CheckoutDraftReceived   CheckoutState = "DraftReceived"
	CheckoutAwaitingPayment CheckoutState = "AwaitingPayment"
	CheckoutConfirmed       CheckoutState = "Confirmed"
	CheckoutFailed          CheckoutState = "Failed"
	CheckoutAbandoned       CheckoutState = "Abandoned"
)

// Terminal reports whether no further transition is possible.
func (s CheckoutState) Terminal() bool {
	return s == CheckoutConfirmed || s == CheckoutAbandoned
}

// InFlight reports whether a submission holds the attempt.
func (s CheckoutState) InFlight() bool {
	return s == CheckoutSubmitting || s == CheckoutDraftReceived
}

type CheckoutSource string

const (
	CheckoutSourceProduct CheckoutSource = "product"
	CheckoutSourceCart    CheckoutSource = "cart"
)

// CheckoutAttempt is one checkout in progress: the collected form input
// plus the draft order and payment session it produced.
type CheckoutAttempt struct {
	ID               string          `json:"id"`
	UserID           int64           `json:"userId"`
	Source           CheckoutSource  `json:"source"`
	ProductID        int64           `json:"productId,omitempty"`
	Quantity         int             `json:"quantity"`
	AddressID        int64           `json:"addressId,omitempty"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	CouponCode       string          `json:"couponCode,omitempty"`
	CouponDiscount   float64         `json:"couponDiscount"`
	CouponApplied    bool            `json:"couponApplied"`
	State            CheckoutState   `json:"state"`
	Draft            json.RawMessage `json:"draft,omitempty"`
	IdempotencyKey   string          `json:"idempotencyKey,omitempty"`
	PaymentSessionID string          `json:"paymentSessionId,omitempty"`
	OrderID          int64           `json:"orderId,omitempty"`
	LastError        string          `json:"lastError,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// AppliedCoupon returns the code sent with order creation, or nil.
func (a *CheckoutAttempt) AppliedCoupon() *string {
	if !a.CouponApplied || a.CouponCode == "" {
		return nil
	}
	code := a.CouponCode
	return &code
}
