package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// CheckoutClient covers coupon verification, order creation and payment
// session creation.
type CheckoutClient interface {
	VerifyCoupon(ctx context.Context, code string, amount float64) (*models.CouponVerification, error)
	BuyNow(ctx context.Context, req *models.BuyNowRequest) (*models.PlaceOrderResponse, error)
	CreateCartOrder(ctx context.Context, req *models.BuyNowRequest) (*models.PlaceOrderResponse, error)
	CreatePaymentSession(ctx context.Context, draft *models.DraftOrder, addressID int64, idempotencyKey string) (*models.PaymentSession, error)
}

var _ CheckoutClient = (*Backend)(nil)

// VerifyCoupon asks the backend to price code against amount. valid=false
// is returned as a *errors.CouponError.
func (b *Backend) VerifyCoupon(ctx context.Context, code string, amount float64) (*models.CouponVerification, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	body := map[string]interface{}{"code": code, "amount": amount}

	var result models.CouponVerification
	_, err := b.do(ctx, call{method: http.MethodPost, path: "/coupon/verify", body: body, out: &result})
	if err != nil {
		var upstream *errors.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode < 500 {
			return nil, &errors.CouponError{Code: code, Message: upstream.Message}
		}
		return nil, err
	}

	if !result.Valid {
		return nil, &errors.CouponError{Code: code, Message: result.Message}
	}
	return &result, nil
}

func (b *Backend) BuyNow(ctx context.Context, req *models.BuyNowRequest) (*models.PlaceOrderResponse, error) {
	return b.placeOrder(ctx, "/order/buy-now", req)
}

func (b *Backend) CreateCartOrder(ctx context.Context, req *models.BuyNowRequest) (*models.PlaceOrderResponse, error) {
	return b.placeOrder(ctx, "/order/create", req)
}

func (b *Backend) placeOrder(ctx context.Context, path string, req *models.BuyNowRequest) (*models.PlaceOrderResponse, error) {
	b.logger.Info("Creating order", logging.Fields{
		"path":           path,
		"user_id":        req.UserID,
		"product_id":     req.ProductID,
		"payment_method": req.PaymentMethod,
	})

	var result models.PlaceOrderResponse
	status, err := b.do(ctx, call{method: http.MethodPost, path: path, body: req, out: &result})
	if err != nil {
		return nil, err
	}
	result.StatusCode = status

	if !result.HasDraft() && result.OrderID == 0 {
		return nil, fmt.Errorf("%w: order response has neither tempOrder nor orderId", errors.ErrMalformedResponse)
	}
	return &result, nil
}

// CreatePaymentSession posts the draft order plus addressId. The
// idempotency key is sent so the backend can collapse duplicate requests.
func (b *Backend) CreatePaymentSession(ctx context.Context, draft *models.DraftOrder, addressID int64, idempotencyKey string) (*models.PaymentSession, error) {
	fields := map[string]json.RawMessage{}
	if len(draft.Raw) > 0 {
		if err := json.Unmarshal(draft.Raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: temp order is not an object", errors.ErrMalformedResponse)
		}
	}
	addr, _ := json.Marshal(addressID)
	fields["addressId"] = addr

	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	var session models.PaymentSession
	if _, err := b.do(ctx, call{method: http.MethodPost, path: "/payment/create", body: fields, out: &session, header: header}); err != nil {
		return nil, err
	}

	b.logger.Info("Payment session created", logging.Fields{
		"user_id":         draft.UserID,
		"idempotency_key": idempotencyKey,
		"has_session":     session.PaymentSessionID != "",
	})
	return &session, nil
}
