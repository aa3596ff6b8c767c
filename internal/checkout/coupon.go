package checkout

import (
	"context"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

// ApplyCoupon verifies code against the pre-tax item total. On any failure
// the discount is cleared but the typed code is kept.
func (s *Service) ApplyCoupon(ctx context.Context, userID int64, id, code string) (*View, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.NewValidationError("coupon_code", "Please enter a coupon code")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := frozen(a); err != nil {
		return nil, err
	}

	// Price without any previous coupon.
	a.CouponApplied = false
	a.CouponDiscount = 0
	g, err := s.price(ctx, a)
	if err != nil {
		return nil, err
	}
	amount, _ := g.quote.ItemTotal.Round(2).Float64()

	a.CouponCode = code
	discardDraft(a)

	result, verr := s.backend.VerifyCoupon(ctx, code, amount)
	switch {
	case verr != nil:
		if errors.Is(verr, errors.ErrInvalidCoupon) {
			s.metrics.Coupon("invalid")
		} else {
			s.metrics.Coupon("error")
		}
		s.logger.Info("Coupon rejected", logging.Fields{
			"checkout_id": id,
			"coupon_code": code,
			"error":       verr.Error(),
		})
	default:
		a.CouponApplied = true
		a.CouponDiscount = result.Discount
		s.metrics.Coupon("valid")
		s.logger.Info("Coupon applied", logging.Fields{
			"checkout_id": id,
			"coupon_code": code,
			"discount":    result.Discount,
		})
	}

	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	if verr != nil {
		return nil, verr
	}
	return s.view(ctx, a)
}

// RemoveCoupon clears the code and any discount.
func (s *Service) RemoveCoupon(ctx context.Context, userID int64, id string) (*View, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := frozen(a); err != nil {
		return nil, err
	}

	a.CouponCode = ""
	a.CouponApplied = false
	a.CouponDiscount = 0
	discardDraft(a)
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return s.view(ctx, a)
}

