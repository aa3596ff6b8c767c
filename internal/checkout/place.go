package checkout

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// PlaceResult is the outcome of a place-order call. Launch is set when the
// user must complete payment at the hosted checkout.
type PlaceResult struct {
	CheckoutID string               `json:"checkoutId"`
	State      models.CheckoutState `json:"state"`
	OrderID    int64                `json:"orderId,omitempty"`
	Launch     *clients.Launch      `json:"launch,omitempty"`
	Reused     bool                 `json:"reused"`
}

// submitLease bounds how long a submission may hold an attempt before
// another caller can take it over.
const submitLease = 2 * time.Minute

// PlaceOrder submits the attempt. Calls for the same attempt are serialized
// in process and claimed in the store, so only one caller per attempt ever
// reaches the backend. An attempt that already holds a payment session
// re-opens it without creating another draft or session.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, id string) (*PlaceResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !s.submittable(a) {
		return s.resume(ctx, a)
	}

	now := s.now()
	claimed, err := s.repo.Claim(ctx, a.ID, now, now.Add(-submitLease))
	if err != nil {
		return nil, err
	}
	if claimed {
		s.transition(a, models.CheckoutSubmitting)
	}
	if a, err = s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if !claimed {
		return s.resume(ctx, a)
	}

	req, err := s.prepare(ctx, a)
	if err != nil {
		s.release(ctx, a)
		return nil, err
	}

	s.logger.Info("Placing order", logging.Fields{
		"checkout_id":    a.ID,
		"user_id":        a.UserID,
		"source":         a.Source,
		"payment_method": a.PaymentMethod,
	})

	// A draft from an earlier attempt whose session call failed is retried
	// with the same idempotency key.
	if len(a.Draft) > 0 && a.IdempotencyKey != "" {
		draft, err := models.ParseDraftOrder(a.Draft)
		if err == nil {
			return s.openSession(ctx, a, draft)
		}
		discardDraft(a)
	}

	var resp *models.PlaceOrderResponse
	if a.Source == models.CheckoutSourceCart {
		resp, err = s.backend.CreateCartOrder(ctx, req)
	} else {
		resp, err = s.backend.BuyNow(ctx, req)
	}

	// The outcome is stored even when the caller has gone away.
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		s.metrics.BackendError("place_order", errorKind(err))
		return nil, s.fail(ctx, a, err)
	}

	if !resp.HasDraft() {
		a.OrderID = resp.OrderID
		s.transition(a, models.CheckoutConfirmed)
		if err := s.save(ctx, a); err != nil {
			return nil, err
		}
		s.publish(ctx, events.EventTypeCheckoutConfirmed, a)
		s.logger.Info("Order placed", logging.Fields{
			"checkout_id": a.ID,
			"order_id":    a.OrderID,
		})
		return &PlaceResult{CheckoutID: a.ID, State: a.State, OrderID: a.OrderID}, nil
	}

	draft, err := models.ParseDraftOrder(resp.TempOrder)
	if err != nil {
		return nil, s.fail(ctx, a, errors.ErrMalformedResponse)
	}
	a.Draft = draft.Raw
	a.IdempotencyKey = uuid.NewString()
	s.transition(a, models.CheckoutDraftReceived)
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventTypeCheckoutDraftCreated, a)

	return s.openSession(ctx, a, draft)
}

// submittable reports whether a may be claimed for a new submission. An
// in-flight attempt is submittable again once its lease has run out.
func (s *Service) submittable(a *models.CheckoutAttempt) bool {
	switch {
	case a.State.Terminal(), a.PaymentSessionID != "":
		return false
	case a.State.InFlight():
		return a.UpdatedAt.Before(s.now().Add(-submitLease))
	}
	return true
}

// resume answers a place-order call for an attempt that cannot be
// submitted again.
func (s *Service) resume(ctx context.Context, a *models.CheckoutAttempt) (*PlaceResult, error) {
	switch {
	case a.State == models.CheckoutAbandoned:
		return nil, errors.NewValidationError("checkout", "checkout was abandoned")
	case a.State == models.CheckoutConfirmed:
		return &PlaceResult{CheckoutID: a.ID, State: a.State, OrderID: a.OrderID}, nil
	case a.PaymentSessionID != "":
		return s.reopen(ctx, a)
	}
	return nil, errors.NewValidationError("checkout", "order is being placed")
}

// release hands a claimed attempt back as Idle when it fails a check
// before any backend call.
func (s *Service) release(ctx context.Context, a *models.CheckoutAttempt) {
	s.transition(a, models.CheckoutIdle)
	_ = s.save(context.WithoutCancel(ctx), a)
}

// prepare checks the attempt can be submitted and builds the order request.
func (s *Service) prepare(ctx context.Context, a *models.CheckoutAttempt) (*models.BuyNowRequest, error) {
	online := a.PaymentMethod.IsOnline()

	if a.Source == models.CheckoutSourceCart {
		if a.AddressID == 0 {
			return nil, errors.NewValidationError("address_id", "Please select an address")
		}
	} else {
		if online && !s.gateway.Ready() {
			return nil, errors.ErrPaymentUnavailable
		}
		if a.AddressID == 0 {
			return nil, errors.NewValidationError("address_id", "Please select a shipping address")
		}
	}

	address, err := s.findAddress(ctx, a.UserID, a.AddressID)
	if err != nil {
		return nil, err
	}

	g, err := s.price(ctx, a)
	if err != nil {
		return nil, err
	}
	if a.Source == models.CheckoutSourceCart {
		if len(g.cart) == 0 {
			return nil, errors.NewValidationError("cart", "Your cart is empty")
		}
		if online && !s.gateway.Ready() {
			return nil, errors.ErrPaymentUnavailable
		}
	}
	if !g.inStock {
		return nil, errors.NewValidationError("quantity", "Not enough stock for the requested quantity")
	}

	req := &models.BuyNowRequest{
		UserID:          a.UserID,
		AddressID:       a.AddressID,
		CouponCode:      a.AppliedCoupon(),
		PaymentMethod:   a.PaymentMethod,
		ShippingAddress: address,
	}
	if a.Source == models.CheckoutSourceProduct {
		req.ProductID = a.ProductID
		req.Quantity = a.Quantity
	}
	return req, nil
}

// openSession creates the payment session for a stored draft, persists the
// token and opens the hosted checkout.
func (s *Service) openSession(ctx context.Context, a *models.CheckoutAttempt, draft *models.DraftOrder) (*PlaceResult, error) {
	session, err := s.backend.CreatePaymentSession(ctx, draft, a.AddressID, a.IdempotencyKey)
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		s.metrics.PaymentSession("failed")
		s.metrics.BackendError("payment_session", errorKind(err))
		return nil, s.fail(ctx, a, err)
	}
	if session.PaymentSessionID == "" {
		s.metrics.PaymentSession("failed")
		return nil, s.fail(ctx, a, errors.NewValidationError("payment_session_id", "Failed to initiate payment session"))
	}

	a.PaymentSessionID = session.PaymentSessionID
	a.LastError = ""
	s.transition(a, models.CheckoutAwaitingPayment)
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	s.metrics.PaymentSession("created")
	s.publish(ctx, events.EventTypeCheckoutSessionCreated, a)

	launch, err := s.gateway.Open(ctx, a.PaymentSessionID)
	if err != nil {
		s.logger.Error("Failed to open payment checkout", logging.Fields{
			"checkout_id": a.ID,
			"error":       err.Error(),
		})
		return nil, err
	}
	return &PlaceResult{CheckoutID: a.ID, State: a.State, Launch: launch}, nil
}

// reopen launches the stored session again. No backend call is made.
func (s *Service) reopen(ctx context.Context, a *models.CheckoutAttempt) (*PlaceResult, error) {
	launch, err := s.gateway.Open(ctx, a.PaymentSessionID)
	if err != nil {
		return nil, err
	}

	if a.State != models.CheckoutAwaitingPayment {
		s.transition(a, models.CheckoutAwaitingPayment)
		if err := s.save(ctx, a); err != nil {
			return nil, err
		}
	}
	s.metrics.PaymentSession("reused")
	s.publish(ctx, events.EventTypeCheckoutSessionReused, a)

	s.logger.Info("Reusing payment session", logging.Fields{
		"checkout_id": a.ID,
	})
	return &PlaceResult{CheckoutID: a.ID, State: a.State, Launch: launch, Reused: true}, nil
}

// fail records Failed and returns the attempt to Idle with its input kept.
func (s *Service) fail(ctx context.Context, a *models.CheckoutAttempt, cause error) error {
	ctx = context.WithoutCancel(ctx)
	a.LastError = errors.UserMessage(cause, "Failed to place order")
	s.transition(a, models.CheckoutFailed)
	s.publish(ctx, events.EventTypeCheckoutFailed, a)

	s.transition(a, models.CheckoutIdle)
	if err := s.save(ctx, a); err != nil {
		s.logger.Error("Failed to record checkout failure", logging.Fields{
			"checkout_id": a.ID,
			"error":       err.Error(),
		})
	}

	s.logger.Warn("Checkout failed", logging.Fields{
		"checkout_id": a.ID,
		"error":       cause.Error(),
	})
	return cause
}

// Abandon ends the attempt. A confirmed attempt cannot be abandoned.
func (s *Service) Abandon(ctx context.Context, userID int64, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	switch a.State {
	case models.CheckoutAbandoned:
		return nil
	case models.CheckoutConfirmed:
		return errors.NewValidationError("checkout", "order already placed")
	}

	s.transition(a, models.CheckoutAbandoned)
	if err := s.save(ctx, a); err != nil {
		return err
	}
	s.publish(ctx, events.EventTypeCheckoutAbandoned, a)
	return nil
}

// HandlePaymentResult applies a payment outcome to the attempt owning
// sessionID. A failed payment keeps the session so the next place-order
// re-opens it.
func (s *Service) HandlePaymentResult(ctx context.Context, sessionID string, orderID int64, succeeded bool, reason string) error {
	found, err := s.repo.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.logger.Warn("Payment result for unknown session", logging.Fields{
				"order_id": orderID,
			})
			return nil
		}
		return err
	}

	unlock := s.locks.Lock(found.ID)
	defer unlock()

	a, err := s.repo.Get(ctx, found.ID)
	if err != nil {
		return err
	}
	if a.State.Terminal() {
		return nil
	}

	if succeeded {
		if orderID > 0 {
			a.OrderID = orderID
		}
		a.LastError = ""
		s.transition(a, models.CheckoutConfirmed)
		if err := s.save(ctx, a); err != nil {
			return err
		}
		s.publish(ctx, events.EventTypeCheckoutConfirmed, a)
		s.logger.Info("Payment confirmed", logging.Fields{
			"checkout_id": a.ID,
			"order_id":    a.OrderID,
		})
		return nil
	}

	if reason == "" {
		reason = "Payment failed"
	}
	a.LastError = reason
	s.transition(a, models.CheckoutFailed)
	if err := s.save(ctx, a); err != nil {
		return err
	}
	s.publish(ctx, events.EventTypeCheckoutFailed, a)
	return nil
}

func errorKind(err error) string {
	var upstream *errors.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return strconv.Itoa(upstream.StatusCode)
	case errors.Is(err, errors.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "transport"
}
