package checkout

import (
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const defaultCountry = "India"

// ValidateAddress checks the fields the address form requires.
func ValidateAddress(addr *models.Address) error {
	addr.Street = strings.TrimSpace(addr.Street)
	addr.City = strings.TrimSpace(addr.City)
	addr.State = strings.TrimSpace(addr.State)
	addr.PostalCode = strings.TrimSpace(addr.PostalCode)

	if addr.Street == "" || addr.City == "" || addr.State == "" || addr.PostalCode == "" {
		return errors.NewValidationError("address", "Please fill all required fields")
	}
	if strings.TrimSpace(addr.Country) == "" {
		addr.Country = defaultCountry
	}
	if strings.TrimSpace(addr.Label) == "" {
		addr.Label = "Home"
	}
	return nil
}

// ValidatePaymentMethod accepts the hosted online method and cash on delivery.
func ValidatePaymentMethod(m models.PaymentMethod) error {
	if m == models.PaymentMethodCOD || m.IsOnline() {
		return nil
	}
	return errors.NewValidationError("payment_method", "unsupported payment method")
}

// ClampQuantity bounds q to [1, stock]. Out of stock still yields 1.
func ClampQuantity(q, stock int) int {
	if q > stock {
		q = stock
	}
	if q < 1 {
		q = 1
	}
	return q
}

func frozen(a *models.CheckoutAttempt) error {
	switch {
	case a.State == models.CheckoutAbandoned:
		return errors.NewValidationError("checkout", "checkout was abandoned")
	case a.State == models.CheckoutConfirmed:
		return errors.NewValidationError("checkout", "order already placed")
	case a.PaymentSessionID != "":
		return errors.NewValidationError("checkout", "payment already started for this checkout")
	case a.State.InFlight():
		return errors.NewValidationError("checkout", "order is being placed")
	}
	return nil
}
