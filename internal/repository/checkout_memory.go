package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// MemoryCheckoutRepository keeps attempts in process. Used in tests and
// when no database is configured.
type MemoryCheckoutRepository struct {
	mu       sync.RWMutex
	attempts map[string]models.CheckoutAttempt
}

func NewMemoryCheckoutRepository() *MemoryCheckoutRepository {
	return &MemoryCheckoutRepository{attempts: make(map[string]models.CheckoutAttempt)}
}

func (r *MemoryCheckoutRepository) Create(_ context.Context, a *models.CheckoutAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.attempts[a.ID]; exists {
		return errors.NewValidationError("id", "checkout attempt already exists")
	}
	r.attempts[a.ID] = clone(a)
	return nil
}

func (r *MemoryCheckoutRepository) Get(_ context.Context, id string) (*models.CheckoutAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := clone(&a)
	return &out, nil
}

func (r *MemoryCheckoutRepository) GetBySession(_ context.Context, sessionID string) (*models.CheckoutAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sessionID == "" {
		return nil, errors.ErrNotFound
	}
	for _, a := range r.attempts {
		if a.PaymentSessionID == sessionID {
			out := clone(&a)
			return &out, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (r *MemoryCheckoutRepository) Update(_ context.Context, a *models.CheckoutAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[a.ID]; !ok {
		return errors.ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	r.attempts[a.ID] = clone(a)
	return nil
}

func (r *MemoryCheckoutRepository) Claim(_ context.Context, id string, now, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok || a.PaymentSessionID != "" {
		return false, nil
	}
	switch {
	case a.State == models.CheckoutIdle, a.State == models.CheckoutFailed:
	case a.State.InFlight() && a.UpdatedAt.Before(staleBefore):
	default:
		return false, nil
	}
	a.State = models.CheckoutSubmitting
	a.LastError = ""
	a.UpdatedAt = now
	r.attempts[id] = a
	return true, nil
}

func clone(a *models.CheckoutAttempt) models.CheckoutAttempt {
	out := *a
	if a.Draft != nil {
		out.Draft = append([]byte(nil), a.Draft...)
	}
	return out
}
