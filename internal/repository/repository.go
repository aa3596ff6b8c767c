package repository

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var (
	_ CheckoutRepository = (*PostgresCheckoutRepository)(nil)
	_ CheckoutRepository = (*MemoryCheckoutRepository)(nil)
	_ CatalogCache       = (*RedisCatalogCache)(nil)
)

// CheckoutRepository stores checkout attempts. Get and GetBySession return
// errors.ErrNotFound for unknown keys.
type CheckoutRepository interface {
	Create(ctx context.Context, a *models.CheckoutAttempt) error
	Get(ctx context.Context, id string) (*models.CheckoutAttempt, error)
	GetBySession(ctx context.Context, sessionID string) (*models.CheckoutAttempt, error)
	Update(ctx context.Context, a *models.CheckoutAttempt) error
	// Claim moves an Idle or Failed attempt without a payment session to
	// Submitting and reports whether it did. An attempt left in flight
	// before staleBefore can be claimed again.
	Claim(ctx context.Context, id string, now, staleBefore time.Time) (bool, error)
}

// CatalogCache caches the full product list. A miss returns nil, nil.
type CatalogCache interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	SetProducts(ctx context.Context, products []models.Product) error
	Invalidate(ctx context.Context) error
}
