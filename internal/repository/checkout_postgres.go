package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// CheckoutSchema creates the checkout attempt table.
const CheckoutSchema = `
	CREATE TABLE IF NOT EXISTS checkout_attempts (
		id                 TEXT PRIMARY KEY,
		user_id            BIGINT NOT NULL,
		source             TEXT NOT NULL,
		product_id         BIGINT NOT NULL DEFAULT 0,
		quantity           INTEGER NOT NULL DEFAULT 1,
		address_id         BIGINT NOT NULL DEFAULT 0,
		payment_method     TEXT NOT NULL,
		coupon_code        TEXT NOT NULL DEFAULT '',
		coupon_discount    DOUBLE PRECISION NOT NULL DEFAULT 0,
		coupon_applied     BOOLEAN NOT NULL DEFAULT FALSE,
		state              TEXT NOT NULL,
		draft              JSONB,
		idempotency_key    TEXT NOT NULL DEFAULT '',
		payment_session_id TEXT NOT NULL DEFAULT '',
		order_id           BIGINT NOT NULL DEFAULT 0,
		last_error         TEXT NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS checkout_attempts_session_idx
		ON checkout_attempts (payment_session_id) WHERE payment_session_id <> '';
`

const checkoutColumns = `
	id, user_id, source, product_id, quantity, address_id, payment_method,
	coupon_code, coupon_discount, coupon_applied, state, draft, idempotency_key,
	payment_session_id, order_id, last_error, created_at, updated_at
`

// PostgresCheckoutRepository persists checkout attempts so a stored payment
// session survives restarts and is visible to every replica. Claim is the
// only cross-replica guard on submission.
type PostgresCheckoutRepository struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

func NewPostgresCheckoutRepository(db *sql.DB, logger *logging.LoggerV2) *PostgresCheckoutRepository {
	return &PostgresCheckoutRepository{
		db:     db,
		logger: logger,
	}
}

// Migrate applies CheckoutSchema.
func (r *PostgresCheckoutRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, CheckoutSchema)
	return err
}

// Create inserts a new attempt.
func (r *PostgresCheckoutRepository) Create(ctx context.Context, a *models.CheckoutAttempt) error {
	r.logger.Debug("Creating checkout attempt", logging.Fields{
		"checkout_id": a.ID,
		"user_id":     a.UserID,
	})

	query := `INSERT INTO checkout_attempts (` + checkoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Source,
		a.ProductID,
		a.Quantity,
		a.AddressID,
		a.PaymentMethod,
		a.CouponCode,
		a.CouponDiscount,
		a.CouponApplied,
		a.State,
		nullableJSON(a.Draft),
		a.IdempotencyKey,
		a.PaymentSessionID,
		a.OrderID,
		a.LastError,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create checkout attempt", logging.Fields{
			"checkout_id": a.ID,
			"error":       err.Error(),
		})
		return err
	}
	return nil
}

// Get retrieves an attempt by id.
func (r *PostgresCheckoutRepository) Get(ctx context.Context, id string) (*models.CheckoutAttempt, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkout_attempts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetBySession retrieves the attempt that owns a payment session.
func (r *PostgresCheckoutRepository) GetBySession(ctx context.Context, sessionID string) (*models.CheckoutAttempt, error) {
	if sessionID == "" {
		return nil, errors.ErrNotFound
	}
	query := `SELECT ` + checkoutColumns + ` FROM checkout_attempts WHERE payment_session_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, sessionID))
}

// Update overwrites the mutable fields of an attempt.
func (r *PostgresCheckoutRepository) Update(ctx context.Context, a *models.CheckoutAttempt) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE checkout_attempts
		SET quantity = $2, address_id = $3, payment_method = $4, coupon_code = $5,
		    coupon_discount = $6, coupon_applied = $7, state = $8, draft = $9,
		    idempotency_key = $10, payment_session_id = $11, order_id = $12,
		    last_error = $13, updated_at = $14
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Quantity,
		a.AddressID,
		a.PaymentMethod,
		a.CouponCode,
		a.CouponDiscount,
		a.CouponApplied,
		a.State,
		nullableJSON(a.Draft),
		a.IdempotencyKey,
		a.PaymentSessionID,
		a.OrderID,
		a.LastError,
		a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update checkout attempt", logging.Fields{
			"checkout_id": a.ID,
			"error":       err.Error(),
		})
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrNotFound
	}

	r.logger.Debug("Checkout attempt updated", logging.Fields{
		"checkout_id": a.ID,
		"state":       a.State,
	})
	return nil
}

// Claim takes the attempt for submission with a single conditional UPDATE.
func (r *PostgresCheckoutRepository) Claim(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE checkout_attempts
		SET state = $2, last_error = '', updated_at = $3
		WHERE id = $1 AND payment_session_id = ''
		  AND (state IN ($4, $5) OR (state IN ($2, $6) AND updated_at < $7))
	`
	res, err := r.db.ExecContext(ctx, query,
		id,
		models.CheckoutSubmitting,
		now,
		models.CheckoutIdle,
		models.CheckoutFailed,
		models.CheckoutDraftReceived,
		staleBefore,
	)
	if err != nil {
		r.logger.Error("Failed to claim checkout attempt", logging.Fields{
			"checkout_id": id,
			"error":       err.Error(),
		})
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	r.logger.Debug("Checkout claim", logging.Fields{
		"checkout_id": id,
		"claimed":     n == 1,
	})
	return n == 1, nil
}

func (r *PostgresCheckoutRepository) scanOne(row *sql.Row) (*models.CheckoutAttempt, error) {
	var a models.CheckoutAttempt
	var draft []byte

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Source,
		&a.ProductID,
		&a.Quantity,
		&a.AddressID,
		&a.PaymentMethod,
		&a.CouponCode,
		&a.CouponDiscount,
		&a.CouponApplied,
		&a.State,
		&draft,
		&a.IdempotencyKey,
		&a.PaymentSessionID,
		&a.OrderID,
		&a.LastError,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(draft) > 0 {
		a.Draft = draft
	}
	return &a, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
