package clients

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

// RedirectSelf opens the hosted checkout in the current tab.
const RedirectSelf = "_self"

// Launch tells a client how to open the hosted checkout for a session.
type Launch struct {
	SessionID      string `json:"paymentSessionId"`
	RedirectURL    string `json:"redirectUrl"`
	RedirectTarget string `json:"redirectTarget"`
	Mode           string `json:"mode"`
}

// PaymentGateway initiates hosted checkout. Completion happens on the
// provider's side and is reported back through payment events.
type PaymentGateway interface {
	Ready() bool
	Open(ctx context.Context, sessionID string) (*Launch, error)
}

// HostedCheckout builds launch instructions for the provider's hosted page.
type HostedCheckout struct {
	mode        string
	checkoutURL string
	enabled     bool
	ready       atomic.Bool
	logger      *logging.LoggerV2
}

func NewHostedCheckout(cfg config.PaymentConfig, logger *logging.LoggerV2) *HostedCheckout {
	return &HostedCheckout{
		mode:        strings.ToLower(cfg.Mode),
		checkoutURL: cfg.CheckoutURL,
		enabled:     cfg.Enabled,
		logger:      logger,
	}
}

// Load validates the provider settings and marks the gateway ready.
// Online payments are refused until Load succeeds.
func (h *HostedCheckout) Load(_ context.Context) error {
	if !h.enabled {
		h.logger.Warn("Hosted checkout disabled")
		return errors.ErrPaymentUnavailable
	}
	if h.mode != "sandbox" && h.mode != "production" {
		return fmt.Errorf("unknown payment mode %q", h.mode)
	}
	u, err := url.Parse(h.checkoutURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid checkout url %q", h.checkoutURL)
	}

	h.ready.Store(true)
	h.logger.Info("Hosted checkout loaded", logging.Fields{"mode": h.mode})
	return nil
}

func (h *HostedCheckout) Ready() bool {
	return h.ready.Load()
}

func (h *HostedCheckout) Open(ctx context.Context, sessionID string) (*Launch, error) {
	if !h.Ready() {
		return nil, errors.ErrPaymentUnavailable
	}
	if sessionID == "" {
		return nil, errors.NewValidationError("payment_session_id", "Failed to initiate payment session")
	}

	u, _ := url.Parse(h.checkoutURL)
	q := u.Query()
	q.Set("payment_session_id", sessionID)
	u.RawQuery = q.Encode()

	h.logger.Info("Opening hosted checkout", logging.Fields{
		"request_id": RequestIDFrom(ctx),
		"mode":       h.mode,
	})

	return &Launch{
		SessionID:      sessionID,
		RedirectURL:    u.String(),
		RedirectTarget: RedirectSelf,
		Mode:           h.mode,
	}, nil
}

// MockGateway records every Open call.
type MockGateway struct {
	mu       sync.Mutex
	NotReady bool
	Opened   []string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Ready() bool {
	return !m.NotReady
}

func (m *MockGateway) Open(_ context.Context, sessionID string) (*Launch, error) {
	if m.NotReady {
		return nil, errors.ErrPaymentUnavailable
	}
	m.mu.Lock()
	m.Opened = append(m.Opened, sessionID)
	m.mu.Unlock()
	return &Launch{SessionID: sessionID, RedirectTarget: RedirectSelf, Mode: "sandbox"}, nil
}

// Opens returns a copy of the session ids opened so far.
func (m *MockGateway) Opens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Opened...)
}
