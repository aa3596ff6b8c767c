// Package session holds the storefront identity (user + token) and the
// admin bearer identity.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Session is the persisted storefront identity.
type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Store persists sessions keyed by token.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// Manager owns the session lifecycle: Login on sign-in, Resolve on every
// request, Logout on sign-out.
type Manager struct {
	store  Store
	now    func() time.Time
	logger *logging.LoggerV2
}

func NewManager(store Store) *Manager {
	return &Manager{
		store:  store,
		now:    time.Now,
		logger: logging.NewLoggerV2("session"),
	}
}

// Login persists the user and token issued by the backend.
func (m *Manager) Login(ctx context.Context, user models.User, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.NewValidationError("token", "Token is required")
	}
	if user.ID <= 0 {
		return nil, errors.NewValidationError("user", "User is required")
	}

	s := &Session{User: user, Token: token, CreatedAt: m.now().UTC()}
	if err := m.store.Save(ctx, s); err != nil {
		m.logger.Error("Failed to save session", logging.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return nil, err
	}

	m.logger.Info("Session started", logging.Fields{"user_id": user.ID})
	return s, nil
}

// Resolve returns the session for token or ErrUnauthorized.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.ErrUnauthorized
	}

	s, err := m.store.Load(ctx, token)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Logout clears the stored session. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return err
	}
	m.logger.Info("Session ended")
	return nil
}

type ctxKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
