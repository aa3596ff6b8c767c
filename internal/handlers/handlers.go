package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/admin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/checkout"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/orders"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/session"
)

// Check reports whether a dependency is ready to serve traffic.
type Check func(ctx context.Context) error

// Handlers holds all HTTP handlers for the storefront service.
type Handlers struct {
	catalog  *catalog.Service
	checkout *checkout.Service
	orders   *orders.Service
	admin    *admin.Service
	sessions *session.Manager
	config   *config.Config
	checks   map[string]Check
	logger   *logging.LoggerV2
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	catalogService *catalog.Service,
	checkoutService *checkout.Service,
	ordersService *orders.Service,
	adminService *admin.Service,
	sessions *session.Manager,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		catalog:  catalogService,
		checkout: checkoutService,
		orders:   ordersService,
		admin:    adminService,
		sessions: sessions,
		config:   cfg,
		checks:   make(map[string]Check),
		logger:   logging.NewLoggerV2("handlers"),
	}
}

// AddReadinessCheck registers a dependency probed by GET /ready.
func (h *Handlers) AddReadinessCheck(name string, check Check) {
	h.checks[name] = check
}

// currentUser returns the id of the signed-in user, writing 401 when absent.
func currentUser(c *gin.Context) (int64, bool) {
	s, ok := session.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login to continue"})
		return 0, false
	}
	return s.User.ID, true
}

// optionalUser returns the signed-in user's id or 0.
func optionalUser(c *gin.Context) int64 {
	if s, ok := session.FromContext(c.Request.Context()); ok {
		return s.User.ID
	}
	return 0
}

func currentAdmin(c *gin.Context) (*session.Admin, bool) {
	a, ok := session.AdminFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
		return nil, false
	}
	return a, true
}

// paramID parses a positive integer path parameter, writing 400 when invalid.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func handleError(c *gin.Context, err error) {
	var validationErr *errors.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"details": validationErr.Details,
		})
		return
	}

	var couponErr *errors.CouponError
	if errors.As(err, &couponErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": couponErr.Error()})
		return
	}

	var upstreamErr *errors.UpstreamError
	if errors.As(err, &upstreamErr) {
		status := http.StatusBadGateway
		if upstreamErr.StatusCode >= 400 && upstreamErr.StatusCode < 500 {
			status = upstreamErr.StatusCode
		}
		c.JSON(status, gin.H{"error": errors.UserMessage(err, "upstream request failed")})
		return
	}

	switch {
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, errors.ErrPaymentUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errors.UserMessage(err, "")})
	case errors.Is(err, errors.ErrMalformedResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "unexpected response from backend"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "backend timed out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
