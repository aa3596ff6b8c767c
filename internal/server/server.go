package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/session"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	http     *http.Server
	handlers *handlers.Handlers
	metrics  *metrics.AppMetrics
	sessions *session.Manager
	admins   *session.AdminParser
	logger   *logging.LoggerV2
}

func New(
	h *handlers.Handlers,
	cfg *config.Config,
	m *metrics.AppMetrics,
	sessions *session.Manager,
	admins *session.AdminParser,
) *Server {
	router := gin.New()

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		metrics:  m,
		sessions: sessions,
		admins:   admins,
		logger:   logging.NewLoggerV2("server"),
	}

	router.Use(gin.Recovery(), requestID(), s.requestLogger(), s.observe())
	if cfg.Server.RateLimit > 0 {
		router.Use(rateLimit(newLimiters(cfg.Server.RateLimit, cfg.Server.RateBurst)))
	}
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.Health)
	s.router.GET("/ready", h.Ready)
	s.router.GET("/live", h.Live)
	s.router.GET("/version", h.Version)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v2 := s.router.Group("/api/v2")
	v2.Use(s.optionalSession())
	{
		v2.POST("/session", h.Login)
		v2.GET("/session", h.CurrentSession)
		v2.DELETE("/session", h.Logout)

		v2.GET("/products", h.ListProducts)
		v2.GET("/products/new", h.NewArrivals)
		v2.GET("/products/top-selling", h.TopSelling)
		v2.GET("/products/brands", h.Brands)
		v2.GET("/products/:id", h.GetProduct)
		v2.GET("/complaint-types", h.ComplaintTypes)
	}

	user := v2.Group("")
	user.Use(requireSession())
	{
		user.GET("/cart", h.GetCart)
		user.POST("/cart", h.AddToCart)
		user.POST("/wishlist/:productId/toggle", h.ToggleWishlist)
		user.GET("/addresses", h.ListAddresses)
		user.POST("/addresses", h.CreateAddress)

		user.POST("/checkouts", h.StartCheckout)
		user.GET("/checkouts/:id", h.GetCheckout)
		user.PATCH("/checkouts/:id", h.UpdateCheckout)
		user.POST("/checkouts/:id/coupon", h.ApplyCoupon)
		user.DELETE("/checkouts/:id/coupon", h.RemoveCoupon)
		user.POST("/checkouts/:id/addresses", h.AddCheckoutAddress)
		user.POST("/checkouts/:id/place", h.PlaceOrder)
		user.POST("/checkouts/:id/abandon", h.AbandonCheckout)

		user.GET("/orders", h.ListOrders)
		user.POST("/orders/:id/cancel", h.CancelOrder)
		user.POST("/orders/forms", h.ToggleForm)
		user.DELETE("/orders/forms", h.CloseForm)
		user.POST("/orders/:id/items/:itemId/review", h.SubmitReview)
		user.POST("/orders/:id/items/:itemId/return", h.SubmitReturn)
		user.POST("/orders/:id/items/:itemId/complaint", h.SubmitComplaint)
	}

	admin := s.router.Group("/api/v2/admin")
	admin.Use(s.requireAdmin())
	{
		admin.DELETE("/session", h.AdminLogout)
		admin.GET("/dashboard", h.Dashboard)

		admin.GET("/users", h.AdminListUsers)
		admin.POST("/users/:id/block", h.AdminBlockUser)
		admin.POST("/users/:id/unblock", h.AdminUnblockUser)
		admin.DELETE("/users/:id", h.AdminRemoveUser)

		admin.GET("/products", h.AdminListProducts)
		admin.DELETE("/products/:id", h.AdminDeleteProduct)

		admin.GET("/sellers", h.AdminListSellers)
		admin.GET("/sellers/requests", h.AdminSellerRequests)
		admin.GET("/sellers/:id", h.AdminGetSeller)
		admin.POST("/sellers/:id/block", h.AdminBlockSeller)
		admin.POST("/sellers/:id/unblock", h.AdminUnblockSeller)
		admin.DELETE("/sellers/:id", h.AdminDeleteSeller)
		admin.POST("/sellers/requests/:id/approve", h.AdminApproveSeller)
		admin.POST("/sellers/requests/:id/reject", h.AdminRejectSeller)

		admin.GET("/complaints", h.AdminListComplaints)
		admin.PUT("/complaints/:id", h.AdminUpdateComplaint)

		admin.GET("/orders", h.AdminListOrders)
	}
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed
// after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("Listening", logging.Fields{"addr": s.http.Addr})
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
