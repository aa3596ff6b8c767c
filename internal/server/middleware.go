package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/session"
)

// requestID propagates X-Request-ID, generating one when absent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(clients.HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(clients.HeaderRequestID, id)
		c.Request = c.Request.WithContext(clients.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logging.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": clients.RequestIDFrom(c.Request.Context()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("Request failed", fields)
			return
		}
		s.logger.Debug("Request handled", fields)
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// optionalSession attaches the session for a valid bearer token. Unknown
// tokens are treated as anonymous.
func (s *Server) optionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		sess, err := s.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, errors.ErrUnauthorized) {
				s.logger.Warn("Failed to resolve session", logging.Fields{"error": err.Error()})
			}
			c.Next()
			return
		}

		ctx := session.WithSession(c.Request.Context(), sess)
		c.Request = c.Request.WithContext(clients.WithBearer(ctx, sess.Token))
		c.Next()
	}
}

// requireSession rejects requests without a resolved session.
func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := session.FromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please login to continue"})
			return
		}
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := s.admins.Parse(session.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}

		ctx := session.WithAdmin(c.Request.Context(), a)
		c.Request = c.Request.WithContext(clients.WithBearer(ctx, a.Token))
		c.Next()
	}
}
