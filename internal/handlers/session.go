package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/session"
)

type loginRequest struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Login handles POST /api/v2/session
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	s, err := h.sessions.Login(c.Request.Context(), req.User, req.Token)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, s)
}

// CurrentSession handles GET /api/v2/session
func (h *Handlers) CurrentSession(c *gin.Context) {
	s, ok := session.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login to continue"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// Logout handles DELETE /api/v2/session
func (h *Handlers) Logout(c *gin.Context) {
	token := session.BearerToken(c.GetHeader("Authorization"))
	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		handleError(c, err)
		return
	}
	if userID := optionalUser(c); userID > 0 {
		h.orders.Forget(userID)
	}
	c.Status(http.StatusNoContent)
}

// AdminLogout handles DELETE /api/v2/admin/session. Admin tokens are
// stateless, so only the held views are dropped.
func (h *Handlers) AdminLogout(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	h.admin.Forget(a.ID)
	c.Status(http.StatusNoContent)
}
