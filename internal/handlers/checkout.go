package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/checkout"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// StartCheckout handles POST /api/v2/checkouts
func (h *Handlers) StartCheckout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req checkout.StartRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.checkout.Start(c.Request.Context(), userID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetCheckout handles GET /api/v2/checkouts/:id
func (h *Handlers) GetCheckout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.checkout.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateCheckout handles PATCH /api/v2/checkouts/:id
func (h *Handlers) UpdateCheckout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req checkout.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.checkout.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type couponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon handles POST /api/v2/checkouts/:id/coupon
func (h *Handlers) ApplyCoupon(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req couponRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.checkout.ApplyCoupon(c.Request.Context(), userID, c.Param("id"), req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveCoupon handles DELETE /api/v2/checkouts/:id/coupon
func (h *Handlers) RemoveCoupon(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.checkout.RemoveCoupon(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddCheckoutAddress handles POST /api/v2/checkouts/:id/addresses
func (h *Handlers) AddCheckoutAddress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var addr models.Address
	if !bindJSON(c, &addr) {
		return
	}

	view, err := h.checkout.AddAddress(c.Request.Context(), userID, c.Param("id"), addr)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// PlaceOrder handles POST /api/v2/checkouts/:id/place
func (h *Handlers) PlaceOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.checkout.PlaceOrder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AbandonCheckout handles POST /api/v2/checkouts/:id/abandon
func (h *Handlers) AbandonCheckout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.checkout.Abandon(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
