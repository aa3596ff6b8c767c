package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/orders"
)

// ListOrders handles GET /api/v2/orders. Every visit refetches the history.
func (h *Handlers) ListOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page, err := h.orders.Enter(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CancelOrder handles POST /api/v2/orders/:id/cancel
func (h *Handlers) CancelOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	page, err := h.orders.Cancel(c.Request.Context(), userID, orderID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type formRequest struct {
	Kind   orders.FormKind `json:"kind"`
	ItemID int64           `json:"itemId"`
}

// ToggleForm handles POST /api/v2/orders/forms
func (h *Handlers) ToggleForm(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req formRequest
	if !bindJSON(c, &req) {
		return
	}

	page, err := h.orders.ToggleForm(c.Request.Context(), userID, req.Kind, req.ItemID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CloseForm handles DELETE /api/v2/orders/forms
func (h *Handlers) CloseForm(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page, err := h.orders.CloseForm(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// orderItem reads the user and the :id/:itemId path pair.
func orderItem(c *gin.Context) (userID, orderID, itemID int64, ok bool) {
	if userID, ok = currentUser(c); !ok {
		return
	}
	if orderID, ok = paramID(c, "id"); !ok {
		return
	}
	itemID, ok = paramID(c, "itemId")
	return
}

// SubmitReview handles POST /api/v2/orders/:id/items/:itemId/review
func (h *Handlers) SubmitReview(c *gin.Context) {
	userID, orderID, itemID, ok := orderItem(c)
	if !ok {
		return
	}
	var req orders.ReviewInput
	if !bindJSON(c, &req) {
		return
	}

	page, err := h.orders.SubmitReview(c.Request.Context(), userID, orderID, itemID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

type returnRequest struct {
	Reason string `json:"reason"`
}

// SubmitReturn handles POST /api/v2/orders/:id/items/:itemId/return
func (h *Handlers) SubmitReturn(c *gin.Context) {
	userID, orderID, itemID, ok := orderItem(c)
	if !ok {
		return
	}
	var req returnRequest
	if !bindJSON(c, &req) {
		return
	}

	page, err := h.orders.SubmitReturn(c.Request.Context(), userID, orderID, itemID, req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

// SubmitComplaint handles POST /api/v2/orders/:id/items/:itemId/complaint
func (h *Handlers) SubmitComplaint(c *gin.Context) {
	userID, orderID, itemID, ok := orderItem(c)
	if !ok {
		return
	}
	var req orders.ComplaintInput
	if !bindJSON(c, &req) {
		return
	}

	page, err := h.orders.SubmitComplaint(c.Request.Context(), userID, orderID, itemID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

// ComplaintTypes handles GET /api/v2/complaint-types
func (h *Handlers) ComplaintTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"complaintTypes": models.ComplaintTypes})
}
