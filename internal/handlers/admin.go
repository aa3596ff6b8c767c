package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/admin"
)

// Dashboard handles GET /api/v2/admin/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AdminListUsers handles GET /api/v2/admin/users
func (h *Handlers) AdminListUsers(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}

	users, err := h.admin.Users(c.Request.Context(), a.ID, c.Query("q"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handlers) setUserBlocked(c *gin.Context, blocked bool) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	users, err := h.admin.SetUserBlocked(c.Request.Context(), a.ID, userID, blocked)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// AdminBlockUser handles POST /api/v2/admin/users/:id/block
func (h *Handlers) AdminBlockUser(c *gin.Context) { h.setUserBlocked(c, true) }

// AdminUnblockUser handles POST /api/v2/admin/users/:id/unblock
func (h *Handlers) AdminUnblockUser(c *gin.Context) { h.setUserBlocked(c, false) }

// AdminRemoveUser handles DELETE /api/v2/admin/users/:id. The backend has no
// delete endpoint, so only the held list changes.
func (h *Handlers) AdminRemoveUser(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	users, err := h.admin.RemoveUser(a.ID, userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// AdminListProducts handles GET /api/v2/admin/products
func (h *Handlers) AdminListProducts(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}

	products, err := h.admin.Products(c.Request.Context(), a.ID, c.Query("q"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// AdminDeleteProduct handles DELETE /api/v2/admin/products/:id
func (h *Handlers) AdminDeleteProduct(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	products, err := h.admin.DeleteProduct(c.Request.Context(), a.ID, productID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// AdminListSellers handles GET /api/v2/admin/sellers
func (h *Handlers) AdminListSellers(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}

	sellers, err := h.admin.Sellers(c.Request.Context(), a.ID, c.Query("q"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellers": sellers})
}

// AdminSellerRequests handles GET /api/v2/admin/sellers/requests
func (h *Handlers) AdminSellerRequests(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}

	sellers, err := h.admin.SellerRequests(c.Request.Context(), a.ID, c.Query("q"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellers": sellers})
}

// AdminGetSeller handles GET /api/v2/admin/sellers/:id
func (h *Handlers) AdminGetSeller(c *gin.Context) {
	sellerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	seller, err := h.admin.Seller(c.Request.Context(), sellerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

func (h *Handlers) setSellerBlocked(c *gin.Context, blocked bool) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	sellerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	sellers, err := h.admin.SetSellerBlocked(c.Request.Context(), a.ID, sellerID, blocked)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellers": sellers})
}

// AdminBlockSeller handles POST /api/v2/admin/sellers/:id/block
func (h *Handlers) AdminBlockSeller(c *gin.Context) { h.setSellerBlocked(c, true) }

// AdminUnblockSeller handles POST /api/v2/admin/sellers/:id/unblock
func (h *Handlers) AdminUnblockSeller(c *gin.Context) { h.setSellerBlocked(c, false) }

// AdminDeleteSeller handles DELETE /api/v2/admin/sellers/:id
func (h *Handlers) AdminDeleteSeller(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	sellerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	sellers, err := h.admin.DeleteSeller(c.Request.Context(), a.ID, sellerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellers": sellers})
}

// AdminApproveSeller handles POST /api/v2/admin/sellers/requests/:id/approve
func (h *Handlers) AdminApproveSeller(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	sellerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	sellers, err := h.admin.ApproveSeller(c.Request.Context(), a.ID, sellerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellers": sellers})
}

// AdminRejectSeller handles POST /api/v2/admin/sellers/requests/:id/reject
func (h *Handlers) AdminRejectSeller(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	sellerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	sellers, err := h.admin.RejectSeller(c.Request.Context(), a.ID, sellerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellers": sellers})
}

// AdminListComplaints handles GET /api/v2/admin/complaints
func (h *Handlers) AdminListComplaints(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}

	filter := admin.ComplaintFilter{
		Query:    c.Query("q"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	}
	complaints, err := h.admin.Complaints(c.Request.Context(), a.ID, filter)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

// AdminUpdateComplaint handles PUT /api/v2/admin/complaints/:id
func (h *Handlers) AdminUpdateComplaint(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}
	complaintID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req admin.ComplaintInput
	if !bindJSON(c, &req) {
		return
	}

	complaints, err := h.admin.UpdateComplaint(c.Request.Context(), a.ID, complaintID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

// AdminListOrders handles GET /api/v2/admin/orders
func (h *Handlers) AdminListOrders(c *gin.Context) {
	a, ok := currentAdmin(c)
	if !ok {
		return
	}

	orders, err := h.admin.Orders(c.Request.Context(), a.ID, c.Query("q"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
