package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/checkout"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// parseQuery reads listing filters. Brands and ratings accept repeated or
// comma separated values.
func parseQuery(c *gin.Context) catalog.Query {
	q := catalog.Query{
		Category:    c.Query("category"),
		Subcategory: c.Query("subcategory"),
		Sort:        c.Query("sort"),
		MaxPrice:    catalog.DefaultMaxPrice,
	}
	if v, err := strconv.ParseFloat(c.Query("minPrice"), 64); err == nil {
		q.MinPrice = v
	}
	if v, err := strconv.ParseFloat(c.Query("maxPrice"), 64); err == nil {
		q.MaxPrice = v
	}
	q.Brands = splitValues(c.QueryArray("brand"))
	for _, r := range splitValues(c.QueryArray("rating")) {
		if n, err := strconv.Atoi(r); err == nil {
			q.Ratings = append(q.Ratings, n)
		}
	}
	return q
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ListProducts handles GET /api/v2/products
func (h *Handlers) ListProducts(c *gin.Context) {
	listing, err := h.catalog.Search(c.Request.Context(), parseQuery(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// NewArrivals handles GET /api/v2/products/new
func (h *Handlers) NewArrivals(c *gin.Context) {
	products, err := h.catalog.NewArrivals(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// TopSelling handles GET /api/v2/products/top-selling
func (h *Handlers) TopSelling(c *gin.Context) {
	products, err := h.catalog.TopSelling(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Brands handles GET /api/v2/products/brands
func (h *Handlers) Brands(c *gin.Context) {
	brands, err := h.catalog.Brands(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands})
}

// GetProduct handles GET /api/v2/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	detail, err := h.catalog.Detail(c.Request.Context(), optionalUser(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetCart handles GET /api/v2/cart
func (h *Handlers) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cart, err := h.catalog.Cart(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cart})
}

type addToCartRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// AddToCart handles POST /api/v2/cart
func (h *Handlers) AddToCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req addToCartRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.catalog.AddToCart(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cart})
}

// ToggleWishlist handles POST /api/v2/wishlist/:productId/toggle
func (h *Handlers) ToggleWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	in, err := h.catalog.ToggleWishlist(c.Request.Context(), userID, productID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"productId": productID, "inWishlist": in})
}

// ListAddresses handles GET /api/v2/addresses
func (h *Handlers) ListAddresses(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	addresses, err := h.catalog.Addresses(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// CreateAddress handles POST /api/v2/addresses
func (h *Handlers) CreateAddress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var addr models.Address
	if !bindJSON(c, &addr) {
		return
	}
	if err := checkout.ValidateAddress(&addr); err != nil {
		handleError(c, err)
		return
	}

	created, err := h.catalog.AddAddress(c.Request.Context(), userID, addr)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
