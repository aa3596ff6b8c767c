package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/admin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/checkout"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/orders"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/session"
)

const testUser int64 = 7

func newTestHandlers(t *testing.T) (*Handlers, *clients.MockBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := clients.NewMockBackend()
	backend.Products[1] = models.Product{ID: 1, Name: "Headphones", Brand: "Sonic", Category: "Electronics", Price: 2000, Discount: 10, Stock: 5, AverageRating: 4.5}
	backend.Products[2] = models.Product{ID: 2, Name: "Cable", Brand: "Wire", Category: "Electronics", Price: 250, Stock: 2, AverageRating: 3.2}
	backend.Addresses[testUser] = []models.Address{
		{ID: 11, UserID: testUser, Street: "1 MG Road", City: "Pune", State: "MH", PostalCode: "411001", Country: "India", Label: "Home"},
	}
	backend.Complaints = []models.Complaint{{ID: 30, Description: "Late", Status: "Open", Priority: "High"}}

	m := metrics.New()
	rules := pricing.DefaultRules()
	checkoutService := checkout.NewService(
		repository.NewMemoryCheckoutRepository(),
		backend,
		backend,
		clients.NewMockGateway(),
		events.NewMockPublisher(),
		rules,
		rules.CartRules(9),
		m,
	)

	h := NewHandlers(
		catalog.NewService(backend, nil),
		checkoutService,
		orders.NewService(backend, events.NewMockPublisher(), m),
		admin.NewService(backend),
		session.NewManager(session.NewMemoryStore()),
		&config.Config{},
	)
	return h, backend
}

// asUser attaches a session the way the server middleware does.
func asUser(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := &session.Session{User: models.User{ID: userID}, Token: "tok"}
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
		c.Next()
	}
}

func asAdmin(adminID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := &session.Admin{ID: adminID, Token: "admin-tok"}
		c.Request = c.Request.WithContext(session.WithAdmin(c.Request.Context(), a))
		c.Next()
	}
}

func perform(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "storefront-service", resp["service"])
}

func TestReady(t *testing.T) {
	h, _ := newTestHandlers(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h.AddReadinessCheck("redis", func(context.Context) error { return fmt.Errorf("connection refused") })

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	failed := decode(t, w)["failed"].(map[string]interface{})
	assert.Equal(t, "connection refused", failed["redis"])
}

func TestLive(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", errors.NewValidationError("addressId", "Please select a shipping address"), http.StatusBadRequest, "Please select a shipping address"},
		{"coupon", &errors.CouponError{Code: "BAD", Message: "Coupon expired"}, http.StatusUnprocessableEntity, "Coupon expired"},
		{"upstream 4xx", &errors.UpstreamError{StatusCode: 409, Message: "Out of stock"}, http.StatusConflict, "Out of stock"},
		{"upstream 5xx", &errors.UpstreamError{StatusCode: 500}, http.StatusBadGateway, "upstream request failed"},
		{"not found", fmt.Errorf("checkout: %w", errors.ErrNotFound), http.StatusNotFound, "not found"},
		{"unauthorized", errors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"payment unavailable", errors.ErrPaymentUnavailable, http.StatusServiceUnavailable, "Payment system loading, please wait..."},
		{"malformed", fmt.Errorf("decode: %w", errors.ErrMalformedResponse), http.StatusBadGateway, "unexpected response from backend"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "backend timed out"},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			handleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["error"])
		})
	}
}

func TestListProducts_Filters(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := gin.New()
	r.GET("/products", h.ListProducts)

	w := perform(r, http.MethodGet, "/products?category=Electronics&rating=4&sort=priceLowToHigh", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var listing catalog.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Products, 1)
	assert.Equal(t, int64(1), listing.Products[0].ID)
	assert.Equal(t, []string{"Sonic", "Wire"}, listing.Brands)
}

func TestParseQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/products?brand=Sonic,Wire&brand=Acme&rating=4&rating=x&minPrice=100", nil)

	q := parseQuery(c)

	assert.Equal(t, []string{"Sonic", "Wire", "Acme"}, q.Brands)
	assert.Equal(t, []int{4}, q.Ratings)
	assert.Equal(t, 100.0, q.MinPrice)
	assert.Equal(t, float64(catalog.DefaultMaxPrice), q.MaxPrice)
}

func TestGetProduct(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := gin.New()
	r.GET("/products/:id", h.GetProduct)

	w := perform(r, http.MethodGet, "/products/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodGet, "/products/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodGet, "/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCart_RequiresLogin(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := gin.New()
	r.GET("/cart", h.GetCart)

	w := perform(r, http.MethodGet, "/cart", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Please login to continue", decode(t, w)["error"])
}

func TestAddToCart(t *testing.T) {
	h, backend := newTestHandlers(t)
	r := gin.New()
	r.Use(asUser(testUser))
	r.POST("/cart", h.AddToCart)

	w := perform(r, http.MethodPost, "/cart", gin.H{"productId": 2})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, backend.Carts[testUser], 1)
	assert.Equal(t, 1, backend.Carts[testUser][0].Quantity)
}

func TestCreateAddress_Validation(t *testing.T) {
	h, backend := newTestHandlers(t)
	r := gin.New()
	r.Use(asUser(testUser))
	r.POST("/addresses", h.CreateAddress)

	w := perform(r, http.MethodPost, "/addresses", gin.H{"street": "5 Hill Rd", "city": "Mumbai"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please fill all required fields", decode(t, w)["error"])

	w = perform(r, http.MethodPost, "/addresses", gin.H{
		"street": "5 Hill Rd", "city": "Mumbai", "state": "MH", "postalCode": "400050",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, backend.Addresses[testUser], 2)
	assert.Equal(t, "India", decode(t, w)["country"])
}

func TestCheckoutFlow(t *testing.T) {
	h, backend := newTestHandlers(t)
	r := gin.New()
	r.Use(asUser(testUser))
	r.POST("/checkouts", h.StartCheckout)
	r.GET("/checkouts/:id", h.GetCheckout)
	r.PATCH("/checkouts/:id", h.UpdateCheckout)
	r.POST("/checkouts/:id/place", h.PlaceOrder)

	w := perform(r, http.MethodPost, "/checkouts", gin.H{"productId": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	var view checkout.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	id := view.Checkout.ID
	assert.Equal(t, 2124.0, view.Summary.Final)

	w = perform(r, http.MethodPatch, "/checkouts/"+id, gin.H{"paymentMethod": "COD", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/checkouts/"+id+"/place", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result checkout.PlaceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.CheckoutConfirmed, result.State)
	assert.Equal(t, 1, backend.Calls("BuyNow"))
}

func TestGetCheckout_OtherUser(t *testing.T) {
	h, _ := newTestHandlers(t)

	owner := gin.New()
	owner.Use(asUser(testUser))
	owner.POST("/checkouts", h.StartCheckout)
	w := perform(owner, http.MethodPost, "/checkouts", gin.H{"productId": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["checkout"].(map[string]interface{})["id"].(string)

	other := gin.New()
	other.Use(asUser(99))
	other.GET("/checkouts/:id", h.GetCheckout)

	w = perform(other, http.MethodGet, "/checkouts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplyCoupon_Empty(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := gin.New()
	r.Use(asUser(testUser))
	r.POST("/checkouts", h.StartCheckout)
	r.POST("/checkouts/:id/coupon", h.ApplyCoupon)

	w := perform(r, http.MethodPost, "/checkouts", gin.H{"productId": 1})
	id := decode(t, w)["checkout"].(map[string]interface{})["id"].(string)

	w = perform(r, http.MethodPost, "/checkouts/"+id+"/coupon", gin.H{"code": "  "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please enter a coupon code", decode(t, w)["error"])
}

func TestOrders(t *testing.T) {
	h, backend := newTestHandlers(t)
	backend.Orders[testUser] = []models.Order{
		{ID: 1, UserID: testUser, Status: models.OrderStatusPlaced, PaymentMethod: models.PaymentMethodCOD,
			Items: []models.OrderItem{{ID: 10, Status: models.OrderStatusPlaced}}},
	}
	r := gin.New()
	r.Use(asUser(testUser))
	r.GET("/orders", h.ListOrders)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	r.POST("/orders/:id/items/:itemId/review", h.SubmitReview)

	w := perform(r, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["orders"], 1)

	w = perform(r, http.MethodPost, "/orders/1/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, backend.Calls("CancelOrder"))

	w = perform(r, http.MethodPost, "/orders/1/items/10/review", gin.H{"rating": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComplaintTypes(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := gin.New()
	r.GET("/complaint-types", h.ComplaintTypes)

	w := perform(r, http.MethodGet, "/complaint-types", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["complaintTypes"], len(models.ComplaintTypes))
}

func TestAdminUpdateComplaint(t *testing.T) {
	h, backend := newTestHandlers(t)
	r := gin.New()
	r.Use(asAdmin(4))
	r.PUT("/admin/complaints/:id", h.AdminUpdateComplaint)

	w := perform(r, http.MethodPut, "/admin/complaints/30", gin.H{"status": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPut, "/admin/complaints/30", gin.H{"status": models.ComplaintStatusResolved, "resolutionNote": "Refunded"})
	require.Equal(t, http.StatusOK, w.Code)

	update := backend.ComplaintUpdates[30]
	require.NotNil(t, update.ResolvedBy)
	assert.Equal(t, int64(4), *update.ResolvedBy)
}

func TestAdmin_RequiresAdmin(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := gin.New()
	r.GET("/admin/users", h.AdminListUsers)

	w := perform(r, http.MethodGet, "/admin/users", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := gin.New()
	r.POST("/session", h.Login)

	w := perform(r, http.MethodPost, "/session", gin.H{"user": gin.H{"id": 7, "name": "Asha"}, "token": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/session", gin.H{"user": gin.H{"id": 7, "name": "Asha"}, "token": "tok-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tok-1", decode(t, w)["token"])
}
