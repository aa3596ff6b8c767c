package clients

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// MockBackend is an in-memory backend for tests. Errors injected through
// Fail are returned by the named method until cleared.
type MockBackend struct {
	mu sync.Mutex

	Products    map[int64]models.Product
	NewProducts json.RawMessage
	TopProducts json.RawMessage
	Reviews     map[int64][]models.Review
	Carts       map[int64][]models.CartItem
	Wishlists   map[int64]map[int64]bool
	Addresses   map[int64][]models.Address
	Coupons     map[string]float64
	Orders      map[int64][]models.Order

	Users      []models.User
	Sellers    []models.Seller
	Complaints []models.Complaint
	Stats      models.DashboardStats

	// PlaceOrder overrides the default order creation answer.
	PlaceOrder func(req *models.BuyNowRequest) (*models.PlaceOrderResponse, error)
	SessionID  string

	PostedReviews      []models.Review
	PostedReturns      []models.ReturnRequest
	PostedComplaints   []models.ComplaintRequest
	ComplaintUpdates   map[int64]models.ComplaintUpdate
	IdempotencyKeys    []string
	LastPaymentRequest map[string]json.RawMessage

	calls  map[string]int
	errs   map[string]error
	nextID int64
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		Products:         make(map[int64]models.Product),
		Reviews:          make(map[int64][]models.Review),
		Carts:            make(map[int64][]models.CartItem),
		Wishlists:        make(map[int64]map[int64]bool),
		Addresses:        make(map[int64][]models.Address),
		Coupons:          make(map[string]float64),
		Orders:           make(map[int64][]models.Order),
		ComplaintUpdates: make(map[int64]models.ComplaintUpdate),
		SessionID:        "sess_mock",
		calls:            make(map[string]int),
		errs:             make(map[string]error),
		nextID:           1000,
	}
}

// Fail makes method return err. A nil err clears the failure.
func (m *MockBackend) Fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, method)
		return
	}
	m.errs[method] = err
}

// Calls returns how many times method was invoked.
func (m *MockBackend) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// record counts the call and returns any injected error. Callers hold m.mu.
func (m *MockBackend) record(method string) error {
	m.calls[method]++
	return m.errs[method]
}

func (m *MockBackend) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockBackend) ListProducts(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListProducts"); err != nil {
		return nil, err
	}
	return m.sortedProducts(), nil
}

func (m *MockBackend) sortedProducts() []models.Product {
	out := make([]models.Product, 0, len(m.Products))
	for _, p := range m.Products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockBackend) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetProduct"); err != nil {
		return nil, err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, &errors.UpstreamError{StatusCode: 404, Method: "GET", Path: "/product", Message: "Product not found"}
	}
	return &p, nil
}

func (m *MockBackend) NewArrivals(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("NewArrivals"); err != nil {
		return nil, err
	}
	return decodeList[models.Product](m.NewProducts, "", true)
}

func (m *MockBackend) TopSelling(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("TopSelling"); err != nil {
		return nil, err
	}
	return decodeList[models.Product](m.TopProducts, "", true)
}

func (m *MockBackend) ProductsBySubcategory(ctx context.Context, subcategory string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ProductsBySubcategory"); err != nil {
		return nil, err
	}
	var out []models.Product
	for _, p := range m.sortedProducts() {
		if strings.EqualFold(p.Subcategory, subcategory) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockBackend) ProductReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ProductReviews"); err != nil {
		return nil, err
	}
	return append([]models.Review(nil), m.Reviews[productID]...), nil
}

func (m *MockBackend) GetCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetCart"); err != nil {
		return nil, err
	}
	return append([]models.CartItem{}, m.Carts[userID]...), nil
}

func (m *MockBackend) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("AddToCart"); err != nil {
		return err
	}
	cart := m.Carts[userID]
	for i := range cart {
		if cart[i].ProductID == productID {
			cart[i].Quantity += quantity
			return nil
		}
	}
	p := m.Products[productID]
	m.Carts[userID] = append(cart, models.CartItem{
		ID:        m.id(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     p.Price,
		Discount:  p.Discount,
	})
	return nil
}

func (m *MockBackend) GetWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetWishlist"); err != nil {
		return nil, err
	}
	out := []models.WishlistItem{}
	for pid := range m.Wishlists[userID] {
		out = append(out, models.WishlistItem{UserID: userID, ProductID: pid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *MockBackend) AddToWishlist(ctx context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("AddToWishlist"); err != nil {
		return err
	}
	if m.Wishlists[userID] == nil {
		m.Wishlists[userID] = make(map[int64]bool)
	}
	m.Wishlists[userID][productID] = true
	return nil
}

func (m *MockBackend) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("RemoveFromWishlist"); err != nil {
		return err
	}
	delete(m.Wishlists[userID], productID)
	return nil
}

func (m *MockBackend) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListAddresses"); err != nil {
		return nil, err
	}
	return append([]models.Address{}, m.Addresses[userID]...), nil
}

func (m *MockBackend) CreateAddress(ctx context.Context, addr models.Address) (*models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateAddress"); err != nil {
		return nil, err
	}
	addr.ID = m.id()
	m.Addresses[addr.UserID] = append(m.Addresses[addr.UserID], addr)
	return &addr, nil
}

func (m *MockBackend) VerifyCoupon(ctx context.Context, code string, amount float64) (*models.CouponVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("VerifyCoupon"); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	discount, ok := m.Coupons[code]
	if !ok {
		return nil, &errors.CouponError{Code: code, Message: "Invalid Coupon"}
	}
	return &models.CouponVerification{Valid: true, Discount: discount, Message: "Coupon applied"}, nil
}

func (m *MockBackend) BuyNow(ctx context.Context, req *models.BuyNowRequest) (*models.PlaceOrderResponse, error) {
	return m.placeOrder("BuyNow", req)
}

func (m *MockBackend) CreateCartOrder(ctx context.Context, req *models.BuyNowRequest) (*models.PlaceOrderResponse, error) {
	return m.placeOrder("CreateCartOrder", req)
}

func (m *MockBackend) placeOrder(method string, req *models.BuyNowRequest) (*models.PlaceOrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(method); err != nil {
		return nil, err
	}
	if m.PlaceOrder != nil {
		return m.PlaceOrder(req)
	}
	if req.PaymentMethod.IsOnline() {
		draft, _ := json.Marshal(map[string]interface{}{
			"userId":    req.UserID,
			"productId": req.ProductID,
			"quantity":  req.Quantity,
		})
		return &models.PlaceOrderResponse{StatusCode: 200, TempOrder: draft}, nil
	}
	return &models.PlaceOrderResponse{StatusCode: 201, OrderID: m.id()}, nil
}

func (m *MockBackend) CreatePaymentSession(ctx context.Context, draft *models.DraftOrder, addressID int64, idempotencyKey string) (*models.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreatePaymentSession"); err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	_ = json.Unmarshal(draft.Raw, &fields)
	fields["addressId"], _ = json.Marshal(addressID)
	m.LastPaymentRequest = fields
	m.IdempotencyKeys = append(m.IdempotencyKeys, idempotencyKey)
	return &models.PaymentSession{PaymentSessionID: m.SessionID}, nil
}

func (m *MockBackend) ListUserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListUserOrders"); err != nil {
		return nil, err
	}
	return cloneOrders(m.Orders[userID]), nil
}

func (m *MockBackend) CancelOrder(ctx context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CancelOrder"); err != nil {
		return err
	}
	for uid, orders := range m.Orders {
		for i := range orders {
			if orders[i].ID == orderID {
				m.Orders[uid][i].Status = models.OrderStatusCancelled
				return nil
			}
		}
	}
	return &errors.UpstreamError{StatusCode: 404, Method: "PUT", Path: "/order/orderid/cancel", Message: "Order not found"}
}

func (m *MockBackend) CreateReview(ctx context.Context, review models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateReview"); err != nil {
		return err
	}
	m.PostedReviews = append(m.PostedReviews, review)
	return nil
}

func (m *MockBackend) CreateReturn(ctx context.Context, req models.ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateReturn"); err != nil {
		return err
	}
	m.PostedReturns = append(m.PostedReturns, req)
	return nil
}

func (m *MockBackend) CreateComplaint(ctx context.Context, req models.ComplaintRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateComplaint"); err != nil {
		return err
	}
	m.PostedComplaints = append(m.PostedComplaints, req)
	return nil
}

func (m *MockBackend) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Dashboard"); err != nil {
		return nil, err
	}
	stats := m.Stats
	if stats.RecentActivity == nil {
		stats.RecentActivity = []interface{}{}
	}
	return &stats, nil
}

func (m *MockBackend) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListUsers"); err != nil {
		return nil, err
	}
	return append([]models.User{}, m.Users...), nil
}

func (m *MockBackend) BlockUser(ctx context.Context, userID int64) error {
	return m.setUserBlocked("BlockUser", userID, true)
}

func (m *MockBackend) UnblockUser(ctx context.Context, userID int64) error {
	return m.setUserBlocked("UnblockUser", userID, false)
}

func (m *MockBackend) setUserBlocked(method string, userID int64, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(method); err != nil {
		return err
	}
	for i := range m.Users {
		if m.Users[i].ID == userID {
			m.Users[i].IsBlocked = blocked
		}
	}
	return nil
}

func (m *MockBackend) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListAllProducts"); err != nil {
		return nil, err
	}
	return m.sortedProducts(), nil
}

func (m *MockBackend) DeleteProduct(ctx context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteProduct"); err != nil {
		return err
	}
	delete(m.Products, productID)
	return nil
}

func (m *MockBackend) ListSellers(ctx context.Context) ([]models.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListSellers"); err != nil {
		return nil, err
	}
	return append([]models.Seller{}, m.Sellers...), nil
}

func (m *MockBackend) GetSeller(ctx context.Context, sellerID int64) (*models.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetSeller"); err != nil {
		return nil, err
	}
	for _, s := range m.Sellers {
		if s.ID == sellerID {
			s := s
			return &s, nil
		}
	}
	return nil, &errors.UpstreamError{StatusCode: 404, Method: "GET", Path: "/seller/get/sellerid", Message: "Seller not found"}
}

func (m *MockBackend) SetSellerBlocked(ctx context.Context, sellerID int64, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetSellerBlocked"); err != nil {
		return err
	}
	for i := range m.Sellers {
		if m.Sellers[i].ID == sellerID {
			m.Sellers[i].IsBlocked = blocked
		}
	}
	return nil
}

func (m *MockBackend) DeleteSeller(ctx context.Context, sellerID int64) error {
	return m.dropSeller("DeleteSeller", sellerID)
}

func (m *MockBackend) RejectSeller(ctx context.Context, sellerID int64) error {
	return m.dropSeller("RejectSeller", sellerID)
}

func (m *MockBackend) dropSeller(method string, sellerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(method); err != nil {
		return err
	}
	for i := range m.Sellers {
		if m.Sellers[i].ID == sellerID {
			m.Sellers = append(m.Sellers[:i], m.Sellers[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockBackend) ApproveSeller(ctx context.Context, sellerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ApproveSeller"); err != nil {
		return err
	}
	for i := range m.Sellers {
		if m.Sellers[i].ID == sellerID {
			m.Sellers[i].IsActive = true
		}
	}
	return nil
}

func (m *MockBackend) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListComplaints"); err != nil {
		return nil, err
	}
	return append([]models.Complaint{}, m.Complaints...), nil
}

func (m *MockBackend) UpdateComplaint(ctx context.Context, complaintID int64, update models.ComplaintUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateComplaint"); err != nil {
		return err
	}
	m.ComplaintUpdates[complaintID] = update
	for i := range m.Complaints {
		if m.Complaints[i].ID == complaintID {
			m.Complaints[i].Status = update.Status
			m.Complaints[i].Priority = update.Priority
			m.Complaints[i].ResolutionNote = update.ResolutionNote
		}
	}
	return nil
}

func (m *MockBackend) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListAllOrders"); err != nil {
		return nil, err
	}
	var out []models.Order
	for _, orders := range m.Orders {
		out = append(out, cloneOrders(orders)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneOrders(in []models.Order) []models.Order {
	out := make([]models.Order, len(in))
	for i, o := range in {
		o.Items = append([]models.OrderItem(nil), o.Items...)
		for j := range o.Items {
			o.Items[j].Returns = append([]models.ReturnRecord(nil), o.Items[j].Returns...)
		}
		out[i] = o
	}
	return out
}

var (
	_ CatalogClient  = (*MockBackend)(nil)
	_ CheckoutClient = (*MockBackend)(nil)
	_ OrdersClient   = (*MockBackend)(nil)
	_ AdminClient    = (*MockBackend)(nil)
)
