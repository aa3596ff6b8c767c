package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// AdminClient covers the admin dashboard endpoints. Calls forward the admin
// bearer token carried by the context.
type AdminClient interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	BlockUser(ctx context.Context, userID int64) error
	UnblockUser(ctx context.Context, userID int64) error

	ListAllProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error

	ListSellers(ctx context.Context) ([]models.Seller, error)
	GetSeller(ctx context.Context, sellerID int64) (*models.Seller, error)
	SetSellerBlocked(ctx context.Context, sellerID int64, blocked bool) error
	DeleteSeller(ctx context.Context, sellerID int64) error
	ApproveSeller(ctx context.Context, sellerID int64) error
	RejectSeller(ctx context.Context, sellerID int64) error

	ListComplaints(ctx context.Context) ([]models.Complaint, error)
	UpdateComplaint(ctx context.Context, complaintID int64, update models.ComplaintUpdate) error

	ListAllOrders(ctx context.Context) ([]models.Order, error)
}

var _ AdminClient = (*Backend)(nil)

// Dashboard returns zeroes for any field the backend leaves out.
func (b *Backend) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	stats := models.DashboardStats{RecentActivity: []interface{}{}}
	if _, err := b.do(ctx, call{method: http.MethodGet, path: "/admin/dashboard", out: &stats}); err != nil {
		return nil, err
	}
	if stats.RecentActivity == nil {
		stats.RecentActivity = []interface{}{}
	}
	return &stats, nil
}

func (b *Backend) ListUsers(ctx context.Context) ([]models.User, error) {
	return getList[models.User](ctx, b, "/auth", "users")
}

func (b *Backend) BlockUser(ctx context.Context, userID int64) error {
	_, err := b.do(ctx, call{method: http.MethodPost, path: fmt.Sprintf("/admin/block/userid/%d", userID)})
	return err
}

func (b *Backend) UnblockUser(ctx context.Context, userID int64) error {
	_, err := b.do(ctx, call{method: http.MethodPost, path: fmt.Sprintf("/admin/unblock/userid/%d", userID)})
	return err
}

func (b *Backend) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	return getList[models.Product](ctx, b, "/product", "products")
}

func (b *Backend) DeleteProduct(ctx context.Context, productID int64) error {
	_, err := b.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/product/productid/%d", productID)})
	return err
}

func (b *Backend) ListSellers(ctx context.Context) ([]models.Seller, error) {
	return getList[models.Seller](ctx, b, "/admin/seller/all", "data")
}

func (b *Backend) GetSeller(ctx context.Context, sellerID int64) (*models.Seller, error) {
	var raw json.RawMessage
	if _, err := b.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/seller/get/sellerid/%d", sellerID), out: &raw}); err != nil {
		return nil, err
	}

	var wrapped struct {
		Data *models.Seller `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var seller models.Seller
	if err := json.Unmarshal(raw, &seller); err != nil {
		return nil, err
	}
	return &seller, nil
}

func (b *Backend) SetSellerBlocked(ctx context.Context, sellerID int64, blocked bool) error {
	body := map[string]bool{"isBlocked": blocked}
	_, err := b.do(ctx, call{method: http.MethodPatch, path: fmt.Sprintf("/admin/%d/block", sellerID), body: body})
	return err
}

func (b *Backend) DeleteSeller(ctx context.Context, sellerID int64) error {
	_, err := b.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/seller/delete/%d", sellerID)})
	return err
}

func (b *Backend) ApproveSeller(ctx context.Context, sellerID int64) error {
	_, err := b.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/admin/seller/%d", sellerID)})
	return err
}

func (b *Backend) RejectSeller(ctx context.Context, sellerID int64) error {
	_, err := b.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/seller/%d", sellerID)})
	return err
}

func (b *Backend) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	return getList[models.Complaint](ctx, b, "/complaint/all", "data")
}

func (b *Backend) UpdateComplaint(ctx context.Context, complaintID int64, update models.ComplaintUpdate) error {
	_, err := b.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/complaint/update/status/%d", complaintID), body: update})
	return err
}

func (b *Backend) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return getList[models.Order](ctx, b, "/order/orders", "orders")
}

func getList[T any](ctx context.Context, b *Backend, path, key string) ([]T, error) {
	var raw json.RawMessage
	if _, err := b.do(ctx, call{method: http.MethodGet, path: path, out: &raw}); err != nil {
		return nil, err
	}
	return decodeList[T](raw, key, false)
}
