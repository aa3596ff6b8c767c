package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// OrdersClient covers order history and the post-delivery actions.
type OrdersClient interface {
	ListUserOrders(ctx context.Context, userID int64) ([]models.Order, error)
	CancelOrder(ctx context.Context, orderID int64) error
	CreateReview(ctx context.Context, review models.Review) error
	CreateReturn(ctx context.Context, req models.ReturnRequest) error
	CreateComplaint(ctx context.Context, req models.ComplaintRequest) error
}

var _ OrdersClient = (*Backend)(nil)

func (b *Backend) ListUserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return getList[models.Order](ctx, b, fmt.Sprintf("/order/userid/%d", userID), "orders")
}

func (b *Backend) CancelOrder(ctx context.Context, orderID int64) error {
	_, err := b.do(ctx, call{method: http.MethodPut, path: fmt.Sprintf("/order/orderid/%d/cancel", orderID)})
	if err == nil {
		b.logger.Info("Order cancelled", logging.Fields{"order_id": orderID})
	}
	return err
}

func (b *Backend) CreateReview(ctx context.Context, review models.Review) error {
	body := map[string]interface{}{
		"productId": review.ProductID,
		"userId":    review.UserID,
		"rating":    review.Rating,
		"comment":   review.Comment,
	}
	_, err := b.do(ctx, call{method: http.MethodPost, path: "/review", body: body})
	return err
}

func (b *Backend) CreateReturn(ctx context.Context, req models.ReturnRequest) error {
	_, err := b.do(ctx, call{method: http.MethodPost, path: "/return/create", body: req})
	return err
}

func (b *Backend) CreateComplaint(ctx context.Context, req models.ComplaintRequest) error {
	_, err := b.do(ctx, call{method: http.MethodPost, path: "/complaint/create/usertoseller", body: req})
	return err
}
