package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// CatalogClient covers catalog, cart, wishlist, review and address reads
// and writes.
type CatalogClient interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	NewArrivals(ctx context.Context) ([]models.Product, error)
	TopSelling(ctx context.Context) ([]models.Product, error)
	ProductsBySubcategory(ctx context.Context, subcategory string) ([]models.Product, error)
	ProductReviews(ctx context.Context, productID int64) ([]models.Review, error)

	GetCart(ctx context.Context, userID int64) ([]models.CartItem, error)
	AddToCart(ctx context.Context, userID, productID int64, quantity int) error

	GetWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error)
	AddToWishlist(ctx context.Context, userID, productID int64) error
	RemoveFromWishlist(ctx context.Context, userID, productID int64) error

	ListAddresses(ctx context.Context, userID int64) ([]models.Address, error)
	CreateAddress(ctx context.Context, addr models.Address) (*models.Address, error)
}

var _ CatalogClient = (*Backend)(nil)

func (b *Backend) ListProducts(ctx context.Context) ([]models.Product, error) {
	return b.productList(ctx, "/product", false)
}

func (b *Backend) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	b.logger.Debug("Fetching product", logging.Fields{"product_id": id})

	var product models.Product
	if _, err := b.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/product/%d", id), out: &product}); err != nil {
		return nil, err
	}
	return &product, nil
}

// NewArrivals returns an empty list when the backend answers with anything
// other than an array.
func (b *Backend) NewArrivals(ctx context.Context) ([]models.Product, error) {
	return b.productList(ctx, "/product/new", true)
}

func (b *Backend) TopSelling(ctx context.Context) ([]models.Product, error) {
	return b.productList(ctx, "/product/top/selling", true)
}

func (b *Backend) ProductsBySubcategory(ctx context.Context, subcategory string) ([]models.Product, error) {
	path := "/product/subcategory/filter?subcategory=" + url.QueryEscape(subcategory)
	return b.productList(ctx, path, false)
}

func (b *Backend) ProductReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	var reviews models.ReviewList
	if _, err := b.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/review/product/%d", productID), out: &reviews}); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (b *Backend) productList(ctx context.Context, path string, lenient bool) ([]models.Product, error) {
	var raw json.RawMessage
	if _, err := b.do(ctx, call{method: http.MethodGet, path: path, out: &raw}); err != nil {
		return nil, err
	}
	return decodeList[models.Product](raw, "products", lenient)
}

func (b *Backend) GetCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	return getList[models.CartItem](ctx, b, fmt.Sprintf("/cart/userid/%d", userID), "items")
}

func (b *Backend) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	body := map[string]interface{}{
		"userId":    userID,
		"productId": productID,
		"quantity":  quantity,
	}
	_, err := b.do(ctx, call{method: http.MethodPost, path: "/cart/add", body: body})
	if err == nil {
		b.logger.Info("Added to cart", logging.Fields{
			"user_id":    userID,
			"product_id": productID,
			"quantity":   quantity,
		})
	}
	return err
}

func (b *Backend) GetWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	return getList[models.WishlistItem](ctx, b, fmt.Sprintf("/wishlist/userid/%d", userID), "items")
}

func (b *Backend) AddToWishlist(ctx context.Context, userID, productID int64) error {
	body := models.WishlistItem{UserID: userID, ProductID: productID}
	_, err := b.do(ctx, call{method: http.MethodPost, path: "/wishlist", body: body})
	return err
}

func (b *Backend) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	path := fmt.Sprintf("/wishlist/userid/%d/productid/%d", userID, productID)
	_, err := b.do(ctx, call{method: http.MethodDelete, path: path})
	return err
}

func (b *Backend) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	return getList[models.Address](ctx, b, fmt.Sprintf("/address/%d", userID), "addresses")
}

func (b *Backend) CreateAddress(ctx context.Context, addr models.Address) (*models.Address, error) {
	body := map[string]interface{}{
		"userId":     addr.UserID,
		"street":     addr.Street,
		"city":       addr.City,
		"state":      addr.State,
		"postalCode": addr.PostalCode,
		"country":    addr.Country,
		"label":      addr.Label,
	}
	var created models.Address
	if _, err := b.do(ctx, call{method: http.MethodPost, path: "/address", body: body, out: &created}); err != nil {
		return nil, err
	}
	return &created, nil
}
