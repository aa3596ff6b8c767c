package catalog

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// Service serves product listings, product detail, cart and wishlist.
type Service struct {
	client clients.CatalogClient
	cache  repository.CatalogCache
	logger *logging.LoggerV2
}

// NewService creates a new catalog service. A nil cache disables caching.
func NewService(client clients.CatalogClient, cache repository.CatalogCache) *Service {
	return &Service{
		client: client,
		cache:  cache,
		logger: logging.NewLoggerV2("catalog-service"),
	}
}

// Listing is a filtered product page plus the sidebar facets.
type Listing struct {
	Products   []models.Product `json:"products"`
	Total      int              `json:"total"`
	Brands     []string         `json:"brands"`
	Categories []Category       `json:"categories"`
}

// Detail is the product page.
type Detail struct {
	Product    *models.Product `json:"product"`
	Reviews    []models.Review `json:"reviews"`
	InCart     bool             `json:"inCart"`
	InWishlist bool             `json:"inWishlist"`
}

// Products returns the full product list, from cache when possible.
func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	if cached := s.cached(ctx); cached != nil {
		return cached, nil
	}

	products, err := s.client.ListProducts(ctx)
	if err != nil {
		s.logger.Error("Failed to list products", logging.Fields{
			"error": err.Error(),
		})
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProducts(ctx, products); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to cache products", logging.Fields{
				"error": err.Error(),
			})
		}
	}
	return products, nil
}

func (s *Service) cached(ctx context.Context) []models.Product {
	if s.cache == nil {
		return nil
	}
	products, err := s.cache.GetProducts(ctx)
	if err != nil {
		s.logger.Warn("Catalog cache unavailable", logging.Fields{
			"error": err.Error(),
		})
		return nil
	}
	return products
}

// Search filters and sorts the product list. A subcategory query without a
// cached list asks the backend for just that subcategory.
func (s *Service) Search(ctx context.Context, q Query) (*Listing, error) {
	var (
		products []models.Product
		err      error
	)

	if q.Subcategory != "" {
		products = s.cached(ctx)
		if products == nil {
			products, err = s.client.ProductsBySubcategory(ctx, q.Subcategory)
		}
	} else {
		products, err = s.Products(ctx)
	}
	if err != nil {
		return nil, err
	}

	filtered := Apply(products, q)
	return &Listing{
		Products:   filtered,
		Total:      len(filtered),
		Brands:     Brands(products),
		Categories: Categories(products),
	}, nil
}

func (s *Service) NewArrivals(ctx context.Context) ([]models.Product, error) {
	return s.client.NewArrivals(ctx)
}

func (s *Service) TopSelling(ctx context.Context) ([]models.Product, error) {
	return s.client.TopSelling(ctx)
}

// Brands lists the distinct brands of the full catalog.
func (s *Service) Brands(ctx context.Context) ([]string, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Brands(products), nil
}

// Detail loads a product page. Cart, wishlist and reviews are best effort;
// userID 0 skips the user lookups.
func (s *Service) Detail(ctx context.Context, userID, productID int64) (*Detail, error) {
	var (
		product  *models.Product
		cart     []models.CartItem
		wishlist []models.WishlistItem
		reviews  []models.Review
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		product, err = s.client.GetProduct(egCtx, productID)
		return err
	})
	if userID > 0 {
		eg.Go(func() error {
			items, err := s.client.GetCart(egCtx, userID)
			if err != nil {
				s.logger.Warn("Failed to load cart", logging.Fields{"error": err.Error()})
				return nil
			}
			cart = items
			return nil
		})
		eg.Go(func() error {
			items, err := s.client.GetWishlist(egCtx, userID)
			if err != nil {
				s.logger.Warn("Failed to load wishlist", logging.Fields{"error": err.Error()})
				return nil
			}
			wishlist = items
			return nil
		})
	}
	eg.Go(func() error {
		items, err := s.client.ProductReviews(egCtx, productID)
		if err != nil {
			s.logger.Warn("Failed to load reviews", logging.Fields{
				"product_id": productID,
				"error":      err.Error(),
			})
			return nil
		}
		reviews = items
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	d := &Detail{Product: product, Reviews: reviews}
	if d.Reviews == nil {
		d.Reviews = []models.Review{}
	}
	for _, item := range cart {
		if item.ProductID == productID {
			d.InCart = true
		}
	}
	for _, item := range wishlist {
		if item.ProductID == productID {
			d.InWishlist = true
		}
	}
	return d, nil
}

func (s *Service) Cart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	return s.client.GetCart(ctx, userID)
}

// AddToCart adds quantity of a product and returns the cart as stored.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64, quantity int) ([]models.CartItem, error) {
	if quantity < 1 {
		return nil, errors.NewValidationError("quantity", "Quantity must be at least 1")
	}
	product, err := s.client.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, errors.NewValidationError("quantity", "Not enough stock for the requested quantity")
	}

	if err := s.client.AddToCart(ctx, userID, productID, quantity); err != nil {
		s.logger.Error("Failed to add to cart", logging.Fields{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Added to cart", logging.Fields{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})
	return s.client.GetCart(ctx, userID)
}

// ToggleWishlist adds or removes a product and reports the new membership.
func (s *Service) ToggleWishlist(ctx context.Context, userID, productID int64) (bool, error) {
	items, err := s.client.GetWishlist(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, item := range items {
		if item.ProductID == productID {
			if err := s.client.RemoveFromWishlist(ctx, userID, productID); err != nil {
				return true, err
			}
			return false, nil
		}
	}

	if err := s.client.AddToWishlist(ctx, userID, productID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Addresses(ctx context.Context, userID int64) ([]models.Address, error) {
	return s.client.ListAddresses(ctx, userID)
}

// AddAddress saves a validated address for userID.
func (s *Service) AddAddress(ctx context.Context, userID int64, addr models.Address) (*models.Address, error) {
	addr.UserID = userID
	return s.client.CreateAddress(ctx, addr)
}
