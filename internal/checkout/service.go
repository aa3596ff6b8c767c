package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/pricing"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

var _ events.PaymentResultHandler = (*Service)(nil)

// Service drives checkout attempts from form input to a confirmed order.
type Service struct {
	repo      repository.CheckoutRepository
	catalog   clients.CatalogClient
	backend   clients.CheckoutClient
	gateway   clients.PaymentGateway
	publisher events.Publisher
	metrics   *metrics.AppMetrics
	rules     pricing.Rules
	cartRules pricing.Rules
	locks     *keyedMutex
	logger    *logging.LoggerV2

	now   func() time.Time
	newID func() string
}

// NewService creates a new checkout service.
func NewService(
	repo repository.CheckoutRepository,
	catalog clients.CatalogClient,
	backend clients.CheckoutClient,
	gateway clients.PaymentGateway,
	publisher events.Publisher,
	rules pricing.Rules,
	cartRules pricing.Rules,
	m *metrics.AppMetrics,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		backend:   backend,
		gateway:   gateway,
		publisher: publisher,
		metrics:   m,
		rules:     rules,
		cartRules: cartRules,
		locks:     newKeyedMutex(),
		logger:    logging.NewLoggerV2("checkout-service"),
		now:       time.Now,
		newID:     func() string { return "chk_" + uuid.NewString() },
	}
}

// StartRequest opens a checkout for one product or for the whole cart.
type StartRequest struct {
	Source    models.CheckoutSource `json:"source"`
	ProductID int64                 `json:"productId"`
	Quantity  int                   `json:"quantity"`
}

// UpdateRequest changes form input. Nil fields are left alone.
type UpdateRequest struct {
	Quantity      *int                  `json:"quantity"`
	AddressID     *int64                `json:"addressId"`
	PaymentMethod *models.PaymentMethod `json:"paymentMethod"`
}

// View is everything the checkout page renders.
type View struct {
	Checkout  *models.CheckoutAttempt `json:"checkout"`
	Product   *models.Product         `json:"product,omitempty"`
	Cart      []models.CartItem       `json:"cart,omitempty"`
	Addresses []models.Address        `json:"addresses"`
	Summary   pricing.Display         `json:"summary"`
	InStock   bool                    `json:"inStock"`
}

// Start creates an Idle attempt with the defaults of a fresh checkout form:
// quantity 1, the first saved address and the hosted online payment method.
func (s *Service) Start(ctx context.Context, userID int64, req StartRequest) (*View, error) {
	if userID <= 0 {
		return nil, errors.ErrUnauthorized
	}
	if req.Source == "" {
		req.Source = models.CheckoutSourceProduct
	}

	now := s.now()
	a := &models.CheckoutAttempt{
		ID:            s.newID(),
		UserID:        userID,
		Source:        req.Source,
		Quantity:      1,
		PaymentMethod: models.PaymentMethodCashfree,
		State:         models.CheckoutIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch req.Source {
	case models.CheckoutSourceProduct:
		if req.ProductID <= 0 {
			return nil, errors.NewValidationError("product_id", "product is required")
		}
		product, err := s.catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		a.ProductID = product.ID
		if req.Quantity > 0 {
			a.Quantity = ClampQuantity(req.Quantity, product.Stock)
		}
	case models.CheckoutSourceCart:
		a.Quantity = 0
	default:
		return nil, errors.NewValidationError("source", "source must be product or cart")
	}

	addresses, err := s.catalog.ListAddresses(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load addresses", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
	} else if len(addresses) > 0 {
		a.AddressID = addresses[0].ID
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Error("Failed to create checkout", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}
	s.metrics.CheckoutTransition(string(a.State))

	s.logger.Info("Checkout started", logging.Fields{
		"checkout_id": a.ID,
		"user_id":     userID,
		"source":      a.Source,
		"product_id":  a.ProductID,
	})
	return s.view(ctx, a)
}

// Get returns the current view of an attempt owned by userID.
func (s *Service) Get(ctx context.Context, userID int64, id string) (*View, error) {
	a, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, a)
}

// Update applies form changes. Quantity is clamped to [1, stock]; changing
// any input discards a draft that has no payment session yet.
func (s *Service) Update(ctx context.Context, userID int64, id string, req UpdateRequest) (*View, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := frozen(a); err != nil {
		return nil, err
	}

	if req.Quantity != nil {
		if a.Source != models.CheckoutSourceProduct {
			return nil, errors.NewValidationError("quantity", "cart quantities are edited in the cart")
		}
		product, err := s.catalog.GetProduct(ctx, a.ProductID)
		if err != nil {
			return nil, err
		}
		a.Quantity = ClampQuantity(*req.Quantity, product.Stock)
	}
	if req.AddressID != nil {
		if _, err := s.findAddress(ctx, userID, *req.AddressID); err != nil {
			return nil, err
		}
		a.AddressID = *req.AddressID
	}
	if req.PaymentMethod != nil {
		if err := ValidatePaymentMethod(*req.PaymentMethod); err != nil {
			return nil, err
		}
		a.PaymentMethod = *req.PaymentMethod
	}

	discardDraft(a)
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return s.view(ctx, a)
}

// AddAddress saves a new shipping address and selects it.
func (s *Service) AddAddress(ctx context.Context, userID int64, id string, addr models.Address) (*View, error) {
	if err := ValidateAddress(&addr); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := frozen(a); err != nil {
		return nil, err
	}

	addr.UserID = userID
	created, err := s.catalog.CreateAddress(ctx, addr)
	if err != nil {
		s.logger.Error("Failed to add address", logging.Fields{
			"checkout_id": id,
			"error":       err.Error(),
		})
		return nil, err
	}

	a.AddressID = created.ID
	discardDraft(a)
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return s.view(ctx, a)
}

func (s *Service) load(ctx context.Context, userID int64, id string) (*models.CheckoutAttempt, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, errors.ErrNotFound
	}
	return a, nil
}

func (s *Service) save(ctx context.Context, a *models.CheckoutAttempt) error {
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		s.logger.Error("Failed to save checkout", logging.Fields{
			"checkout_id": a.ID,
			"state":       a.State,
			"error":       err.Error(),
		})
		return err
	}
	return nil
}

// transition moves a to state and records it. It does not persist.
func (s *Service) transition(a *models.CheckoutAttempt, state models.CheckoutState) {
	s.logger.Debug("Checkout transition", logging.Fields{
		"checkout_id": a.ID,
		"from":        a.State,
		"to":          state,
	})
	a.State = state
	s.metrics.CheckoutTransition(string(state))
}

func (s *Service) publish(ctx context.Context, eventType events.EventType, a *models.CheckoutAttempt) {
	if err := s.publisher.PublishCheckout(ctx, eventType, a); err != nil {
		// Log but don't fail
		s.logger.Error("Failed to publish checkout event", logging.Fields{
			"checkout_id": a.ID,
			"event_type":  eventType,
			"error":       err.Error(),
		})
	}
}

func (s *Service) findAddress(ctx context.Context, userID, addressID int64) (*models.Address, error) {
	addresses, err := s.catalog.ListAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range addresses {
		if addresses[i].ID == addressID {
			return &addresses[i], nil
		}
	}
	return nil, errors.NewValidationError("address_id", "Please select a shipping address")
}

// goods is the priced content of an attempt.
type goods struct {
	product *models.Product
	cart    []models.CartItem
	quote   pricing.Breakdown
	inStock bool
}

func (s *Service) price(ctx context.Context, a *models.CheckoutAttempt) (*goods, error) {
	coupon := 0.0
	if a.CouponApplied {
		coupon = a.CouponDiscount
	}

	if a.Source == models.CheckoutSourceCart {
		cart, err := s.catalog.GetCart(ctx, a.UserID)
		if err != nil {
			return nil, err
		}
		g := &goods{cart: cart, inStock: len(cart) > 0}
		lines := make([]pricing.Line, 0, len(cart))
		for _, item := range cart {
			lines = append(lines, cartLine(item))
			if item.Product != nil && item.Product.Stock < item.Quantity {
				g.inStock = false
			}
		}
		g.quote = pricing.QuoteCart(s.cartRules, lines, coupon)
		return g, nil
	}

	product, err := s.catalog.GetProduct(ctx, a.ProductID)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.Quote(s.rules, product.Price, product.Discount, a.Quantity, coupon)
	if err != nil {
		return nil, err
	}
	return &goods{product: product, quote: quote, inStock: product.Stock >= a.Quantity}, nil
}

func cartLine(item models.CartItem) pricing.Line {
	line := pricing.Line{Price: item.Price, Discount: item.Discount, Quantity: item.Quantity}
	if item.Product != nil {
		if line.Price == 0 {
			line.Price = item.Product.Price
		}
		if line.Discount == 0 {
			line.Discount = item.Product.Discount
		}
	}
	return line
}

// view loads goods and addresses concurrently. Only the goods are required.
func (s *Service) view(ctx context.Context, a *models.CheckoutAttempt) (*View, error) {
	var (
		g         *goods
		addresses []models.Address
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		g, err = s.price(egCtx, a)
		return err
	})
	eg.Go(func() error {
		list, err := s.catalog.ListAddresses(egCtx, a.UserID)
		if err != nil {
			s.logger.Warn("Failed to load addresses", logging.Fields{
				"checkout_id": a.ID,
				"error":       err.Error(),
			})
			return nil
		}
		addresses = list
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if addresses == nil {
		addresses = []models.Address{}
	}
	return &View{
		Checkout:  a,
		Product:   g.product,
		Cart:      g.cart,
		Addresses: addresses,
		Summary:   g.quote.Display(),
		InStock:   g.inStock,
	}, nil
}

func discardDraft(a *models.CheckoutAttempt) {
	a.Draft = nil
	a.IdempotencyKey = ""
}
