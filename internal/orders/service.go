package orders

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/views"
)

// Service manages each user's order history view.
type Service struct {
	client    clients.OrdersClient
	publisher events.Publisher
	metrics   *metrics.AppMetrics
	views     *views.Registry[View]
	logger    *logging.LoggerV2
	now       func() time.Time
}

// NewService creates a new order history service.
func NewService(client clients.OrdersClient, publisher events.Publisher, m *metrics.AppMetrics) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		client:    client,
		publisher: publisher,
		metrics:   m,
		views:     views.NewRegistry[View](),
		logger:    logging.NewLoggerV2("orders-service"),
		now:       time.Now,
	}
}

func owner(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (s *Service) loader(userID int64) views.Loader[View] {
	return func(ctx context.Context) (View, error) {
		orders, err := s.client.ListUserOrders(ctx, userID)
		if err != nil {
			return View{}, err
		}
		sortNewestFirst(orders)
		return View{Orders: orders}, nil
	}
}

// Enter refetches the user's orders and closes any open form.
func (s *Service) Enter(ctx context.Context, userID int64) (*Page, error) {
	v, err := s.views.Enter(ctx, owner(userID), s.loader(userID))
	if err != nil {
		s.logger.Error("Failed to load orders", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}
	return render(v), nil
}

// Forget drops the user's held view.
func (s *Service) Forget(userID int64) {
	s.views.Drop(owner(userID))
	s.logger.Debug("Order view dropped", logging.Fields{"user_id": userID})
}

// Page renders the held view, entering it first if needed.
func (s *Service) Page(ctx context.Context, userID int64) (*Page, error) {
	var page *Page
	err := s.views.Read(owner(userID), func(v View) { page = render(v) })
	if errors.Is(err, errors.ErrNotFound) {
		return s.Enter(ctx, userID)
	}
	return page, err
}

// Cancel marks the order and its items cancelled right away, then asks the
// backend. On failure the view is reloaded from the server.
func (s *Service) Cancel(ctx context.Context, userID, orderID int64) (*Page, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	committed := false
	err := views.Optimistic(ctx, s.views, owner(userID), views.Mutation[View]{
		Apply: func(v *View) error {
			o, err := findOrder(v, orderID)
			if err != nil {
				return err
			}
			if !cancellable(o) {
				return errors.NewValidationError("order_id", "order can no longer be cancelled")
			}
			o.Status = models.OrderStatusCancelled
			if o.PaymentMethod.IsOnline() {
				o.PaymentStatus = models.PaymentStatusRefundInitiated
			}
			for i := range o.Items {
				o.Items[i].Status = models.OrderStatusCancelled
			}
			return nil
		},
		Commit: func(ctx context.Context) error {
			committed = true
			return s.client.CancelOrder(ctx, orderID)
		},
		Reload: s.loader(userID),
	})
	if err != nil {
		if committed {
			s.metrics.Reload("cancel")
			s.logger.Error("Failed to cancel order", logging.Fields{
				"order_id": orderID,
				"error":    err.Error(),
			})
		}
		return nil, err
	}

	s.publishOrder(ctx, events.EventTypeOrderCancelRequested, userID, orderID, nil)
	s.logger.Info("Order cancel requested", logging.Fields{
		"user_id":  userID,
		"order_id": orderID,
	})
	return s.Page(ctx, userID)
}

func cancellable(o *models.Order) bool {
	for i := range o.Items {
		if ShowCancel(o, &o.Items[i]) {
			return true
		}
	}
	return len(o.Items) == 0 && o.Status != models.OrderStatusCancelled && o.Status != models.OrderStatusDelivered
}

// ToggleForm opens kind for itemID, closing any other open form. Toggling
// the form that is already open closes it.
func (s *Service) ToggleForm(ctx context.Context, userID int64, kind FormKind, itemID int64) (*Page, error) {
	if !kind.Valid() {
		return nil, errors.NewValidationError("kind", "form must be review, return or complaint")
	}
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	err := s.views.Update(owner(userID), func(v *View) error {
		if v.Form != nil && v.Form.Kind == kind && v.Form.ItemID == itemID {
			v.Form = nil
			return nil
		}
		o, item, err := locate(v, itemID)
		if err != nil {
			return err
		}
		if !ShowActions(o, item) {
			return errors.NewValidationError("item_id", "only delivered items without a return accept this form")
		}
		v.Form = &Form{Kind: kind, ItemID: itemID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Page(ctx, userID)
}

// CloseForm closes whichever form is open.
func (s *Service) CloseForm(ctx context.Context, userID int64) (*Page, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}
	_ = s.views.Update(owner(userID), func(v *View) error {
		v.Form = nil
		return nil
	})
	return s.Page(ctx, userID)
}

// ReviewInput is a product review for a delivered item.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitReview posts a review for the item's product.
func (s *Service) SubmitReview(ctx context.Context, userID, orderID, itemID int64, in ReviewInput) (*Page, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Rating < 1 || in.Rating > 5 || in.Comment == "" {
		return nil, errors.NewValidationError("review", "Please provide both rating and comment.")
	}

	item, err := s.eligible(ctx, userID, orderID, itemID)
	if err != nil {
		return nil, err
	}

	review := models.Review{ProductID: item.ProductID, UserID: userID, Rating: in.Rating, Comment: in.Comment}
	if err := s.client.CreateReview(ctx, review); err != nil {
		s.logger.Error("Failed to submit review", logging.Fields{
			"item_id": itemID,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.publishOrder(ctx, events.EventTypeReviewPosted, userID, orderID, review)
	return s.closeForm(ctx, userID)
}

// SubmitReturn attaches a Pending return to the item, then posts the
// request. On failure the view is reloaded from the server.
func (s *Service) SubmitReturn(ctx context.Context, userID, orderID, itemID int64, reason string) (*Page, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.NewValidationError("reason", "Please provide a reason for return.")
	}
	if _, err := s.eligible(ctx, userID, orderID, itemID); err != nil {
		return nil, err
	}

	req := models.ReturnRequest{OrderID: orderID, UserID: userID, Reason: reason, OrderItemID: itemID}
	committed := false
	err := views.Optimistic(ctx, s.views, owner(userID), views.Mutation[View]{
		Apply: func(v *View) error {
			_, item, err := findItem(v, orderID, itemID)
			if err != nil {
				return err
			}
			item.Returns = []models.ReturnRecord{{
				Status:    models.ReturnStatusPending,
				Reason:    reason,
				CreatedAt: s.now(),
			}}
			return nil
		},
		Commit: func(ctx context.Context) error {
			committed = true
			return s.client.CreateReturn(ctx, req)
		},
		Reload: s.loader(userID),
	})
	if err != nil {
		if committed {
			s.metrics.Reload("return")
			s.logger.Error("Failed to submit return", logging.Fields{
				"item_id": itemID,
				"error":   err.Error(),
			})
		}
		return nil, err
	}

	s.publishOrder(ctx, events.EventTypeReturnRequested, userID, orderID, req)
	return s.closeForm(ctx, userID)
}

// ComplaintInput is a complaint against the seller of a delivered item.
type ComplaintInput struct {
	ComplaintType models.ComplaintType `json:"complaintType"`
	Description   string               `json:"description"`
}

// SubmitComplaint files a complaint against the item's seller.
func (s *Service) SubmitComplaint(ctx context.Context, userID, orderID, itemID int64, in ComplaintInput) (*Page, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.ComplaintType == "" || in.Description == "" {
		return nil, errors.NewValidationError("complaint", "Please fill in all complaint fields")
	}
	if !in.ComplaintType.Valid() {
		return nil, errors.NewValidationError("complaintType", "unknown complaint type")
	}

	item, err := s.eligible(ctx, userID, orderID, itemID)
	if err != nil {
		return nil, err
	}

	req := models.ComplaintRequest{
		RaisedByUserID:  userID,
		AgainstSellerID: item.SellerID(),
		OrderID:         orderID,
		ProductID:       item.ProductID,
		ComplaintType:   in.ComplaintType,
		Description:     in.Description,
	}
	if err := s.client.CreateComplaint(ctx, req); err != nil {
		s.logger.Error("Failed to submit complaint", logging.Fields{
			"item_id": itemID,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.publishOrder(ctx, events.EventTypeComplaintRaised, userID, orderID, req)
	return s.closeForm(ctx, userID)
}

// eligible returns a copy of the item if post-delivery forms apply to it.
func (s *Service) eligible(ctx context.Context, userID, orderID, itemID int64) (*models.OrderItem, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	var found models.OrderItem
	err := s.views.Update(owner(userID), func(v *View) error {
		o, item, err := findItem(v, orderID, itemID)
		if err != nil {
			return err
		}
		if !ShowActions(o, item) {
			return errors.NewValidationError("item_id", "only delivered items without a return accept this form")
		}
		found = *item
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found.ProductID == 0 && found.Product != nil {
		found.ProductID = found.Product.ID
	}
	return &found, nil
}

func (s *Service) closeForm(ctx context.Context, userID int64) (*Page, error) {
	_ = s.views.Update(owner(userID), func(v *View) error {
		v.Form = nil
		return nil
	})
	return s.Page(ctx, userID)
}

// ensure enters the view if the user has not loaded it yet.
func (s *Service) ensure(ctx context.Context, userID int64) error {
	err := s.views.Read(owner(userID), func(View) {})
	if errors.Is(err, errors.ErrNotFound) {
		_, err = s.Enter(ctx, userID)
	}
	return err
}

func (s *Service) publishOrder(ctx context.Context, eventType events.EventType, userID, orderID int64, payload interface{}) {
	if err := s.publisher.PublishOrder(ctx, eventType, userID, orderID, payload); err != nil {
		// Log but don't fail
		s.logger.Error("Failed to publish order event", logging.Fields{
			"order_id":   orderID,
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}
