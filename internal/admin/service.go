package admin

import (
	"context"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Service backs the admin console. Each admin holds its own copy of every
// entity list; lists are refetched on every entry and patched after
// successful mutations.
type Service struct {
	client     clients.AdminClient
	users      *entity[models.User]
	products   *entity[models.Product]
	sellers    *entity[models.Seller]
	complaints *entity[models.Complaint]
	orders     *entity[models.Order]
	logger     *logging.LoggerV2
}

// NewService creates a new admin service.
func NewService(client clients.AdminClient) *Service {
	return &Service{
		client:     client,
		users:      newEntity(client.ListUsers, func(u models.User) int64 { return u.ID }, userFields),
		products:   newEntity(client.ListAllProducts, func(p models.Product) int64 { return p.ID }, productFields),
		sellers:    newEntity(client.ListSellers, func(s models.Seller) int64 { return s.ID }, sellerFields),
		complaints: newEntity(client.ListComplaints, func(c models.Complaint) int64 { return c.ID }, complaintFields),
		orders:     newEntity(client.ListAllOrders, func(o models.Order) int64 { return o.ID }, orderFields),
		logger:     logging.NewLoggerV2("admin-service"),
	}
}

// Forget drops every entity list held for the admin.
func (s *Service) Forget(adminID int64) {
	o := owner(adminID)
	s.users.registry.Drop(o)
	s.products.registry.Drop(o)
	s.sellers.registry.Drop(o)
	s.complaints.registry.Drop(o)
	s.orders.registry.Drop(o)
	s.logger.Debug("Admin views dropped", logging.Fields{"admin_id": adminID})
}

// Dashboard returns the headline counters.
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	return s.client.Dashboard(ctx)
}

func (s *Service) Users(ctx context.Context, adminID int64, query string) ([]models.User, error) {
	return s.users.search(ctx, owner(adminID), query, nil)
}

// SetUserBlocked blocks or unblocks a user and patches the held list.
func (s *Service) SetUserBlocked(ctx context.Context, adminID, userID int64, blocked bool) ([]models.User, error) {
	var err error
	if blocked {
		err = s.client.BlockUser(ctx, userID)
	} else {
		err = s.client.UnblockUser(ctx, userID)
	}
	if err != nil {
		s.logger.Error("Failed to update user", logging.Fields{
			"user_id": userID,
			"blocked": blocked,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.users.patch(owner(adminID), userID, func(u *models.User) { u.IsBlocked = blocked })
	s.logger.Info("User updated", logging.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"blocked":  blocked,
	})
	return s.users.items(owner(adminID)), nil
}

// RemoveUser hides a user from the held list. Nothing is sent to the backend.
func (s *Service) RemoveUser(adminID, userID int64) ([]models.User, error) {
	if !s.users.remove(owner(adminID), userID) {
		return nil, errors.ErrNotFound
	}
	return s.users.items(owner(adminID)), nil
}

func (s *Service) Products(ctx context.Context, adminID int64, query string) ([]models.Product, error) {
	return s.products.search(ctx, owner(adminID), query, nil)
}

func (s *Service) DeleteProduct(ctx context.Context, adminID, productID int64) ([]models.Product, error) {
	if err := s.client.DeleteProduct(ctx, productID); err != nil {
		s.logger.Error("Failed to delete product", logging.Fields{
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, err
	}
	s.products.remove(owner(adminID), productID)
	return s.products.items(owner(adminID)), nil
}

// Sellers lists approved sellers.
func (s *Service) Sellers(ctx context.Context, adminID int64, query string) ([]models.Seller, error) {
	return s.sellers.search(ctx, owner(adminID), query, func(sl models.Seller) bool { return sl.IsActive })
}

// SellerRequests lists sellers awaiting approval.
func (s *Service) SellerRequests(ctx context.Context, adminID int64, query string) ([]models.Seller, error) {
	return s.sellers.search(ctx, owner(adminID), query, func(sl models.Seller) bool { return !sl.IsActive })
}

func (s *Service) Seller(ctx context.Context, sellerID int64) (*models.Seller, error) {
	return s.client.GetSeller(ctx, sellerID)
}

func (s *Service) SetSellerBlocked(ctx context.Context, adminID, sellerID int64, blocked bool) ([]models.Seller, error) {
	if err := s.client.SetSellerBlocked(ctx, sellerID, blocked); err != nil {
		s.logger.Error("Failed to update seller", logging.Fields{
			"seller_id": sellerID,
			"blocked":   blocked,
			"error":     err.Error(),
		})
		return nil, err
	}
	s.sellers.patch(owner(adminID), sellerID, func(sl *models.Seller) { sl.IsBlocked = blocked })
	return s.sellers.items(owner(adminID)), nil
}

func (s *Service) DeleteSeller(ctx context.Context, adminID, sellerID int64) ([]models.Seller, error) {
	if err := s.client.DeleteSeller(ctx, sellerID); err != nil {
		s.logger.Error("Failed to delete seller", logging.Fields{
			"seller_id": sellerID,
			"error":     err.Error(),
		})
		return nil, err
	}
	s.sellers.remove(owner(adminID), sellerID)
	return s.sellers.items(owner(adminID)), nil
}

// ApproveSeller activates a seller request and refetches the seller list.
func (s *Service) ApproveSeller(ctx context.Context, adminID, sellerID int64) ([]models.Seller, error) {
	if err := s.client.ApproveSeller(ctx, sellerID); err != nil {
		s.logger.Error("Failed to approve seller", logging.Fields{
			"seller_id": sellerID,
			"error":     err.Error(),
		})
		return nil, err
	}
	s.logger.Info("Seller approved", logging.Fields{
		"admin_id":  adminID,
		"seller_id": sellerID,
	})
	return s.sellers.search(ctx, owner(adminID), "", nil)
}

// RejectSeller deletes a seller request.
func (s *Service) RejectSeller(ctx context.Context, adminID, sellerID int64) ([]models.Seller, error) {
	if err := s.client.RejectSeller(ctx, sellerID); err != nil {
		s.logger.Error("Failed to reject seller", logging.Fields{
			"seller_id": sellerID,
			"error":     err.Error(),
		})
		return nil, err
	}
	s.sellers.remove(owner(adminID), sellerID)
	return s.sellers.items(owner(adminID)), nil
}

// ComplaintFilter narrows the complaint list. Status and Priority match
// exactly; an empty value matches all.
type ComplaintFilter struct {
	Query    string
	Status   string
	Priority string
}

func (s *Service) Complaints(ctx context.Context, adminID int64, f ComplaintFilter) ([]models.Complaint, error) {
	return s.complaints.search(ctx, owner(adminID), f.Query, func(c models.Complaint) bool {
		if f.Status != "" && c.Status != f.Status {
			return false
		}
		if f.Priority != "" && c.Priority != f.Priority {
			return false
		}
		return true
	})
}

// ComplaintInput is an admin's change to a complaint.
type ComplaintInput struct {
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	ResolutionNote string `json:"resolutionNote"`
}

// UpdateComplaint sends the change and refetches the complaint list. A
// resolved complaint records the acting admin as resolver.
func (s *Service) UpdateComplaint(ctx context.Context, adminID, complaintID int64, in ComplaintInput) ([]models.Complaint, error) {
	in.Status = strings.TrimSpace(in.Status)
	if in.Status == "" {
		return nil, errors.NewValidationError("status", "status is required")
	}

	update := models.ComplaintUpdate{
		Status:         in.Status,
		Priority:       in.Priority,
		ResolutionNote: in.ResolutionNote,
	}
	if in.Status == models.ComplaintStatusResolved {
		if adminID <= 0 {
			return nil, errors.NewValidationError("resolvedBy", "admin id missing from token")
		}
		resolver := adminID
		update.ResolvedBy = &resolver
	}

	if err := s.client.UpdateComplaint(ctx, complaintID, update); err != nil {
		s.logger.Error("Failed to update complaint", logging.Fields{
			"complaint_id": complaintID,
			"error":        err.Error(),
		})
		return nil, err
	}
	return s.complaints.search(ctx, owner(adminID), "", nil)
}

func (s *Service) Orders(ctx context.Context, adminID int64, query string) ([]models.Order, error) {
	return s.orders.search(ctx, owner(adminID), query, nil)
}
