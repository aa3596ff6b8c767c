package admin

import (
	"context"
	"strconv"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/views"
)

// entity holds one fully loaded admin list per admin.
type entity[T any] struct {
	registry *views.Registry[*views.List[T]]
	load     func(ctx context.Context) ([]T, error)
	id       func(T) int64
	fields   func(T) []string
}

func newEntity[T any](load func(ctx context.Context) ([]T, error), id func(T) int64, fields func(T) []string) *entity[T] {
	return &entity[T]{
		registry: views.NewRegistry[*views.List[T]](),
		load:     load,
		id:       id,
		fields:   fields,
	}
}

// enter refetches the full list for owner.
func (e *entity[T]) enter(ctx context.Context, owner string) (*views.List[T], error) {
	return e.registry.Enter(ctx, owner, func(ctx context.Context) (*views.List[T], error) {
		items, err := e.load(ctx)
		if err != nil {
			return nil, err
		}
		return views.NewList(items, e.id, e.fields), nil
	})
}

// search enters the view and filters it.
func (e *entity[T]) search(ctx context.Context, owner, query string, keep func(T) bool) ([]T, error) {
	list, err := e.enter(ctx, owner)
	if err != nil {
		return nil, err
	}
	return list.Where(query, keep), nil
}

// items returns the held list without refetching.
func (e *entity[T]) items(owner string) []T {
	var out []T
	_ = e.registry.Read(owner, func(l *views.List[T]) { out = l.Items() })
	if out == nil {
		out = []T{}
	}
	return out
}

// patch updates the held item after a successful request. Owners that
// have not entered the view are skipped.
func (e *entity[T]) patch(owner string, id int64, fn func(*T)) {
	_ = e.registry.Update(owner, func(l **views.List[T]) error {
		(*l).Patch(id, fn)
		return nil
	})
}

func (e *entity[T]) remove(owner string, id int64) bool {
	removed := false
	err := e.registry.Update(owner, func(l **views.List[T]) error {
		removed = (*l).Remove(id)
		return nil
	})
	return err == nil && removed
}

func userFields(u models.User) []string {
	return []string{u.Name, u.Email, u.PhoneNumber}
}

func productFields(p models.Product) []string {
	return []string{p.Name, p.Category, p.Subcategory, p.SKU}
}

func sellerFields(s models.Seller) []string {
	return []string{s.Name, s.Email, s.BusinessName, s.BusinessType}
}

func complaintFields(c models.Complaint) []string {
	fields := []string{string(c.ComplaintType), c.Description}
	for _, p := range []*models.Party{c.RaisedByUser, c.RaisedBySeller, c.AgainstUser, c.AgainstSeller} {
		if p != nil {
			fields = append(fields, p.Name)
		}
	}
	return fields
}

func orderFields(o models.Order) []string {
	fields := []string{strconv.FormatInt(o.ID, 10)}
	if o.User != nil {
		fields = append(fields, o.User.Name, o.User.Email)
	}
	return fields
}

func owner(adminID int64) string {
	return "admin:" + strconv.FormatInt(adminID, 10)
}
