package orders

import (
	"sort"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// FormKind names a post-delivery form.
type FormKind string

const (
	FormReview    FormKind = "review"
	FormReturn    FormKind = "return"
	FormComplaint FormKind = "complaint"
)

func (k FormKind) Valid() bool {
	return k == FormReview || k == FormReturn || k == FormComplaint
}

// Form is the single open form of an order history view.
type Form struct {
	Kind   FormKind `json:"kind"`
	ItemID int64    `json:"itemId"`
}

// View is the held order history of one user.
type View struct {
	Orders []models.Order
	Form   *Form
}

// Page is the rendered order history.
type Page struct {
	Orders         []OrderView            `json:"orders"`
	OpenForm       *Form                  `json:"openForm"`
	ComplaintTypes []models.ComplaintType `json:"complaintTypes"`
}

type OrderView struct {
	models.Order
	ShowRefundStatus bool       `json:"showRefundStatus"`
	Items            []ItemView `json:"items"`
}

type ItemView struct {
	models.OrderItem
	Cancelled    bool   `json:"cancelled"`
	ShowActions  bool   `json:"showActions"`
	ShowCancel   bool   `json:"showCancel"`
	ReturnStatus string `json:"returnStatus,omitempty"`
}

// ShowActions reports whether the post-delivery forms apply to item.
func ShowActions(o *models.Order, item *models.OrderItem) bool {
	return !o.IsCancelled(item) && item.Status == models.OrderStatusDelivered && !item.HasReturn()
}

// ShowCancel reports whether item can still be cancelled.
func ShowCancel(o *models.Order, item *models.OrderItem) bool {
	return !o.IsCancelled(item) && item.Status != models.OrderStatusDelivered && !item.HasReturn()
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func render(v View) *Page {
	page := &Page{
		Orders:         make([]OrderView, 0, len(v.Orders)),
		ComplaintTypes: models.ComplaintTypes,
	}
	if v.Form != nil {
		f := *v.Form
		page.OpenForm = &f
	}

	for i := range v.Orders {
		o := &v.Orders[i]
		ov := OrderView{
			Order:            *o,
			ShowRefundStatus: o.ShowRefundStatus(),
			Items:            make([]ItemView, 0, len(o.Items)),
		}
		for j := range o.Items {
			item := &o.Items[j]
			ov.Items = append(ov.Items, ItemView{
				OrderItem:    *item,
				Cancelled:    o.IsCancelled(item),
				ShowActions:  ShowActions(o, item),
				ShowCancel:   ShowCancel(o, item),
				ReturnStatus: item.ReturnStatus(),
			})
		}
		page.Orders = append(page.Orders, ov)
	}
	return page
}

func findOrder(v *View, orderID int64) (*models.Order, error) {
	for i := range v.Orders {
		if v.Orders[i].ID == orderID {
			return &v.Orders[i], nil
		}
	}
	return nil, errors.ErrNotFound
}

func findItem(v *View, orderID, itemID int64) (*models.Order, *models.OrderItem, error) {
	o, err := findOrder(v, orderID)
	if err != nil {
		return nil, nil, err
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return o, &o.Items[i], nil
		}
	}
	return nil, nil, errors.ErrNotFound
}

// locate finds an item by id across all orders.
func locate(v *View, itemID int64) (*models.Order, *models.OrderItem, error) {
	for i := range v.Orders {
		for j := range v.Orders[i].Items {
			if v.Orders[i].Items[j].ID == itemID {
				return &v.Orders[i], &v.Orders[i].Items[j], nil
			}
		}
	}
	return nil, nil, errors.ErrNotFound
}
