package models

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "Placed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "Pending"
	PaymentStatusPaid            PaymentStatus = "Paid"
	PaymentStatusRefundInitiated PaymentStatus = "Refund Initiated"
	PaymentStatusRefunded        PaymentStatus = "Refunded"
)

type PaymentMethod string

const (
	PaymentMethodCashfree PaymentMethod = "Cashfree"
	PaymentMethodCOD      PaymentMethod = "COD"
)

// IsOnline reports whether the method settles through the hosted payment
// checkout rather than on delivery.
func (m PaymentMethod) IsOnline() bool {
	switch strings.ToLower(strings.TrimSpace(string(m))) {
	case "cashfree", "online", "card", "upi":
		return true
	}
	return false
}

type Order struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"userId"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	TotalAmount   float64       `json:"totalAmount"`
	FinalAmount   float64       `json:"finalAmount"`
	Items         []OrderItem   `json:"items"`
	User          *User         `json:"user,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type OrderItem struct {
	ID         int64          `json:"id"`
	OrderID    int64          `json:"orderId"`
	ProductID  int64          `json:"productId"`
	Quantity   int            `json:"quantity"`
	TotalPrice float64        `json:"totalPrice"`
	Status     OrderStatus    `json:"status"`
	Product    *Product       `json:"product,omitempty"`
	Returns    []ReturnRecord `json:"returns,omitempty"`
}

// ReturnRecord is a return request attached to a line item.
type ReturnRecord struct {
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

const ReturnStatusPending = "Pending"

// IsCancelled reports whether the item, or the order holding it, is cancelled.
func (o *Order) IsCancelled(item *OrderItem) bool {
	return o.Status == OrderStatusCancelled || (item != nil && item.Status == OrderStatusCancelled)
}

// ShowRefundStatus reports whether a refund badge applies to the order.
func (o *Order) ShowRefundStatus() bool {
	cancelled := o.Status == OrderStatusCancelled ||
		o.PaymentStatus == PaymentStatusRefundInitiated ||
		o.PaymentStatus == PaymentStatusRefunded
	return cancelled && o.PaymentMethod.IsOnline()
}

// HasReturn reports whether a return was requested for the item.
func (i *OrderItem) HasReturn() bool {
	return len(i.Returns) > 0
}

// ReturnStatus is the status of the latest return request, or "".
func (i *OrderItem) ReturnStatus() string {
	if !i.HasReturn() {
		return ""
	}
	return i.Returns[len(i.Returns)-1].Status
}

// SellerID returns the seller of the item's product, or 0 when unknown.
func (i *OrderItem) SellerID() int64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.SellerID
}
