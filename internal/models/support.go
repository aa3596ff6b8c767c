package models

import "time"

type ComplaintType string

const (
	ComplaintTypeFraud            ComplaintType = "Fraud"
	ComplaintTypeDefectiveProduct ComplaintType = "Defective Product"
	ComplaintTypeWrongItem        ComplaintType = "Wrong Item"
	ComplaintTypeLateDelivery     ComplaintType = "Late Delivery"
	ComplaintTypePoorQuality      ComplaintType = "Poor Quality"
	ComplaintTypeMissingItem      ComplaintType = "Missing Item"
	ComplaintTypeOther            ComplaintType = "Other"
)

// ComplaintTypes lists the accepted complaint types in display order.
var ComplaintTypes = []ComplaintType{
	ComplaintTypeFraud,
	ComplaintTypeDefectiveProduct,
	ComplaintTypeWrongItem,
	ComplaintTypeLateDelivery,
	ComplaintTypePoorQuality,
	ComplaintTypeMissingItem,
	ComplaintTypeOther,
}

// Valid reports whether t is one of ComplaintTypes.
func (t ComplaintType) Valid() bool {
	for _, known := range ComplaintTypes {
		if t == known {
			return true
		}
	}
	return false
}

type ReturnRequest struct {
	OrderID     int64  `json:"orderId"`
	UserID      int64  `json:"userId"`
	Reason      string `json:"reason"`
	OrderItemID int64  `json:"orderItemId"`
}

type ComplaintRequest struct {
	RaisedByUserID  int64         `json:"raisedByUserId"`
	AgainstSellerID int64         `json:"againstSellerId"`
	OrderID         int64         `json:"orderId"`
	ProductID       int64         `json:"productId"`
	ComplaintType   ComplaintType `json:"complaintType"`
	Description     string        `json:"description"`
}

// Party is a named participant referenced by a complaint.
type Party struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Complaint struct {
	ID             int64         `json:"id"`
	ComplaintType  ComplaintType `json:"complaintType"`
	Description    string        `json:"description"`
	Status         string        `json:"status"`
	Priority       string        `json:"priority"`
	ResolutionNote string        `json:"resolutionNote,omitempty"`
	RaisedByUser   *Party        `json:"raisedByUser,omitempty"`
	RaisedBySeller *Party        `json:"raisedBySeller,omitempty"`
	AgainstUser    *Party        `json:"againstUser,omitempty"`
	AgainstSeller  *Party        `json:"againstSeller,omitempty"`
	CreatedAt      time.Time     `json:"createdAt,omitempty"`
}

const ComplaintStatusResolved = "Resolved"

type ComplaintUpdate struct {
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	ResolvedBy     *int64 `json:"resolvedBy"`
	ResolutionNote string `json:"resolutionNote"`
}

type Growth struct {
	Users    float64 `json:"users"`
	Products float64 `json:"products"`
	Orders   float64 `json:"orders"`
	Sellers  float64 `json:"sellers"`
}

type DashboardStats struct {
	TotalUsers     int64         `json:"totalUsers"`
	TotalProducts  int64         `json:"totalProducts"`
	TotalOrders    int64         `json:"totalOrders"`
	TotalSellers   int64         `json:"totalSellers"`
	RecentActivity []interface{} `json:"recentActivity"`
	Revenue        float64       `json:"revenue"`
	Growth         Growth        `json:"growth"`
}
