package models

import (
	"encoding/json"
	"time"
)

type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Discount      float64   `json:"discount"`
	Stock         int       `json:"stock"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory"`
	Brand         string    `json:"brand,omitempty"`
	SKU           string    `json:"sku,omitempty"`
	Image         string    `json:"image,omitempty"`
	SellerID      int64     `json:"sellerId"`
	AverageRating float64   `json:"averageRating"`
	SoldCount     int       `json:"soldCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CartItem is a cart line. Price and Discount are denormalized at add time.
type CartItem struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"userId"`
	ProductID int64    `json:"productId"`
	Quantity  int      `json:"quantity"`
	Price     float64  `json:"price"`
	Discount  float64  `json:"discount"`
	Product   *Product `json:"product,omitempty"`
}

type WishlistItem struct {
	ID        int64 `json:"id,omitempty"`
	UserID    int64 `json:"userId,omitempty"`
	ProductID int64 `json:"productId"`
}

type Review struct {
	ID        int64     `json:"id,omitempty"`
	ProductID int64     `json:"productId"`
	UserID    int64     `json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ReviewList accepts either a bare array or an object wrapping "reviews".
type ReviewList []Review

func (l *ReviewList) UnmarshalJSON(data []byte) error {
	var arr []Review
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var wrapped struct {
		Reviews []Review `json:"reviews"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Reviews
	return nil
}
