package models

import "time"

type User struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	IsBlocked   bool      `json:"isBlocked"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Address is a free-form shipping address owned by a user.
type Address struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"userId"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Label      string `json:"label,omitempty"`
}

type Seller struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	BusinessName string    `json:"businessName"`
	BusinessType string    `json:"businessType"`
	IsActive     bool      `json:"isActive"`
	IsBlocked    bool      `json:"isBlocked"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}
