package model

import "time"

// Address is a saved shipping address. At most one address per user is
// flagged IsDefault.
type Address struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	UserID     uint64    `gorm:"not null;index" json:"userId"`
	Label      *string   `gorm:"size:50" json:"label"`
	FullName   string    `gorm:"size:120;not null" json:"fullName"`
	Phone      *string   `gorm:"size:32" json:"phone"`
	Line1      string    `gorm:"size:200;not null" json:"line1"`
	Line2      *string   `gorm:"size:200" json:"line2"`
	City       string    `gorm:"size:100;not null" json:"city"`
	State      *string   `gorm:"size:100" json:"state"`
	PostalCode string    `gorm:"size:20;not null" json:"postalCode"`
	Country    string    `gorm:"size:2;not null" json:"country"`
	IsDefault  bool      `gorm:"not null" json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Address) TableName() string { return "addresses" }
