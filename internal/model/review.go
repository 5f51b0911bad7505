package model

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
)

// Review is a customer's product rating. Reviews stay hidden from the
// storefront until approved.
type Review struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	ProductID  uint64    `gorm:"not null;index" json:"productId"`
	UserID     uint64    `gorm:"not null;index" json:"userId"`
	Rating     int       `gorm:"not null" json:"rating"`
	Title      *string   `gorm:"size:200" json:"title"`
	Comment    *string   `gorm:"type:text" json:"comment"`
	IsApproved bool      `gorm:"not null;index" json:"isApproved"`
	IsVerified bool      `gorm:"not null" json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	ProductName string       `gorm:"-" json:"productName,omitempty"`
	UserName    string       `gorm:"-" json:"userName,omitempty"`
	Status      ReviewStatus `gorm:"-" json:"status"`
}

func (Review) TableName() string { return "reviews" }

func (r *Review) ComputeStatus() ReviewStatus {
	if r.IsApproved {
		return ReviewApproved
	}
	return ReviewPending
}
