package model

import "time"

type BannerStatus string

const (
	BannerLive      BannerStatus = "live"
	BannerScheduled BannerStatus = "scheduled"
	BannerExpired   BannerStatus = "expired"
	BannerInactive  BannerStatus = "inactive"
)

// Banner is a storefront promotion slot. A missing start or end date leaves
// that side of the window open.
type Banner struct {
	ID         uint64     `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"size:200;not null" json:"title"`
	Subtitle   *string    `gorm:"size:300" json:"subtitle"`
	ImageURL   string     `gorm:"column:image_url;size:500;not null" json:"imageUrl"`
	LinkURL    *string    `gorm:"column:link_url;size:500" json:"linkUrl"`
	ButtonText *string    `gorm:"size:50" json:"buttonText"`
	Position   string     `gorm:"size:32;not null;index" json:"position"`
	SortOrder  int        `gorm:"not null" json:"sortOrder"`
	IsActive   bool       `gorm:"not null" json:"isActive"`
	StartDate  *time.Time `json:"startDate"`
	EndDate    *time.Time `json:"endDate"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	Status BannerStatus `gorm:"-" json:"status"`
}

func (Banner) TableName() string { return "banners" }

// ComputeStatus mirrors the coupon precedence: expired, then scheduled, then
// the active flag.
func (b *Banner) ComputeStatus(now time.Time) BannerStatus {
	switch {
	case b.EndDate != nil && b.EndDate.Before(now):
		return BannerExpired
	case b.StartDate != nil && b.StartDate.After(now):
		return BannerScheduled
	case b.IsActive:
		return BannerLive
	default:
		return BannerInactive
	}
}
