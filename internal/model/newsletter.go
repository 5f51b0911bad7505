package model

import "time"

// NewsletterSubscriber is one address on the mailing list. Unsubscribing
// keeps the row and clears IsActive.
type NewsletterSubscriber struct {
	ID             uint64     `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"size:191;uniqueIndex;not null" json:"email"`
	IsActive       bool       `gorm:"not null" json:"isActive"`
	SubscribedAt   time.Time  `gorm:"not null" json:"subscribedAt"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt"`
}

func (NewsletterSubscriber) TableName() string { return "newsletter_subscribers" }
