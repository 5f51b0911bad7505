package model

import "time"

// Category groups products. Categories nest one level deep through ParentID;
// a category with products or children cannot be deleted.
type Category struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Slug        string    `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	Description *string   `gorm:"type:text" json:"description"`
	ImageURL    *string   `gorm:"column:image_url;size:500" json:"imageUrl"`
	ParentID    *uint64   `gorm:"index" json:"parentId"`
	SortOrder   int       `gorm:"not null" json:"sortOrder"`
	IsActive    bool      `gorm:"not null" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	ProductCount int `gorm:"-" json:"productCount"`
	ChildCount   int `gorm:"-" json:"childCount"`
}

func (Category) TableName() string { return "categories" }
