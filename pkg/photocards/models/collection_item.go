package models

import (
	"time"
)

// Status is a card's position in the acquisition pipeline
type Status string

const (
	StatusWishlist Status = "wishlist"
	StatusOnTheWay Status = "on_the_way"
	StatusOwned    Status = "owned"
	StatusCEG      Status = "ceg"
)

// Statuses lists every stage in display order
var Statuses = []Status{StatusWishlist, StatusOnTheWay, StatusOwned, StatusCEG}

// Valid reports whether s is one of the known stages
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns the human readable name of the stage
func (s Status) Label() string {
	switch s {
	case StatusWishlist:
		return "Wishlist"
	case StatusOnTheWay:
		return "On the way"
	case StatusOwned:
		return "My collection"
	case StatusCEG:
		return "CEG"
	default:
		return string(s)
	}
}

// CollectionItem represents one physical card tracked in the collection.
// Rows are created out-of-band (see importexport); the web UI only updates them.
type CollectionItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Status      Status    `gorm:"type:varchar(20);not null;index;default:'wishlist'" json:"status"`
	ImageURL    *string   `json:"image_url"`
	Description *string   `json:"description"`
	MemberID    *uint     `gorm:"index" json:"member_id"`
	IsFavorite  bool      `gorm:"default:false" json:"is_favorite"`

	// Relationships
	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

// TableName keeps the table name used by the hosted backend
func (CollectionItem) TableName() string {
	return "collection"
}
