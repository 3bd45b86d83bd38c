package models

import (
	"time"
)

// Group represents an artist group that owns a set of members
type Group struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`

	// Relationships
	Members []Member `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

// Member represents a single artist within a group
type Member struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_group_member" json:"group_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_group_member" json:"name"`

	// Relationships
	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
