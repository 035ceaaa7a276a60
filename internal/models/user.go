// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account that authors content and interacts with it.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;not null" json:"-"`
	Password  string         `gorm:"not null" json:"-"`
	Bio       string         `json:"bio"`
	Avatar    string         `json:"avatar"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Viewer is the identity making a request. A nil *Viewer is anonymous.
type Viewer struct {
	ID uint
}

// NewViewer returns a viewer for userID, or nil (anonymous) when userID is zero.
func NewViewer(userID uint) *Viewer {
	if userID == 0 {
		return nil
	}
	return &Viewer{ID: userID}
}

// UserID returns the viewer's user ID, or 0 for anonymous viewers.
func (v *Viewer) UserID() uint {
	if v == nil {
		return 0
	}
	return v.ID
}
