package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is owned by the accounts subsystem. Only the fields RBAC reads or keeps in sync live here.
type User struct {
	ID    string `gorm:"primaryKey;size:36" json:"id"`
	Email string `gorm:"uniqueIndex;not null;size:191" json:"email"`
	Name  string `json:"name"`

	// Admin mirrors "holds at least one admin-realm role" and is recomputed on every admin grant or revoke.
	Admin bool `gorm:"default:false" json:"admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
