package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the identity and timestamps of roles, permissions and tenants.
// IDs are UUID strings kept in a 36-character column so one schema migrates on every driver.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID unless the caller pinned one.
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
