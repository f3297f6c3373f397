package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole grants a role to a user. TenantID is nil exactly when the role belongs to the admin realm.
//
// The unique index does not deduplicate NULL tenants on every database, so services check for an
// existing row before inserting.
type UserRole struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_user_roles_triple,priority:1" json:"user_id"`
	RoleID    string    `gorm:"size:36;not null;index;uniqueIndex:idx_user_roles_triple,priority:2" json:"role_id"`
	TenantID  *string   `gorm:"size:36;index;uniqueIndex:idx_user_roles_triple,priority:3" json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`

	Role *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (ur *UserRole) BeforeCreate(tx *gorm.DB) error {
	if ur.ID == "" {
		ur.ID = uuid.NewString()
	}
	return nil
}
