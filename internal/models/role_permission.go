package models

import "time"

// RolePermission joins a role to one of its permissions.
type RolePermission struct {
	RoleID       string    `gorm:"primaryKey;size:36" json:"role_id"`
	PermissionID string    `gorm:"primaryKey;size:36;index" json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}
