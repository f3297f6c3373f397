package models

type Role struct {
	BaseModel

	Name             string `gorm:"uniqueIndex;not null;size:191" json:"name"`
	Description      string `json:"description"`
	Realm            Realm  `gorm:"not null;size:16;uniqueIndex:idx_roles_realm_order,priority:1" json:"realm"`
	AssignToNewUsers bool   `gorm:"default:false" json:"assign_to_new_users"`
	IsDefault        bool   `gorm:"default:false" json:"is_default"`
	IsSystem         bool   `gorm:"default:false" json:"is_system"`
	Order            int    `gorm:"column:sort_order;not null;uniqueIndex:idx_roles_realm_order,priority:2" json:"order"`

	// Permissions is populated by explicit joins over role_permissions, never by gorm associations.
	Permissions []Permission `gorm:"-" json:"permissions,omitempty"`
}
