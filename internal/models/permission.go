package models

// Permission is a named capability checked in code, e.g. "admin.roles.update".
type Permission struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null;size:191" json:"name"`
	Description string `json:"description"`
	Realm       Realm  `gorm:"not null;size:16;uniqueIndex:idx_permissions_realm_order,priority:1" json:"realm"`
	IsDefault   bool   `gorm:"default:false" json:"is_default"`
	Order       int    `gorm:"column:sort_order;not null;uniqueIndex:idx_permissions_realm_order,priority:2" json:"order"`
}
