package models

// Tenant is an isolated customer scope. App-realm assignments always reference one.
type Tenant struct {
	BaseModel

	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null;size:191" json:"slug"`
}
