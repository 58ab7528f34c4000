// internal/models/reference.go
package models

// Reference (master data) entities. No behavior beyond CRUD; used as
// foreign keys by subscriptions and payment cycles.

type Department struct {
	BaseModel
	Name     string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Code     string `json:"code" gorm:"uniqueIndex;size:20;not null"`
	IsActive bool   `json:"is_active" gorm:"default:true;index"`

	// Relationships
	POCs []User `json:"pocs,omitempty" gorm:"many2many:user_departments;"`
}

type Location struct {
	BaseModel
	Name     string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	City     string `json:"city" gorm:"size:100"`
	State    string `json:"state" gorm:"size:100"`
	IsActive bool   `json:"is_active" gorm:"default:true;index"`
}

type Vendor struct {
	BaseModel
	Name         string `json:"name" gorm:"uniqueIndex;size:255;not null"`
	ContactEmail string `json:"contact_email" gorm:"size:255"`
	Website      string `json:"website" gorm:"size:255"`
	GSTIN        string `json:"gstin" gorm:"size:20"`
	IsActive     bool   `json:"is_active" gorm:"default:true;index"`
}

// Product is a software tool in the catalog that subscriptions are raised for.
type Product struct {
	BaseModel
	Name        string `json:"name" gorm:"uniqueIndex;size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Category    string `json:"category" gorm:"size:100;index"`
	IsActive    bool   `json:"is_active" gorm:"default:true;index"`
}
