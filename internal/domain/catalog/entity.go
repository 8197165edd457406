// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category represents a top-level product category
type Category struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Slug      string         `gorm:"uniqueIndex;not null;size:200" json:"slug"`
	Image     string         `gorm:"size:500" json:"image"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	SubCategories []SubCategory `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"subcategories,omitempty"`
}

// SubCategory represents a second-level category nested under a Category
type SubCategory struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"not null;size:255;uniqueIndex:idx_subcategory_category_name" json:"name"`
	CategoryID       uint           `gorm:"not null;index;uniqueIndex:idx_subcategory_category_name" json:"category_id"`
	Slug             string         `gorm:"uniqueIndex;not null;size:200" json:"slug"`
	Image            string         `gorm:"size:500" json:"image"`
	DescriptionImage string         `gorm:"size:500" json:"description_image"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Products []Product `gorm:"foreignKey:SubCategoryID" json:"products,omitempty"`
}

// Product represents a sellable item. Quantity is the on-hand stock counter;
// it is mutated only by the order reservation engine and never goes negative
// as a committed value.
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"not null;size:255" json:"name"`
	Code          string          `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Slug          string          `gorm:"uniqueIndex;not null;size:200" json:"slug"`
	StrengthClass string          `gorm:"size:50" json:"strength_class,omitempty"`
	Coating       string          `gorm:"size:100" json:"coating,omitempty"`
	Diameters     string          `gorm:"size:255" json:"diameters,omitempty"`
	Cuts          string          `gorm:"size:255" json:"cuts,omitempty"`
	Lengths       string          `gorm:"size:255" json:"lengths,omitempty"`
	Batch         string          `gorm:"size:100" json:"batch,omitempty"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Quantity      int             `gorm:"not null;default:0" json:"quantity"`
	SubCategoryID uint            `gorm:"not null;index" json:"subcategory_id"`
	Image         string          `gorm:"size:500" json:"image"`
	Description   string          `gorm:"type:text" json:"description"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	SubCategory SubCategory `gorm:"foreignKey:SubCategoryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"subcategory,omitempty"`
}

// TableName overrides
func (Category) TableName() string    { return "categories" }
func (SubCategory) TableName() string { return "subcategories" }
func (Product) TableName() string     { return "products" }

// IsInStock reports whether any units remain on hand
func (p *Product) IsInStock() bool {
	return p.Quantity > 0
}

// DisplayPrice returns the price rounded to two decimals for presentation.
// Internal arithmetic keeps full precision.
func (p *Product) DisplayPrice() decimal.Decimal {
	return p.Price.Round(2)
}
