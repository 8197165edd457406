// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/fixstar/storefront-backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CartItem represents a cart line stored in the database for authenticated
// users. The (user, product) pair is unique per cart.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;index;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Product catalog.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// SessionCart is the strongly typed guest cart stored in Redis behind the
// SessionStore interface. Lines keep insertion order. Product existence is
// re-validated on every read since the session carries no FK integrity.
type SessionCart struct {
	SessionID string            `json:"session_id"`
	Lines     []SessionCartLine `json:"lines"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SessionCartLine is one (product, quantity) entry of a guest cart
type SessionCartLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// Quantity returns the quantity for a product, zero when absent
func (c *SessionCart) Quantity(productID uint) int {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

// Add merges quantity into an existing line or appends a new one
func (c *SessionCart) Add(productID uint, quantity int) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity += quantity
			return
		}
	}
	c.Lines = append(c.Lines, SessionCartLine{ProductID: productID, Quantity: quantity})
}

// Set replaces the quantity of an existing line. Returns false when the
// product is not in the cart.
func (c *SessionCart) Set(productID uint, quantity int) bool {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity = quantity
			return true
		}
	}
	return false
}

// Remove drops a line. Returns false when the product is not in the cart.
func (c *SessionCart) Remove(productID uint) bool {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// IsEmpty reports whether the cart has no lines
func (c *SessionCart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// CartTotals represents calculated cart totals. Positions is the number of
// distinct lines and is THE cart count used across the application;
// TotalQuantity is the summed quantity, kept separate for display.
type CartTotals struct {
	Positions     int             `json:"positions"`
	TotalQuantity int             `json:"total_quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// CartLineView is one cart line joined with live product data
type CartLineView struct {
	ProductID uint             `json:"product_id"`
	Quantity  int              `json:"quantity"`
	LinePrice decimal.Decimal  `json:"line_price"`
	Product   *catalog.Product `json:"product,omitempty"`
	AddedAt   time.Time        `json:"added_at"`
}

// CartView represents a shopping cart with lines and totals
type CartView struct {
	SessionID string         `json:"session_id,omitempty"`
	UserID    *uint          `json:"user_id,omitempty"`
	Lines     []CartLineView `json:"lines"`
	Totals    CartTotals     `json:"totals"`
}

// SnapshotLine is a normalized (product, quantity) pair extracted from either
// cart representation at checkout time
type SnapshotLine struct {
	Product  catalog.Product
	Quantity int
}
