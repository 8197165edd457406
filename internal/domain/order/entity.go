// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/fixstar/storefront-backend/internal/domain/catalog"
	"github.com/fixstar/storefront-backend/internal/domain/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status represents the order status
type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusOnWay     Status = "on_way"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
)

// PaymentMethod represents how the customer pays
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodBank PaymentMethod = "bank"
)

// ValidStatus reports whether s is a known order status
func ValidStatus(s Status) bool {
	switch s {
	case StatusCreated, StatusPaid, StatusOnWay, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is a known payment method
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodBank:
		return true
	}
	return false
}

// Order represents a placed order. The primary key is an opaque UUID; the
// OrderNumber is the human-facing per-day sequential identifier. UserID is
// nullable so orders survive user deletion. ProductsReserved guards the
// reservation engine against double application.
type Order struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber      string        `gorm:"uniqueIndex;size:20" json:"order_number"`
	UserID           *uint         `gorm:"index" json:"user_id"`
	FirstName        string        `gorm:"not null;size:100" json:"first_name"`
	LastName         string        `gorm:"not null;size:100" json:"last_name"`
	PhoneNumber      string        `gorm:"not null;size:20" json:"phone_number"`
	RequiresDelivery bool          `gorm:"default:true" json:"requires_delivery"`
	DeliveryAddress  string        `gorm:"type:text" json:"delivery_address"`
	PaymentMethod    PaymentMethod `gorm:"not null;size:10;default:'cash'" json:"payment_method"`
	Status           Status        `gorm:"not null;size:20;default:'created';index" json:"status"`
	ProductsReserved bool          `gorm:"not null;default:false" json:"products_reserved"`
	CreatedAt        time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// Relationships
	User  *user.User  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"user,omitempty"`
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem represents one line of an order. Price is copied from the live
// product at order time and frozen; the product row itself is protected
// from deletion while referenced so historical orders stay inspectable.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`

	// Relationships
	Product catalog.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"product,omitempty"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// BeforeCreate assigns the UUID primary key
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Cost returns price * quantity for one line
func (i OrderItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TotalCost returns the sum of line costs
func (o *Order) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Cost())
	}
	return total
}

// TotalItems returns the summed quantity across lines
func (o *Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// CustomerName returns the contact name on the order
func (o *Order) CustomerName() string {
	return o.FirstName + " " + o.LastName
}

// CanTransitionTo reports whether the status machine allows moving to the
// target status. Canceled is terminal and cannot be re-activated.
// Applying the current status again is not a transition.
func (o *Order) CanTransitionTo(target Status) bool {
	if !ValidStatus(target) || target == o.Status {
		return false
	}

	switch o.Status {
	case StatusCreated:
		return true
	case StatusPaid:
		return target == StatusOnWay || target == StatusDelivered || target == StatusCanceled
	case StatusOnWay:
		return target == StatusDelivered || target == StatusCanceled
	case StatusDelivered:
		return target == StatusCanceled
	case StatusCanceled:
		return false
	}
	return false
}
