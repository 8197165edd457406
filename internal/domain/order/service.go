// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/cart"
	"github.com/fixstar/storefront-backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderNumberLockKey is the advisory lock key guarding the count-then-insert
// window of order number generation on Postgres. Two concurrent creations
// would otherwise receive the same per-day sequence number.
const orderNumberLockKey = 874011

// Notifier dispatches order notifications. Implementations are best-effort:
// they log failures and never surface errors into the caller's transaction.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order, recipient string, admin bool)
	OrderStatusChanged(ctx context.Context, o *Order, recipient string)
}

// Service handles order business logic. All stock mutation in the
// application goes through reserve/returnProducts here; nothing else
// touches Product.Quantity.
type Service struct {
	db          *gorm.DB
	config      *config.Config
	cartService *cart.Service
	notifier    Notifier
	log         *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, cartService *cart.Service, notifier Notifier, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		db:          db,
		config:      cfg,
		cartService: cartService,
		notifier:    notifier,
		log:         log,
	}
}

// PlaceOrderRequest represents order form data
type PlaceOrderRequest struct {
	FirstName        string        `json:"first_name" binding:"required"`
	LastName         string        `json:"last_name" binding:"required"`
	PhoneNumber      string        `json:"phone_number" binding:"required"`
	RequiresDelivery bool          `json:"requires_delivery"`
	DeliveryAddress  string        `json:"delivery_address"`
	PaymentMethod    PaymentMethod `json:"payment_method" binding:"required"`
}

// Validate checks form-level rules that binding tags cannot express: the
// delivery address is required exactly when delivery is requested.
func (r *PlaceOrderRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "" {
		return fmt.Errorf("%w: contact name is required", ErrValidation)
	}
	if strings.TrimSpace(r.PhoneNumber) == "" {
		return fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	if !ValidPaymentMethod(r.PaymentMethod) {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, r.PaymentMethod)
	}
	if r.RequiresDelivery && strings.TrimSpace(r.DeliveryAddress) == "" {
		return fmt.Errorf("%w: delivery address is required", ErrValidation)
	}
	if !r.RequiresDelivery {
		// pickup orders carry no address
		r.DeliveryAddress = ""
	}
	return nil
}

// ListRequest represents order list query parameters
type ListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Status    Status `form:"status"`
	UserID    uint   `form:"user_id"`
	SortOrder string `form:"sort_order,default=desc"`
}

// ListResponse represents orders with pagination
type ListResponse struct {
	Orders     []Order            `json:"orders"`
	Pagination catalog.Pagination `json:"pagination"`
}

// PlaceOrder converts the caller's cart into an order. The cart snapshot
// freezes current product prices; an empty snapshot rejects the attempt
// before anything is written. One transaction then spans order creation,
// order number generation, line insertion and stock reservation, so any
// failure leaves no order row and no stock change. The source cart is
// cleared and notifications go out only after the transaction commits.
func (s *Service) PlaceOrder(ctx context.Context, userID *uint, userEmail, sessionID string, req *PlaceOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := s.cartService.Snapshot(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot cart: %w", err)
	}
	if len(snapshot) == 0 {
		return nil, ErrEmptyCart
	}

	order := Order{
		UserID:           userID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		PhoneNumber:      req.PhoneNumber,
		RequiresDelivery: req.RequiresDelivery,
		DeliveryAddress:  req.DeliveryAddress,
		PaymentMethod:    req.PaymentMethod,
		Status:           StatusCreated,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		number, err := s.generateOrderNumber(tx, time.Now())
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		// The snapshot product rides along on each line so confirmation
		// emails can render names and codes; the association itself is
		// never written back.
		items := make([]OrderItem, 0, len(snapshot))
		for _, line := range snapshot {
			items = append(items, OrderItem{
				OrderID:   order.ID,
				ProductID: line.Product.ID,
				Price:     line.Product.Price,
				Quantity:  line.Quantity,
				Product:   line.Product,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		order.Items = items

		if err := s.reserve(tx, &order); err != nil {
			return fmt.Errorf("failed to reserve products: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// The order is committed; clearing the source cart and notifying are
	// follow-ups that must not undo it.
	if err := s.cartService.Clear(ctx, userID, sessionID); err != nil {
		s.log.WithError(err).WithField("order_number", order.OrderNumber).
			Warn("failed to clear cart after order creation")
	}

	s.notifyOrderCreated(ctx, &order, userEmail)

	return &order, nil
}

// GetOrder retrieves an order with its items by ID. Products are loaded
// unscoped: a product soft-deleted from the catalog must still render on
// the historical orders that sold it.
func (s *Service) GetOrder(id uuid.UUID) (*Order, error) {
	var order Order
	err := s.db.Preload("Items").Preload("Items.Product", unscoped).Preload("User").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// GetOrderByNumber retrieves an order by its human-facing number
func (s *Service) GetOrderByNumber(orderNumber string) (*Order, error) {
	var order Order
	err := s.db.Preload("Items").Preload("Items.Product", unscoped).Preload("User").
		Where("order_number = ?", orderNumber).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// ListOrders returns orders matching the filter, newest first by default
func (s *Service) ListOrders(req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{})
	if req.Status != "" {
		if !ValidStatus(req.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	sortOrder := "DESC"
	if req.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	err := query.Preload("Items").
		Order("created_at " + sortOrder).
		Offset(offset).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))

	return &ListResponse{
		Orders: orders,
		Pagination: catalog.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetUserOrders returns a user's own orders
func (s *Service) GetUserOrders(userID uint, page, limit int) (*ListResponse, error) {
	return s.ListOrders(&ListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

// UpdateStatus applies an administrative status transition. Re-applying the
// current status is a pure no-op: no notification, no stock effect.
// Entering Canceled returns reserved stock to inventory; Canceled itself is
// terminal. Every real transition notifies the owning user best-effort.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) (*Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == newStatus {
		return order, nil
	}

	if !order.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, newStatus)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if newStatus == StatusCanceled && order.ProductsReserved {
			if err := s.returnProducts(tx, order); err != nil {
				return fmt.Errorf("failed to return products: %w", err)
			}
		}

		if err := tx.Model(order).Update("status", newStatus).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = newStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyStatusChanged(ctx, order)

	return order, nil
}

// CancelOrder transitions an order to Canceled, returning reserved stock.
// Repeating the cancellation is a no-op.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	order, err := s.UpdateStatus(ctx, orderID, StatusCanceled)
	if errors.Is(err, ErrInvalidTransition) {
		// already canceled: idempotent
		if existing, getErr := s.GetOrder(orderID); getErr == nil && existing.Status == StatusCanceled {
			return existing, nil
		}
	}
	return order, err
}

// Reservation engine

// reserve decrements on-hand stock for every order line inside the given
// transaction and marks the order reserved. A second call is a soft no-op
// signalled by ErrAlreadyReserved. Stock is clamped at zero: concurrent
// over-subscription loses the discrepancy, which is logged, never silently
// corrected into negative stock.
func (s *Service) reserve(tx *gorm.DB, order *Order) error {
	if order.ProductsReserved {
		s.log.WithField("order_number", order.OrderNumber).
			Warn("products already reserved, skipping")
		return ErrAlreadyReserved
	}

	for i := range order.Items {
		item := &order.Items[i]

		var product catalog.Product
		if err := lockForUpdate(tx).First(&product, item.ProductID).Error; err != nil {
			return fmt.Errorf("failed to lock product %d: %w", item.ProductID, err)
		}

		remaining := product.Quantity - item.Quantity
		if remaining < 0 {
			s.log.WithFields(logrus.Fields{
				"order_number": order.OrderNumber,
				"product_code": product.Code,
				"on_hand":      product.Quantity,
				"requested":    item.Quantity,
			}).Warn("stock clamped at zero during reservation")
			remaining = 0
		}

		if err := tx.Model(&catalog.Product{}).Where("id = ?", product.ID).
			UpdateColumn("quantity", remaining).Error; err != nil {
			return fmt.Errorf("failed to update stock for product %d: %w", product.ID, err)
		}

		s.log.WithFields(logrus.Fields{
			"order_number": order.OrderNumber,
			"product_code": product.Code,
			"was":          product.Quantity,
			"reserved":     item.Quantity,
			"remaining":    remaining,
		}).Info("product reserved")
	}

	if err := tx.Model(order).UpdateColumn("products_reserved", true).Error; err != nil {
		return fmt.Errorf("failed to mark order reserved: %w", err)
	}
	order.ProductsReserved = true

	return nil
}

// returnProducts adds each line's quantity back to current stock inside the
// given transaction and clears the reserved flag. A read-modify-write under
// the row lock, so concurrent stock changes from other orders are
// preserved. Calling it on an unreserved order is a soft no-op signalled by
// ErrNotReserved.
func (s *Service) returnProducts(tx *gorm.DB, order *Order) error {
	if !order.ProductsReserved {
		s.log.WithField("order_number", order.OrderNumber).
			Warn("products not reserved, skipping return")
		return ErrNotReserved
	}

	for i := range order.Items {
		item := &order.Items[i]

		// Unscoped: stock returns to a product even after it left the catalog
		var product catalog.Product
		if err := lockForUpdate(tx.Unscoped()).First(&product, item.ProductID).Error; err != nil {
			return fmt.Errorf("failed to lock product %d: %w", item.ProductID, err)
		}

		restored := product.Quantity + item.Quantity
		if err := tx.Unscoped().Model(&catalog.Product{}).Where("id = ?", product.ID).
			UpdateColumn("quantity", restored).Error; err != nil {
			return fmt.Errorf("failed to restore stock for product %d: %w", product.ID, err)
		}

		s.log.WithFields(logrus.Fields{
			"order_number": order.OrderNumber,
			"product_code": product.Code,
			"was":          product.Quantity,
			"returned":     item.Quantity,
			"now":          restored,
		}).Info("product returned to stock")
	}

	if err := tx.Model(order).UpdateColumn("products_reserved", false).Error; err != nil {
		return fmt.Errorf("failed to clear reserved flag: %w", err)
	}
	order.ProductsReserved = false

	return nil
}

// generateOrderNumber builds the human-facing "{sequence}.{DDMMYY}" number
// by counting orders created since local midnight. On Postgres the
// count-then-insert window is serialized with a transaction-scoped advisory
// lock.
func (s *Service) generateOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", orderNumberLockKey).Error; err != nil {
			return "", fmt.Errorf("failed to acquire order number lock: %w", err)
		}
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int64
	if err := tx.Model(&Order{}).Where("created_at >= ?", midnight).Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to count today's orders: %w", err)
	}

	return fmt.Sprintf("%d.%s", count+1, now.Format("020106")), nil
}

// unscoped lifts the soft-delete scope on a preload
func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// lockForUpdate adds a row-level lock on Postgres; other dialects (the
// SQLite test database) serialize writes on their own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Notification dispatch. Best-effort only: the Notifier logs its own
// failures and nothing here can affect a committed order.

func (s *Service) notifyOrderCreated(ctx context.Context, order *Order, userEmail string) {
	if s.notifier == nil {
		return
	}

	recipients, err := ActiveRecipients(s.db)
	if err != nil {
		s.log.WithError(err).Warn("failed to load notification recipients")
	}
	for _, recipient := range recipients {
		s.notifier.OrderCreated(ctx, order, recipient, true)
	}

	if userEmail != "" {
		s.notifier.OrderCreated(ctx, order, userEmail, false)
	}
}

func (s *Service) notifyStatusChanged(ctx context.Context, order *Order) {
	if s.notifier == nil {
		return
	}
	if order.User != nil && order.User.Email != "" {
		s.notifier.OrderStatusChanged(ctx, order, order.User.Email)
	}
}
