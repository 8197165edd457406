// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service handles cart business logic for both representations: database
// rows for authenticated users and session-keyed carts for guests. Every
// mutating operation enforces the oversell guard against live product stock
// and leaves the cart untouched on failure.
type Service struct {
	db       *gorm.DB
	sessions SessionStore
	config   *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, sessions SessionStore, cfg *config.Config) *Service {
	return &Service{
		db:       db,
		sessions: sessions,
		config:   cfg,
	}
}

// AddItemRequest represents an add-to-cart request
type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// SetQuantityRequest represents an absolute quantity update
type SetQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// GetCart returns the cart view for a user or guest session
func (s *Service) GetCart(ctx context.Context, userID *uint, sessionID string) (*CartView, error) {
	lines, err := s.loadLines(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	return &CartView{
		SessionID: sessionID,
		UserID:    userID,
		Lines:     lines,
		Totals:    calculateTotals(lines),
	}, nil
}

// AddItem adds quantity of a product to the cart, merging into an existing
// line. The merged quantity may never exceed the product's current on-hand
// stock.
func (s *Service) AddItem(ctx context.Context, userID *uint, sessionID string, req *AddItemRequest) (*CartView, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.activeProduct(req.ProductID)
	if err != nil {
		return nil, err
	}

	existing, err := s.quantityInCart(ctx, userID, sessionID, req.ProductID)
	if err != nil {
		return nil, err
	}

	if existing+req.Quantity > product.Quantity {
		return nil, fmt.Errorf("%w: requested %d, already in cart %d, available %d",
			ErrInsufficientStock, req.Quantity, existing, product.Quantity)
	}

	if userID != nil {
		err = s.addToUserCart(*userID, req.ProductID, req.Quantity)
	} else {
		err = s.addToSessionCart(ctx, sessionID, req.ProductID, req.Quantity)
	}
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID, sessionID)
}

// SetQuantity sets the absolute quantity of an existing cart line. A call
// with the current quantity is a success no-op that still returns fresh
// totals.
func (s *Service) SetQuantity(ctx context.Context, userID *uint, sessionID string, productID uint, req *SetQuantityRequest) (*CartView, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.activeProduct(productID)
	if err != nil {
		return nil, err
	}

	if req.Quantity > product.Quantity {
		return nil, fmt.Errorf("%w: requested %d, available %d",
			ErrInsufficientStock, req.Quantity, product.Quantity)
	}

	if userID != nil {
		var item CartItem
		err := s.db.Where("user_id = ? AND product_id = ?", *userID, productID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		} else if err != nil {
			return nil, fmt.Errorf("failed to load cart item: %w", err)
		}

		if item.Quantity != req.Quantity {
			item.Quantity = req.Quantity
			if err := s.db.Save(&item).Error; err != nil {
				return nil, fmt.Errorf("failed to update cart item: %w", err)
			}
		}
	} else {
		sessionCart, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		if sessionCart.Quantity(productID) != req.Quantity {
			if !sessionCart.Set(productID, req.Quantity) {
				return nil, ErrItemNotFound
			}
			if err := s.sessions.Save(ctx, sessionID, sessionCart); err != nil {
				return nil, err
			}
		}
	}

	return s.GetCart(ctx, userID, sessionID)
}

// RemoveItem removes a product line from the cart. Removing a line that is
// not present is reported as ErrItemNotFound.
func (s *Service) RemoveItem(ctx context.Context, userID *uint, sessionID string, productID uint) (*CartView, error) {
	if userID != nil {
		result := s.db.Where("user_id = ? AND product_id = ?", *userID, productID).Delete(&CartItem{})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to remove cart item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrItemNotFound
		}
	} else {
		sessionCart, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !sessionCart.Remove(productID) {
			return nil, ErrItemNotFound
		}
		if err := s.sessions.Save(ctx, sessionID, sessionCart); err != nil {
			return nil, err
		}
	}

	return s.GetCart(ctx, userID, sessionID)
}

// Clear removes all lines from the cart
func (s *Service) Clear(ctx context.Context, userID *uint, sessionID string) error {
	if userID != nil {
		return s.db.Where("user_id = ?", *userID).Delete(&CartItem{}).Error
	}
	return s.sessions.Delete(ctx, sessionID)
}

// Count returns the cart badge count: the number of distinct positions
func (s *Service) Count(ctx context.Context, userID *uint, sessionID string) (int, error) {
	if userID != nil {
		var count int64
		if err := s.db.Model(&CartItem{}).Where("user_id = ?", *userID).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to count cart items: %w", err)
		}
		return int(count), nil
	}

	sessionCart, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(sessionCart.Lines), nil
}

// Snapshot extracts a normalized list of (product, quantity) pairs from
// either cart representation. Lines whose product no longer exists or has
// been deactivated are skipped; session carts carry no FK integrity.
func (s *Service) Snapshot(ctx context.Context, userID *uint, sessionID string) ([]SnapshotLine, error) {
	var pairs []SessionCartLine

	if userID != nil {
		var items []CartItem
		if err := s.db.Where("user_id = ?", *userID).Order("id ASC").Find(&items).Error; err != nil {
			return nil, fmt.Errorf("failed to load user cart: %w", err)
		}
		for _, item := range items {
			pairs = append(pairs, SessionCartLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	} else {
		sessionCart, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		pairs = sessionCart.Lines
	}

	snapshot := make([]SnapshotLine, 0, len(pairs))
	for _, pair := range pairs {
		var product catalog.Product
		err := s.db.Where("id = ? AND is_active = ?", pair.ProductID, true).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("failed to load product %d: %w", pair.ProductID, err)
		}
		snapshot = append(snapshot, SnapshotLine{Product: product, Quantity: pair.Quantity})
	}

	return snapshot, nil
}

// MergeSessionCart folds a guest cart into the user's database cart on
// login, summing quantities. Merged quantities are capped at available
// stock; the session key is dropped afterwards.
func (s *Service) MergeSessionCart(ctx context.Context, userID uint, sessionID string) error {
	sessionCart, err := s.sessions.Get(ctx, sessionID)
	if err != nil || sessionCart.IsEmpty() {
		return nil // nothing to merge
	}

	for _, line := range sessionCart.Lines {
		product, err := s.activeProduct(line.ProductID)
		if err != nil {
			continue // stale session line
		}

		var existing CartItem
		result := s.db.Where("user_id = ? AND product_id = ?", userID, line.ProductID).First(&existing)

		merged := line.Quantity
		if result.Error == nil {
			merged += existing.Quantity
		}
		if merged > product.Quantity {
			merged = product.Quantity
		}
		if merged < 1 {
			continue
		}

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			item := CartItem{
				UserID:    userID,
				ProductID: line.ProductID,
				Quantity:  merged,
			}
			if err := s.db.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to merge cart line: %w", err)
			}
		} else if result.Error == nil {
			existing.Quantity = merged
			if err := s.db.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to merge cart line: %w", err)
			}
		} else {
			return fmt.Errorf("failed to load cart line: %w", result.Error)
		}
	}

	return s.sessions.Delete(ctx, sessionID)
}

// CleanupExpired deletes persisted cart rows older than maxAge. Session
// carts expire through their Redis TTL. Returns the number of rows removed.
func (s *Service) CleanupExpired(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	result := s.db.Where("created_at < ?", cutoff).Delete(&CartItem{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clean up expired carts: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// Private helper methods

func (s *Service) activeProduct(productID uint) (*catalog.Product, error) {
	var product catalog.Product
	err := s.db.Where("id = ? AND is_active = ?", productID, true).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

func (s *Service) quantityInCart(ctx context.Context, userID *uint, sessionID string, productID uint) (int, error) {
	if userID != nil {
		var item CartItem
		err := s.db.Where("user_id = ? AND product_id = ?", *userID, productID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		} else if err != nil {
			return 0, fmt.Errorf("failed to load cart item: %w", err)
		}
		return item.Quantity, nil
	}

	sessionCart, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return sessionCart.Quantity(productID), nil
}

func (s *Service) addToUserCart(userID, productID uint, quantity int) error {
	var existing CartItem
	result := s.db.Where("user_id = ? AND product_id = ?", userID, productID).First(&existing)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		item := CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
		}
		return s.db.Create(&item).Error
	} else if result.Error != nil {
		return fmt.Errorf("failed to load cart item: %w", result.Error)
	}

	existing.Quantity += quantity
	return s.db.Save(&existing).Error
}

func (s *Service) addToSessionCart(ctx context.Context, sessionID string, productID uint, quantity int) error {
	sessionCart, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	sessionCart.Add(productID, quantity)
	return s.sessions.Save(ctx, sessionID, sessionCart)
}

func (s *Service) loadLines(ctx context.Context, userID *uint, sessionID string) ([]CartLineView, error) {
	var lines []CartLineView

	if userID != nil {
		var items []CartItem
		err := s.db.Preload("Product").Where("user_id = ?", *userID).Order("id ASC").Find(&items).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load user cart: %w", err)
		}

		lines = make([]CartLineView, 0, len(items))
		for _, item := range items {
			product := item.Product
			lines = append(lines, CartLineView{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				LinePrice: product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
				Product:   &product,
				AddedAt:   item.CreatedAt,
			})
		}
		return lines, nil
	}

	sessionCart, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	lines = make([]CartLineView, 0, len(sessionCart.Lines))
	for _, line := range sessionCart.Lines {
		var product catalog.Product
		err := s.db.Where("id = ? AND is_active = ?", line.ProductID, true).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue // product gone, session line is stale
		} else if err != nil {
			return nil, fmt.Errorf("failed to load product %d: %w", line.ProductID, err)
		}

		lines = append(lines, CartLineView{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			LinePrice: product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			Product:   &product,
			AddedAt:   sessionCart.CreatedAt,
		})
	}
	return lines, nil
}

func calculateTotals(lines []CartLineView) CartTotals {
	totals := CartTotals{
		Positions:  len(lines),
		TotalPrice: decimal.Zero,
	}

	for _, line := range lines {
		totals.TotalQuantity += line.Quantity
		totals.TotalPrice = totals.TotalPrice.Add(line.LinePrice)
	}

	return totals
}
