// internal/domain/catalog/service.go
package catalog

import (
	"errors"
	"fmt"

	"github.com/fixstar/storefront-backend/internal/config"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when a product lookup matches no row
var ErrProductNotFound = errors.New("product not found")

// Service handles catalog browsing
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ListRequest represents catalog list query parameters
type ListRequest struct {
	Page            int    `form:"page,default=1"`
	Limit           int    `form:"limit,default=20"`
	CategorySlug    string `form:"category"`
	SubCategorySlug string `form:"subcategory"`
	SortBy          string `form:"sort_by,default=name"`
	SortOrder       string `form:"sort_order,default=asc"`
	InStockOnly     bool   `form:"in_stock"`
}

// ListResponse represents a paginated product listing
type ListResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ListCategories returns all categories with their subcategories
func (s *Service) ListCategories() ([]Category, error) {
	var categories []Category
	err := s.db.Preload("SubCategories").Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ListProducts returns active products, optionally scoped to a category or
// subcategory slug, with pagination
func (s *Service) ListProducts(req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Product{}).Where("is_active = ?", true)

	if req.SubCategorySlug != "" {
		query = query.Joins("JOIN subcategories ON subcategories.id = products.sub_category_id").
			Where("subcategories.slug = ?", req.SubCategorySlug)
	} else if req.CategorySlug != "" {
		query = query.Joins("JOIN subcategories ON subcategories.id = products.sub_category_id").
			Joins("JOIN categories ON categories.id = subcategories.category_id").
			Where("categories.slug = ?", req.CategorySlug)
	}

	if req.InStockOnly {
		query = query.Where("products.quantity > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	offset := (req.Page - 1) * req.Limit
	err := query.Preload("SubCategory").
		Order(s.buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).
		Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))

	return &ListResponse{
		Products: products,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetProduct retrieves a product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	err := s.db.Preload("SubCategory").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// GetProductBySlug retrieves a product by its slug
func (s *Service) GetProductBySlug(slug string) (*Product, error) {
	var product Product
	err := s.db.Preload("SubCategory").Where("slug = ?", slug).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"code":       true,
		"created_at": true,
		"quantity":   true,
	}

	if !validSortFields[sortBy] {
		sortBy = "name"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "asc"
	}

	return fmt.Sprintf("products.%s %s", sortBy, sortOrder)
}
