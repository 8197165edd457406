// internal/domain/catalog/search.go
package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchRequest represents full-text search query parameters
type SearchRequest struct {
	Query string `form:"q" binding:"required"`
	Page  int    `form:"page,default=1"`
	Limit int    `form:"limit,default=20"`
}

// SearchVectorSQL is the expression indexed by the GIN full-text index;
// query and index must stay in sync.
const SearchVectorSQL = "to_tsvector('simple', coalesce(name,'') || ' ' || coalesce(code,'') || ' ' || coalesce(description,''))"

// Search performs full-text product search over name, code and description.
// An all-digit query of up to five digits is treated as a product ID lookup.
// Ranking uses ts_rank on Postgres; other dialects fall back to LIKE matching
// so the service stays testable against SQLite.
func (s *Service) Search(req *SearchRequest) (*ListResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &ListResponse{Products: []Product{}}, nil
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	// Direct ID lookup for short numeric queries
	if isDigits(query) && len(query) <= 5 {
		var products []Product
		err := s.db.Preload("SubCategory").
			Where("id = ? AND is_active = ?", query, true).
			Find(&products).Error
		if err != nil {
			return nil, fmt.Errorf("failed to search by id: %w", err)
		}
		return &ListResponse{
			Products: products,
			Pagination: Pagination{
				Page:  1,
				Limit: req.Limit,
				Total: int64(len(products)),
			},
		}, nil
	}

	filter := func(db *gorm.DB) *gorm.DB {
		if s.db.Dialector.Name() == "postgres" {
			return db.Where(SearchVectorSQL+" @@ plainto_tsquery('simple', ?)", query)
		}
		pattern := "%" + strings.ToLower(query) + "%"
		return db.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	countQuery := filter(s.db.Model(&Product{}).Where("is_active = ?", true))
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count search results: %w", err)
	}

	findQuery := filter(s.db.Model(&Product{}).Where("is_active = ?", true))
	if s.db.Dialector.Name() == "postgres" {
		findQuery = findQuery.Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                "ts_rank(" + SearchVectorSQL + ", plainto_tsquery('simple', ?)) DESC",
				Vars:               []interface{}{query},
				WithoutParentheses: true,
			},
		})
	} else {
		findQuery = findQuery.Order("name ASC")
	}

	var products []Product
	offset := (req.Page - 1) * req.Limit
	err := findQuery.Preload("SubCategory").
		Offset(offset).
		Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
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

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
