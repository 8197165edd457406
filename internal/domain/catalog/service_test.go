package catalog

import (
	"fmt"
	"testing"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Category{}, &SubCategory{}, &Product{}))

	return NewService(db, &config.Config{}), db
}

func seedTaxonomy(t *testing.T, db *gorm.DB) (SubCategory, SubCategory) {
	t.Helper()

	bolts := Category{Name: "Bolts", Slug: "bolts"}
	nuts := Category{Name: "Nuts", Slug: "nuts"}
	require.NoError(t, db.Create(&bolts).Error)
	require.NoError(t, db.Create(&nuts).Error)

	hex := SubCategory{Name: "Hex bolts", Slug: "hex-bolts", CategoryID: bolts.ID}
	lock := SubCategory{Name: "Lock nuts", Slug: "lock-nuts", CategoryID: nuts.ID}
	require.NoError(t, db.Create(&hex).Error)
	require.NoError(t, db.Create(&lock).Error)

	return hex, lock
}

func seedProduct(t *testing.T, db *gorm.DB, sub SubCategory, code, name string, quantity int) Product {
	t.Helper()

	product := Product{
		Name:          name,
		Code:          code,
		Slug:          "p-" + code,
		Price:         decimal.RequireFromString("10.00"),
		Quantity:      quantity,
		SubCategoryID: sub.ID,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestListProductsByCategoryAndStock(t *testing.T) {
	svc, db := newTestService(t)
	hex, lock := seedTaxonomy(t, db)

	seedProduct(t, db, hex, "H-1", "Hex bolt M8", 10)
	seedProduct(t, db, hex, "H-2", "Hex bolt M10", 0)
	seedProduct(t, db, lock, "L-1", "Lock nut M8", 5)

	all, err := svc.ListProducts(&ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Products, 3)
	assert.Equal(t, int64(3), all.Pagination.Total)

	bolts, err := svc.ListProducts(&ListRequest{CategorySlug: "bolts"})
	require.NoError(t, err)
	assert.Len(t, bolts.Products, 2)

	hexOnly, err := svc.ListProducts(&ListRequest{SubCategorySlug: "hex-bolts"})
	require.NoError(t, err)
	assert.Len(t, hexOnly.Products, 2)

	inStock, err := svc.ListProducts(&ListRequest{CategorySlug: "bolts", InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, inStock.Products, 1)
	assert.Equal(t, "H-1", inStock.Products[0].Code)
}

func TestListProductsPagination(t *testing.T) {
	svc, db := newTestService(t)
	hex, _ := seedTaxonomy(t, db)

	for i := 1; i <= 5; i++ {
		seedProduct(t, db, hex, fmt.Sprintf("P-%d", i), fmt.Sprintf("Bolt %d", i), 10)
	}

	page, err := svc.ListProducts(&ListRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)
	assert.Equal(t, int64(5), page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)
}

func TestGetProductBySlug(t *testing.T) {
	svc, db := newTestService(t)
	hex, _ := seedTaxonomy(t, db)
	created := seedProduct(t, db, hex, "H-9", "Hex bolt M12", 3)

	found, err := svc.GetProductBySlug(created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Hex bolts", found.SubCategory.Name)

	_, err = svc.GetProductBySlug("no-such-product")
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.GetProduct(99999)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestListCategories(t *testing.T) {
	svc, db := newTestService(t)
	seedTaxonomy(t, db)

	categories, err := svc.ListCategories()
	require.NoError(t, err)
	require.Len(t, categories, 2)
	// Ordered by name: Bolts before Nuts
	assert.Equal(t, "Bolts", categories[0].Name)
	require.Len(t, categories[0].SubCategories, 1)
	assert.Equal(t, "hex-bolts", categories[0].SubCategories[0].Slug)
}
