package cart

import (
	"context"
	"testing"
	"time"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memSessionStore is an in-memory SessionStore for tests
type memSessionStore struct {
	carts map[string]*SessionCart
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{carts: map[string]*SessionCart{}}
}

func (m *memSessionStore) Get(_ context.Context, sessionID string) (*SessionCart, error) {
	if c, ok := m.carts[sessionID]; ok {
		return c, nil
	}
	now := time.Now().UTC()
	return &SessionCart{
		SessionID: sessionID,
		Lines:     []SessionCartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (m *memSessionStore) Save(_ context.Context, sessionID string, c *SessionCart) error {
	m.carts[sessionID] = c
	return nil
}

func (m *memSessionStore) Delete(_ context.Context, sessionID string) error {
	delete(m.carts, sessionID)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&catalog.Category{},
		&catalog.SubCategory{},
		&catalog.Product{},
		&CartItem{},
	))

	return db
}

func createTestProduct(t *testing.T, db *gorm.DB, code string, price string, quantity int) *catalog.Product {
	t.Helper()

	category := catalog.Category{Name: "Bolts " + code, Slug: "bolts-" + code}
	require.NoError(t, db.Create(&category).Error)

	sub := catalog.SubCategory{Name: "Hex " + code, Slug: "hex-" + code, CategoryID: category.ID}
	require.NoError(t, db.Create(&sub).Error)

	product := catalog.Product{
		Name:          "Hex bolt " + code,
		Code:          code,
		Slug:          "hex-bolt-" + code,
		Price:         decimal.RequireFromString(price),
		Quantity:      quantity,
		SubCategoryID: sub.ID,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *memSessionStore) {
	t.Helper()
	db := newTestDB(t)
	store := newMemSessionStore()
	return NewService(db, store, &config.Config{}), db, store
}

func TestAddItemUserCart(t *testing.T) {
	svc, db, _ := newTestService(t)
	product := createTestProduct(t, db, "B-100", "12.50", 10)
	userID := uint(1)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Totals.Positions)
	assert.Equal(t, 5, view.Totals.TotalQuantity)
	assert.Equal(t, "62.50", view.Totals.TotalPrice.StringFixed(2))

	// Adding the same product merges into the existing line
	view, err = svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Totals.Positions)
	assert.Equal(t, 8, view.Totals.TotalQuantity)
}

func TestAddItemRejectsOversell(t *testing.T) {
	svc, db, _ := newTestService(t)
	product := createTestProduct(t, db, "B-101", "10.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)

	// 5 in cart + 6 requested > 10 on hand
	_, err = svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 6})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// The failed add left the cart unchanged
	count, err := svc.Count(ctx, &userID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	view, err := svc.GetCart(ctx, &userID, "")
	require.NoError(t, err)
	assert.Equal(t, 5, view.Totals.TotalQuantity)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uint(1)

	_, err := svc.AddItem(context.Background(), &userID, "", &AddItemRequest{ProductID: 9999, Quantity: 1})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddItemSessionCart(t *testing.T) {
	svc, db, store := newTestService(t)
	product := createTestProduct(t, db, "B-102", "5.00", 20)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, nil, "sess-1", &AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Totals.Positions)
	assert.Equal(t, "10.00", view.Totals.TotalPrice.StringFixed(2))

	saved, ok := store.carts["sess-1"]
	require.True(t, ok)
	assert.Equal(t, 2, saved.Quantity(product.ID))
}

func TestSetQuantity(t *testing.T) {
	svc, db, _ := newTestService(t)
	product := createTestProduct(t, db, "B-103", "3.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	view, err := svc.SetQuantity(ctx, &userID, "", product.ID, &SetQuantityRequest{Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, view.Totals.TotalQuantity)

	// Setting the current quantity is a success no-op
	view, err = svc.SetQuantity(ctx, &userID, "", product.ID, &SetQuantityRequest{Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, view.Totals.TotalQuantity)

	// Absolute quantity above stock is rejected
	_, err = svc.SetQuantity(ctx, &userID, "", product.ID, &SetQuantityRequest{Quantity: 11})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestSetQuantityMissingLine(t *testing.T) {
	svc, db, _ := newTestService(t)
	product := createTestProduct(t, db, "B-104", "3.00", 10)
	userID := uint(1)

	_, err := svc.SetQuantity(context.Background(), &userID, "", product.ID, &SetQuantityRequest{Quantity: 1})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem(t *testing.T) {
	svc, db, _ := newTestService(t)
	product := createTestProduct(t, db, "B-105", "3.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := svc.RemoveItem(ctx, &userID, "", product.ID)
	require.ErrorIs(t, err, ErrItemNotFound)

	_, err = svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	view, err := svc.RemoveItem(ctx, &userID, "", product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Totals.Positions)
}

func TestCountIsPositionsNotQuantity(t *testing.T) {
	svc, db, _ := newTestService(t)
	first := createTestProduct(t, db, "B-106", "1.00", 50)
	second := createTestProduct(t, db, "B-107", "2.00", 50)
	userID := uint(1)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: first.ID, Quantity: 10})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: second.ID, Quantity: 25})
	require.NoError(t, err)

	count, err := svc.Count(ctx, &userID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSnapshotSkipsInactiveProducts(t *testing.T) {
	svc, db, _ := newTestService(t)
	active := createTestProduct(t, db, "B-108", "4.00", 10)
	retired := createTestProduct(t, db, "B-109", "4.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: active.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: retired.ID, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, db.Model(&catalog.Product{}).Where("id = ?", retired.ID).
		UpdateColumn("is_active", false).Error)

	snapshot, err := svc.Snapshot(ctx, &userID, "")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, active.ID, snapshot[0].Product.ID)
	assert.Equal(t, 2, snapshot[0].Quantity)
}

func TestMergeSessionCart(t *testing.T) {
	svc, db, store := newTestService(t)
	product := createTestProduct(t, db, "B-110", "6.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 4})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, nil, "sess-2", &AddItemRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)

	require.NoError(t, svc.MergeSessionCart(ctx, userID, "sess-2"))

	// 4 + 5 = 9 fits within the 10 on hand
	view, err := svc.GetCart(ctx, &userID, "")
	require.NoError(t, err)
	assert.Equal(t, 9, view.Totals.TotalQuantity)

	// Session cart is gone after the merge
	_, exists := store.carts["sess-2"]
	assert.False(t, exists)
}

func TestMergeSessionCartCapsAtStock(t *testing.T) {
	svc, db, _ := newTestService(t)
	product := createTestProduct(t, db, "B-111", "6.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 8})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, nil, "sess-3", &AddItemRequest{ProductID: product.ID, Quantity: 8})
	require.NoError(t, err)

	require.NoError(t, svc.MergeSessionCart(ctx, userID, "sess-3"))

	view, err := svc.GetCart(ctx, &userID, "")
	require.NoError(t, err)
	assert.Equal(t, 10, view.Totals.TotalQuantity)
}

func TestCleanupExpired(t *testing.T) {
	svc, db, _ := newTestService(t)
	product := createTestProduct(t, db, "B-112", "6.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, &userID, "", &AddItemRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	// Age the row past the cutoff
	stale := time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, db.Model(&CartItem{}).Where("user_id = ?", userID).
		UpdateColumn("created_at", stale).Error)

	removed, err := svc.CleanupExpired(48 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := svc.Count(ctx, &userID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
