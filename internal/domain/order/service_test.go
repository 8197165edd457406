package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/cart"
	"github.com/fixstar/storefront-backend/internal/domain/catalog"
	"github.com/fixstar/storefront-backend/internal/domain/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memSessionStore is an in-memory cart.SessionStore for tests
type memSessionStore struct {
	carts map[string]*cart.SessionCart
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{carts: map[string]*cart.SessionCart{}}
}

func (m *memSessionStore) Get(_ context.Context, sessionID string) (*cart.SessionCart, error) {
	if c, ok := m.carts[sessionID]; ok {
		return c, nil
	}
	now := time.Now().UTC()
	return &cart.SessionCart{
		SessionID: sessionID,
		Lines:     []cart.SessionCartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (m *memSessionStore) Save(_ context.Context, sessionID string, c *cart.SessionCart) error {
	m.carts[sessionID] = c
	return nil
}

func (m *memSessionStore) Delete(_ context.Context, sessionID string) error {
	delete(m.carts, sessionID)
	return nil
}

type testEnv struct {
	db     *gorm.DB
	orders *Service
	carts  *cart.Service
	store  *memSessionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&user.User{},
		&catalog.Category{},
		&catalog.SubCategory{},
		&catalog.Product{},
		&cart.CartItem{},
		&Order{},
		&OrderItem{},
		&EmailNotificationSettings{},
	))

	cfg := &config.Config{}
	store := newMemSessionStore()
	carts := cart.NewService(db, store, cfg)

	return &testEnv{
		db:     db,
		orders: NewService(db, cfg, carts, nil, nil),
		carts:  carts,
		store:  store,
	}
}

func (e *testEnv) createProduct(t *testing.T, code, price string, quantity int) *catalog.Product {
	t.Helper()

	category := catalog.Category{Name: "Bolts " + code, Slug: "bolts-" + code}
	require.NoError(t, e.db.Create(&category).Error)

	sub := catalog.SubCategory{Name: "Hex " + code, Slug: "hex-" + code, CategoryID: category.ID}
	require.NoError(t, e.db.Create(&sub).Error)

	product := catalog.Product{
		Name:          "Hex bolt " + code,
		Code:          code,
		Slug:          "hex-bolt-" + code,
		Price:         decimal.RequireFromString(price),
		Quantity:      quantity,
		SubCategoryID: sub.ID,
		IsActive:      true,
	}
	require.NoError(t, e.db.Create(&product).Error)
	return &product
}

func (e *testEnv) productQuantity(t *testing.T, productID uint) int {
	t.Helper()
	var product catalog.Product
	require.NoError(t, e.db.First(&product, productID).Error)
	return product.Quantity
}

func validRequest() *PlaceOrderRequest {
	return &PlaceOrderRequest{
		FirstName:        "Olena",
		LastName:         "Kovalenko",
		PhoneNumber:      "+380501234567",
		RequiresDelivery: true,
		DeliveryAddress:  "12 Soborna St, Dnipro",
		PaymentMethod:    PaymentMethodCard,
	}
}

func TestPlaceOrderReservesStockAndClearsCart(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-100", "25.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)

	placed, err := env.orders.PlaceOrder(ctx, &userID, "", "", validRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, placed.Status)
	assert.True(t, placed.ProductsReserved)
	assert.Equal(t, fmt.Sprintf("1.%s", time.Now().Format("020106")), placed.OrderNumber)
	require.Len(t, placed.Items, 1)
	assert.Equal(t, "25.00", placed.Items[0].Price.StringFixed(2))
	assert.Equal(t, 5, placed.Items[0].Quantity)
	assert.Equal(t, "125.00", placed.TotalCost().StringFixed(2))

	// Stock decremented, cart emptied
	assert.Equal(t, 5, env.productQuantity(t, product.ID))
	count, err := env.carts.Count(ctx, &userID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPlaceOrderGuestSession(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-101", "10.00", 10)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, nil, "sess-9", &cart.AddItemRequest{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	placed, err := env.orders.PlaceOrder(ctx, nil, "", "sess-9", validRequest())
	require.NoError(t, err)

	assert.Nil(t, placed.UserID)
	assert.Equal(t, 7, env.productQuantity(t, product.ID))

	_, exists := env.store.carts["sess-9"]
	assert.False(t, exists, "session cart should be cleared")
}

func TestPlaceOrderEmptyCartLeavesNoRow(t *testing.T) {
	env := newTestEnv(t)
	userID := uint(1)

	_, err := env.orders.PlaceOrder(context.Background(), &userID, "", "", validRequest())
	require.ErrorIs(t, err, ErrEmptyCart)

	var count int64
	require.NoError(t, env.db.Model(&Order{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "rolled back order must not persist")
}

func TestPlaceOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := uint(1)

	missingAddress := validRequest()
	missingAddress.DeliveryAddress = "  "
	_, err := env.orders.PlaceOrder(ctx, &userID, "", "", missingAddress)
	require.ErrorIs(t, err, ErrValidation)

	badMethod := validRequest()
	badMethod.PaymentMethod = "crypto"
	_, err = env.orders.PlaceOrder(ctx, &userID, "", "", badMethod)
	require.ErrorIs(t, err, ErrValidation)

	// Pickup orders need no address
	pickup := validRequest()
	pickup.RequiresDelivery = false
	pickup.DeliveryAddress = ""
	require.NoError(t, pickup.Validate())
}

func TestPlaceOrderSequentialNumbers(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-102", "10.00", 100)
	userID := uint(1)
	ctx := context.Background()

	suffix := time.Now().Format("020106")

	for i := 1; i <= 3; i++ {
		_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 1})
		require.NoError(t, err)

		placed, err := env.orders.PlaceOrder(ctx, &userID, "", "", validRequest())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d.%s", i, suffix), placed.OrderNumber)
	}
}

func TestCancelRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-103", "10.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)

	placed, err := env.orders.PlaceOrder(ctx, &userID, "", "", validRequest())
	require.NoError(t, err)
	require.Equal(t, 5, env.productQuantity(t, product.ID))

	canceled, err := env.orders.CancelOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)
	assert.False(t, canceled.ProductsReserved)
	assert.Equal(t, 10, env.productQuantity(t, product.ID))

	// A second cancellation changes nothing
	again, err := env.orders.CancelOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, again.Status)
	assert.Equal(t, 10, env.productQuantity(t, product.ID))
}

func TestReturnPreservesConcurrentStockChanges(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-104", "10.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 4})
	require.NoError(t, err)

	placed, err := env.orders.PlaceOrder(ctx, &userID, "", "", validRequest())
	require.NoError(t, err)
	require.Equal(t, 6, env.productQuantity(t, product.ID))

	// Another order drains stock while this one is open
	require.NoError(t, env.db.Model(&catalog.Product{}).Where("id = ?", product.ID).
		UpdateColumn("quantity", 2).Error)

	_, err = env.orders.CancelOrder(ctx, placed.ID)
	require.NoError(t, err)

	// Return adds to the current value, it does not restore a snapshot
	assert.Equal(t, 6, env.productQuantity(t, product.ID))
}

func TestReserveClampsAtZero(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-105", "10.00", 5)
	userID := uint(1)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)

	// Stock drops between carting and checkout
	require.NoError(t, env.db.Model(&catalog.Product{}).Where("id = ?", product.ID).
		UpdateColumn("quantity", 3).Error)

	placed, err := env.orders.PlaceOrder(ctx, &userID, "", "", validRequest())
	require.NoError(t, err)
	assert.True(t, placed.ProductsReserved)

	// Clamped at zero, never negative
	assert.Equal(t, 0, env.productQuantity(t, product.ID))
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-106", "10.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	placed, err := env.orders.PlaceOrder(ctx, &userID, "", "", validRequest())
	require.NoError(t, err)

	same, err := env.orders.UpdateStatus(ctx, placed.ID, StatusCreated)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, same.Status)
	assert.Equal(t, 8, env.productQuantity(t, product.ID), "no stock effect")
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-107", "10.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	placed, err := env.orders.PlaceOrder(ctx, &userID, "", "", validRequest())
	require.NoError(t, err)

	updated, err := env.orders.UpdateStatus(ctx, placed.ID, StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, updated.Status)

	updated, err = env.orders.UpdateStatus(ctx, placed.ID, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, updated.Status)

	// Delivered cannot go back to paid
	_, err = env.orders.UpdateStatus(ctx, placed.ID, StatusPaid)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Canceled is terminal
	_, err = env.orders.UpdateStatus(ctx, placed.ID, StatusCanceled)
	require.NoError(t, err)
	_, err = env.orders.UpdateStatus(ctx, placed.ID, StatusPaid)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetOrderAndListOrders(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-108", "10.00", 100)
	userID := uint(1)
	otherID := uint(2)
	ctx := context.Background()

	for _, id := range []uint{userID, userID, otherID} {
		uid := id
		_, err := env.carts.AddItem(ctx, &uid, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 1})
		require.NoError(t, err)
		_, err = env.orders.PlaceOrder(ctx, &uid, "", "", validRequest())
		require.NoError(t, err)
	}

	_, err := env.orders.GetOrder(uuid.New())
	require.ErrorIs(t, err, ErrOrderNotFound)

	mine, err := env.orders.GetUserOrders(userID, 1, 20)
	require.NoError(t, err)
	assert.Len(t, mine.Orders, 2)
	assert.Equal(t, int64(2), mine.Pagination.Total)

	all, err := env.orders.ListOrders(&ListRequest{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 3)

	byStatus, err := env.orders.ListOrders(&ListRequest{Page: 1, Limit: 20, Status: StatusCanceled})
	require.NoError(t, err)
	assert.Empty(t, byStatus.Orders)

	byNumber, err := env.orders.GetOrderByNumber(all.Orders[0].OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, all.Orders[0].ID, byNumber.ID)
}

// capturingNotifier records every order handed to it
type capturingNotifier struct {
	created    []*Order
	recipients []string
}

func (n *capturingNotifier) OrderCreated(_ context.Context, o *Order, recipient string, _ bool) {
	n.created = append(n.created, o)
	n.recipients = append(n.recipients, recipient)
}

func (n *capturingNotifier) OrderStatusChanged(_ context.Context, _ *Order, _ string) {}

func TestPlaceOrderNotifiesWithProductData(t *testing.T) {
	env := newTestEnv(t)
	notifier := &capturingNotifier{}
	orders := NewService(env.db, &config.Config{}, env.carts, notifier, nil)

	product := env.createProduct(t, "O-110", "25.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)

	placed, err := orders.PlaceOrder(ctx, &userID, "olena@example.com", "", validRequest())
	require.NoError(t, err)

	require.Len(t, notifier.created, 1)
	assert.Equal(t, []string{"olena@example.com"}, notifier.recipients)

	// The notified order carries full product rows so the rendered email
	// shows names and codes, not just IDs
	notified := notifier.created[0]
	assert.Equal(t, placed.ID, notified.ID)
	require.Len(t, notified.Items, 1)
	assert.Equal(t, "Hex bolt O-110", notified.Items[0].Product.Name)
	assert.Equal(t, "O-110", notified.Items[0].Product.Code)
}

func TestOrderSurvivesProductRetirement(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, "O-111", "10.00", 10)
	userID := uint(1)
	ctx := context.Background()

	_, err := env.carts.AddItem(ctx, &userID, "", &cart.AddItemRequest{ProductID: product.ID, Quantity: 4})
	require.NoError(t, err)

	placed, err := env.orders.PlaceOrder(ctx, &userID, "", "", validRequest())
	require.NoError(t, err)

	// The product leaves the catalog after the sale
	require.NoError(t, env.db.Delete(&catalog.Product{}, product.ID).Error)
	var gone catalog.Product
	require.ErrorIs(t, env.db.First(&gone, product.ID).Error, gorm.ErrRecordNotFound)

	found, err := env.orders.GetOrder(placed.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Hex bolt O-111", found.Items[0].Product.Name)

	// Cancellation still returns stock to the retired row
	_, err = env.orders.CancelOrder(ctx, placed.ID)
	require.NoError(t, err)

	var retired catalog.Product
	require.NoError(t, env.db.Unscoped().First(&retired, product.ID).Error)
	assert.Equal(t, 10, retired.Quantity)
}
