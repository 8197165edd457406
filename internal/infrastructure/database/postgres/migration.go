// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/fixstar/storefront-backend/internal/domain/cart"
	"github.com/fixstar/storefront-backend/internal/domain/catalog"
	"github.com/fixstar/storefront-backend/internal/domain/order"
	"github.com/fixstar/storefront-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		&user.User{},

		&catalog.Category{},
		&catalog.SubCategory{},
		&catalog.Product{},

		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
		&order.EmailNotificationSettings{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_products_subcategory_active ON products(sub_category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_quantity ON products(quantity)",

		// Full-text search over name, code and description
		"CREATE INDEX IF NOT EXISTS idx_products_search ON products USING GIN (" + catalog.SearchVectorSQL + ")",

		// Cart: expired-cart cleanup filters on created_at
		"CREATE INDEX IF NOT EXISTS idx_cart_items_created_at ON cart_items(created_at)",

		// Orders
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedNotificationSettings(); err != nil {
		return fmt.Errorf("failed to seed notification settings: %w", err)
	}

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedAdminUser() error {
	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error == nil {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	adminUser := user.User{
		Email:        "admin@example.com",
		PasswordHash: string(hashedPassword),
		FirstName:    "Admin",
		LastName:     "User",
		IsActive:     true,
		IsAdmin:      true,
	}

	if err := m.db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Println("✅ Created admin user: admin@example.com (password: admin123)")
	return nil
}

// seedNotificationSettings creates a disabled default row so the admin UI
// has something to edit. It stays inactive until recipients are filled in.
func (m *Migration) seedNotificationSettings() error {
	var count int64
	m.db.Model(&order.EmailNotificationSettings{}).Count(&count)
	if count > 0 {
		log.Println("⏭️ Notification settings already exist")
		return nil
	}

	settings := order.EmailNotificationSettings{
		Name:            "Default",
		IsActive:        false,
		SubjectTemplate: "New order #{order_number}",
	}
	if err := m.db.Create(&settings).Error; err != nil {
		return err
	}

	log.Println("✅ Created default notification settings (inactive)")
	return nil
}

func (m *Migration) seedCategories() error {
	var count int64
	m.db.Model(&catalog.Category{}).Count(&count)
	if count > 0 {
		log.Println("⏭️ Categories already exist")
		return nil
	}

	categories := []catalog.Category{
		{Name: "Bolts", Slug: "bolts"},
		{Name: "Screws", Slug: "screws"},
		{Name: "Nuts", Slug: "nuts"},
		{Name: "Washers", Slug: "washers"},
		{Name: "Anchors", Slug: "anchors"},
	}

	for i := range categories {
		if err := m.db.Create(&categories[i]).Error; err != nil {
			return err
		}
		log.Printf("✅ Created category: %s", categories[i].Name)
	}

	return nil
}

// GetTableInfo logs row counts for the main tables, used during development
func (m *Migration) GetTableInfo() {
	tables := []string{"users", "categories", "subcategories", "products", "cart_items", "orders", "order_items", "email_notification_settings"}

	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			log.Printf("⚠️ Failed to count %s: %v", table, err)
			continue
		}
		log.Printf("📊 Table %s: %d rows", table, count)
	}
}
