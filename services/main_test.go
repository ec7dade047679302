package services

import (
	"testing"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupServiceTest opens an in-memory database, installs a test config
// with the default commission tiers, and swaps all side-effect services
// for mocks.
func setupServiceTest(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Design{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTimelineEntry{},
		&models.Earning{},
		&models.PayoutRequest{},
		&models.Message{},
		&models.Feedback{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	originalConfig := config.GetConfig()
	config.SetConfig(&config.Config{
		GoEnv: "test",
		CommissionTiers: []config.CommissionTier{
			{MinLifetimeEarnings: 0, Rate: 80},
			{MinLifetimeEarnings: 50000, Rate: 85},
			{MinLifetimeEarnings: 200000, Rate: 90},
		},
		MinPayoutAmount:    500,
		EarningsHoldDays:   7,
		VerificationTTLMin: 10,
	})

	originalNotifier := GetNotifier()
	originalStore := GetCodeStore()
	originalMail := GetMailSender()
	NewMockNotifier().SetAsMockForTesting()
	NewMockCodeStore().SetAsMockForTesting()
	NewMockMailSender().SetAsMockForTesting()

	t.Cleanup(func() {
		config.SetConfig(originalConfig)
		SetNotifier(originalNotifier)
		SetCodeStore(originalStore)
		SetMailSender(originalMail)
	})

	return db
}

// Fixture helpers shared by the service tests.

func createTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := models.User{
		Auth0ID:            "auth0|" + role + "-" + t.Name(),
		Name:               "Test " + role,
		Email:              role + "-" + t.Name() + "@example.com",
		Role:               role,
		Approved:           true,
		AvailabilityStatus: models.AvailabilityAvailable,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create %s: %v", role, err)
	}
	return &user
}

func createTestDesign(t *testing.T, db *gorm.DB, designerID uint, price float64) *models.Design {
	t.Helper()
	design := models.Design{
		DesignerID: designerID,
		Title:      "Embroidered Jacket",
		Price:      price,
		Published:  true,
	}
	if err := db.Create(&design).Error; err != nil {
		t.Fatalf("Failed to create design: %v", err)
	}
	return &design
}

func createTestProduct(t *testing.T, db *gorm.DB, creatorID uint, price float64, stock int) *models.Product {
	t.Helper()
	product := models.Product{
		Name:          "Linen Shirt",
		Category:      "shirts",
		Price:         price,
		InStock:       stock > 0,
		StockQuantity: stock,
		CreatedByID:   creatorID,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return &product
}

// createCustomOrder places a custom-design order via the real checkout
// path and returns it in assigned_to_manager.
func createCustomOrder(t *testing.T, db *gorm.DB, customer *models.User, design *models.Design) *models.Order {
	t.Helper()
	var cart models.Cart
	if err := db.FirstOrCreate(&cart, models.Cart{UserID: customer.ID}).Error; err != nil {
		t.Fatalf("Failed to create cart: %v", err)
	}
	item := models.CartItem{CartID: cart.ID, DesignID: &design.ID, Quantity: 1}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("Failed to create cart item: %v", err)
	}

	order, svcErr := Checkout(db, customer, nil, "")
	if svcErr != nil {
		t.Fatalf("Checkout failed: %v", svcErr)
	}
	return order
}

// createReadymadeOrder places a product-only order and returns it in
// assigned_to_manager.
func createReadymadeOrder(t *testing.T, db *gorm.DB, customer *models.User, product *models.Product, quantity int) *models.Order {
	t.Helper()
	var cart models.Cart
	if err := db.FirstOrCreate(&cart, models.Cart{UserID: customer.ID}).Error; err != nil {
		t.Fatalf("Failed to create cart: %v", err)
	}
	item := models.CartItem{CartID: cart.ID, ProductID: &product.ID, Quantity: quantity}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("Failed to create cart item: %v", err)
	}

	order, svcErr := Checkout(db, customer, nil, "")
	if svcErr != nil {
		t.Fatalf("Checkout failed: %v", svcErr)
	}
	return order
}

func orderTimeline(t *testing.T, db *gorm.DB, orderID uint) []models.OrderTimelineEntry {
	t.Helper()
	var timeline []models.OrderTimelineEntry
	if err := db.Where("order_id = ?", orderID).Order("id ASC").Find(&timeline).Error; err != nil {
		t.Fatalf("Failed to load timeline: %v", err)
	}
	return timeline
}
