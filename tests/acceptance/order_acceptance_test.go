package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/controllers"
	"github.com/designden/designden-api/middleware"
	"github.com/designden/designden-api/models"
	"github.com/designden/designden-api/services"
	"github.com/designden/designden-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OrderAcceptanceTestSuite drives the full order workflow through the
// HTTP API, from cart to confirmed delivery.
type OrderAcceptanceTestSuite struct {
	suite.Suite
	server    *httptest.Server
	db        *gorm.DB
	codeStore *services.MockCodeStore

	customer *models.User
	designer *models.User
	manager  *models.User
	delivery *models.User
}

func (suite *OrderAcceptanceTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	err = db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Design{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{}, &models.OrderTimelineEntry{},
		&models.Earning{}, &models.PayoutRequest{},
		&models.Message{}, &models.Feedback{},
	)
	suite.Require().NoError(err)
	config.SetDB(db)

	config.SetConfig(&config.Config{
		GoEnv: "test",
		CommissionTiers: []config.CommissionTier{
			{MinLifetimeEarnings: 0, Rate: 80},
		},
		MinPayoutAmount:    500,
		EarningsHoldDays:   7,
		VerificationTTLMin: 10,
	})

	services.NewMockNotifier().SetAsMockForTesting()
	services.NewMockMailSender().SetAsMockForTesting()
	suite.codeStore = services.NewMockCodeStore()
	suite.codeStore.SetAsMockForTesting()

	suite.server = httptest.NewServer(suite.createRouter())
}

func (suite *OrderAcceptanceTestSuite) TearDownSuite() {
	suite.server.Close()
	if suite.db != nil {
		sqlDB, _ := suite.db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
}

// SetupTest resets the data and recreates one user per role.
func (suite *OrderAcceptanceTestSuite) SetupTest() {
	for _, table := range []string{
		"earnings", "payout_requests", "order_timeline_entries", "order_items",
		"orders", "cart_items", "carts", "feedback", "messages",
		"designs", "products", "users",
	} {
		suite.db.Exec("DELETE FROM " + table)
	}

	suite.customer = suite.createUser("auth0|acc-customer", models.RoleCustomer)
	suite.designer = suite.createUser("auth0|acc-designer", models.RoleDesigner)
	suite.manager = suite.createUser("auth0|acc-manager", models.RoleManager)
	suite.delivery = suite.createUser("auth0|acc-delivery", models.RoleDelivery)
}

func (suite *OrderAcceptanceTestSuite) createUser(auth0ID, role string) *models.User {
	user := models.User{
		Auth0ID:            auth0ID,
		Name:               "Acceptance " + role,
		Email:              auth0ID + "@example.com",
		Role:               role,
		Approved:           true,
		AvailabilityStatus: models.AvailabilityAvailable,
	}
	suite.Require().NoError(suite.db.Create(&user).Error)
	return &user
}

// createRouter builds the real route tree with a header-driven auth stub
// standing in for the Auth0 JWT middleware.
func (suite *OrderAcceptanceTestSuite) createRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	auth := testutil.SubjectAuth()

	anyRole := []string{
		models.RoleCustomer, models.RoleDesigner, models.RoleManager,
		models.RoleAdmin, models.RoleDelivery,
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/designs", controllers.ListDesigns)
		v1.GET("/products", controllers.ListProducts)

		customer := v1.Group("", auth, middleware.RequireRole(models.RoleCustomer))
		{
			customer.GET("/cart", controllers.GetCart)
			customer.POST("/cart/items", controllers.AddCartItem)
			customer.POST("/orders", controllers.Checkout)
			customer.POST("/feedback", controllers.CreateFeedback)
		}

		orders := v1.Group("", auth, middleware.RequireRole(anyRole...))
		{
			orders.GET("/orders", controllers.ListOrders)
			orders.GET("/orders/:id", controllers.GetOrder)
			orders.GET("/orders/:id/timeline", controllers.GetOrderTimeline)
		}

		manager := v1.Group("/manager", auth, middleware.RequireRole(models.RoleManager, models.RoleAdmin))
		{
			manager.POST("/orders/:id/assign-designer", controllers.AssignDesigner)
			manager.POST("/orders/:id/assign-delivery", controllers.AssignDelivery)
			manager.POST("/orders/:id/cancel", controllers.CancelOrder)
		}

		designer := v1.Group("/designer", auth, middleware.RequireRole(models.RoleDesigner))
		{
			designer.POST("/orders/:id/accept", controllers.AcceptOrder)
			designer.POST("/orders/:id/start", controllers.StartProduction)
			designer.POST("/orders/:id/progress", controllers.UpdateProgress)
			designer.POST("/orders/:id/complete", controllers.CompleteProduction)
			designer.GET("/earnings", controllers.GetMyEarnings)
			designer.GET("/balance", controllers.GetMyBalance)
		}

		delivery := v1.Group("/delivery", auth, middleware.RequireRole(models.RoleDelivery))
		{
			delivery.POST("/orders/:id/out-for-delivery", controllers.MarkOutForDelivery)
			delivery.POST("/orders/:id/deliver", controllers.DeliverOrder)
		}
	}

	return router
}

// makeRequest performs an HTTP request as the given user and decodes the
// JSON envelope.
func (suite *OrderAcceptanceTestSuite) makeRequest(method, path string, as *models.User, body interface{}) (*http.Response, map[string]interface{}) {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		suite.Require().NoError(err)
		bodyReader = bytes.NewReader(bodyJSON)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req, err := http.NewRequest(method, suite.server.URL+path, bodyReader)
	suite.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set(testutil.SubjectHeader, as.Auth0ID)
	}

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)

	var responseData map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&responseData)
	suite.Require().NoError(err)
	resp.Body.Close()

	return resp, responseData
}

// TestCustomOrderWorkflow_Acceptance walks a commissioned design from the
// cart through delivery confirmation.
func (suite *OrderAcceptanceTestSuite) TestCustomOrderWorkflow_Acceptance() {
	t := suite.T()

	design := models.Design{
		DesignerID: suite.designer.ID,
		Title:      "Hand-painted Silk Scarf",
		Price:      250,
		Published:  true,
	}
	suite.Require().NoError(suite.db.Create(&design).Error)

	// Customer fills the cart and checks out.
	resp, respData := suite.makeRequest("POST", "/api/v1/cart/items", suite.customer,
		map[string]interface{}{"design_id": design.ID, "quantity": 1})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, respData = suite.makeRequest("POST", "/api/v1/orders", suite.customer,
		map[string]interface{}{"delivery_time_slot": "evening"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	orderData := respData["data"].(map[string]interface{})
	orderID := int(orderData["id"].(float64))
	assert.Equal(t, string(models.StatusAssignedToManager), orderData["status"])
	assert.Equal(t, 250.0, orderData["total_amount"])

	// Manager hands the order to the designer.
	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/orders/%d/assign-designer", orderID), suite.manager,
		map[string]interface{}{"designer_id": suite.designer.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusAssignedToDesigner),
		respData["data"].(map[string]interface{})["status"])

	// Designer accepts and produces.
	resp, _ = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/designer/orders/%d/accept", orderID), suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/designer/orders/%d/start", orderID), suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/designer/orders/%d/progress", orderID), suite.designer,
		map[string]interface{}{"progress_percentage": 100, "note": "ready for pickup"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/designer/orders/%d/complete", orderID), suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusProductionCompleted),
		respData["data"].(map[string]interface{})["status"])

	// Completing production books the designer's commission.
	resp, respData = suite.makeRequest("GET", "/api/v1/designer/earnings", suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	earningsData := respData["data"].(map[string]interface{})
	earnings := earningsData["earnings"].([]interface{})
	suite.Require().Len(earnings, 1)
	assert.Equal(t, 200.0, earnings[0].(map[string]interface{})["designer_earning"])

	// Manager dispatches, delivery person takes it out.
	resp, _ = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/orders/%d/assign-delivery", orderID), suite.manager,
		map[string]interface{}{"delivery_person_id": suite.delivery.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/delivery/orders/%d/out-for-delivery", orderID), suite.delivery,
		map[string]interface{}{"tracking_number": "TRK-9001"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A wrong OTP leaves the order untouched.
	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/delivery/orders/%d/deliver", orderID), suite.delivery,
		map[string]interface{}{"otp": "000000"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Delivery confirms with the customer's code.
	otp, err := suite.codeStore.Get(context.Background(), suite.customer.ID, services.PurposeDelivery)
	suite.Require().NoError(err)
	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/delivery/orders/%d/deliver", orderID), suite.delivery,
		map[string]interface{}{"otp": otp})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	delivered := respData["data"].(map[string]interface{})
	assert.Equal(t, string(models.StatusDelivered), delivered["status"])
	assert.NotNil(t, delivered["delivered_at"])
	assert.Equal(t, "paid", delivered["payment_status"])

	// The timeline records every step, oldest first.
	resp, respData = suite.makeRequest("GET",
		fmt.Sprintf("/api/v1/orders/%d/timeline", orderID), suite.customer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	timeline := respData["data"].([]interface{})
	suite.Require().NotEmpty(timeline)
	first := timeline[0].(map[string]interface{})
	assert.Equal(t, string(models.StatusPending), first["status"])
	last := timeline[len(timeline)-1].(map[string]interface{})
	assert.Equal(t, string(models.StatusDelivered), last["status"])

	// The customer leaves feedback for the order.
	resp, _ = suite.makeRequest("POST", "/api/v1/feedback", suite.customer,
		map[string]interface{}{"order_id": orderID, "rating": 5, "comment": "beautiful work"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

// TestReadymadeOrderWorkflow_Acceptance walks an off-the-shelf product
// order, which skips the designer track entirely.
func (suite *OrderAcceptanceTestSuite) TestReadymadeOrderWorkflow_Acceptance() {
	t := suite.T()

	product := models.Product{
		Name: "Canvas Tote", Category: "bags", Price: 35,
		InStock: true, StockQuantity: 4, CreatedByID: suite.manager.ID,
	}
	suite.Require().NoError(suite.db.Create(&product).Error)

	resp, _ := suite.makeRequest("POST", "/api/v1/cart/items", suite.customer,
		map[string]interface{}{"product_id": product.ID, "quantity": 3})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, respData := suite.makeRequest("POST", "/api/v1/orders", suite.customer, map[string]interface{}{})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := int(respData["data"].(map[string]interface{})["id"].(float64))

	// Stock is reserved at checkout.
	var reloaded models.Product
	suite.Require().NoError(suite.db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 1, reloaded.StockQuantity)

	// No designer involved: the manager dispatches straight away.
	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/orders/%d/assign-delivery", orderID), suite.manager,
		map[string]interface{}{"delivery_person_id": suite.delivery.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusReadyForDelivery),
		respData["data"].(map[string]interface{})["status"])

	resp, _ = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/delivery/orders/%d/out-for-delivery", orderID), suite.delivery,
		map[string]interface{}{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	otp, err := suite.codeStore.Get(context.Background(), suite.customer.ID, services.PurposeDelivery)
	suite.Require().NoError(err)
	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/delivery/orders/%d/deliver", orderID), suite.delivery,
		map[string]interface{}{"otp": otp})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusDelivered),
		respData["data"].(map[string]interface{})["status"])

	// No commission on readymade orders.
	var earningCount int64
	suite.db.Model(&models.Earning{}).Count(&earningCount)
	assert.Equal(t, int64(0), earningCount)
}

// TestRoleGates_Acceptance verifies customers cannot reach workflow
// endpoints for other roles.
func (suite *OrderAcceptanceTestSuite) TestRoleGates_Acceptance() {
	t := suite.T()

	gated := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/manager/orders/1/assign-designer"},
		{"POST", "/api/v1/designer/orders/1/accept"},
		{"POST", "/api/v1/delivery/orders/1/deliver"},
	}

	for _, route := range gated {
		resp, respData := suite.makeRequest(route.method, route.path, suite.customer,
			map[string]interface{}{})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode,
			fmt.Sprintf("%s %s should be forbidden for customers", route.method, route.path))
		errorData := respData["error"].(map[string]interface{})
		assert.Equal(t, "FORBIDDEN", errorData["code"])
	}
}

// TestCancelledOrder_Acceptance verifies a manager cancellation is
// recorded and terminal.
func (suite *OrderAcceptanceTestSuite) TestCancelledOrder_Acceptance() {
	t := suite.T()

	product := models.Product{
		Name: "Wool Beanie", Category: "accessories", Price: 20,
		InStock: true, StockQuantity: 10, CreatedByID: suite.manager.ID,
	}
	suite.Require().NoError(suite.db.Create(&product).Error)

	resp, _ := suite.makeRequest("POST", "/api/v1/cart/items", suite.customer,
		map[string]interface{}{"product_id": product.ID, "quantity": 1})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, respData := suite.makeRequest("POST", "/api/v1/orders", suite.customer, map[string]interface{}{})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := int(respData["data"].(map[string]interface{})["id"].(float64))

	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/orders/%d/cancel", orderID), suite.manager,
		map[string]interface{}{"reason": "customer requested"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancelled := respData["data"].(map[string]interface{})
	assert.Equal(t, string(models.StatusCancelled), cancelled["status"])
	assert.Equal(t, "customer requested", cancelled["cancel_reason"])

	// Terminal: dispatch after cancellation is refused.
	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/orders/%d/assign-delivery", orderID), suite.manager,
		map[string]interface{}{"delivery_person_id": suite.delivery.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errorData := respData["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_TRANSITION", errorData["code"])
}

func TestOrderAcceptanceTestSuite(t *testing.T) {
	testutil.RequireTestEnvironment(t)
	suite.Run(t, new(OrderAcceptanceTestSuite))
}
