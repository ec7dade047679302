package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

// PayoutIntegrationTestSuite drives the designer earnings and payout
// workflow through the HTTP API against a real database.
type PayoutIntegrationTestSuite struct {
	suite.Suite
	server *httptest.Server
	db     *gorm.DB

	designer *models.User
	manager  *models.User
}

func (suite *PayoutIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	err = db.AutoMigrate(
		&models.User{}, &models.Order{}, &models.OrderItem{},
		&models.OrderTimelineEntry{}, &models.Earning{}, &models.PayoutRequest{},
	)
	suite.Require().NoError(err)
	config.SetDB(db)

	config.SetConfig(&config.Config{
		GoEnv: "test",
		CommissionTiers: []config.CommissionTier{
			{MinLifetimeEarnings: 0, Rate: 80},
		},
		MinPayoutAmount:  500,
		EarningsHoldDays: 7,
	})

	services.NewMockNotifier().SetAsMockForTesting()
	services.NewMockMailSender().SetAsMockForTesting()

	router := gin.New()
	router.Use(gin.Recovery())

	auth := testutil.SubjectAuth()

	v1 := router.Group("/api/v1")
	{
		designer := v1.Group("/designer", auth, middleware.RequireRole(models.RoleDesigner))
		{
			designer.GET("/earnings", controllers.GetMyEarnings)
			designer.GET("/balance", controllers.GetMyBalance)
			designer.POST("/payouts", controllers.RequestPayout)
			designer.GET("/payouts", controllers.ListMyPayouts)
		}

		manager := v1.Group("/manager", auth, middleware.RequireRole(models.RoleManager, models.RoleAdmin))
		{
			manager.GET("/payouts", controllers.ListPayouts)
			manager.POST("/payouts/:id/process", controllers.ProcessPayout)
		}
	}

	suite.server = httptest.NewServer(router)
}

func (suite *PayoutIntegrationTestSuite) TearDownSuite() {
	suite.server.Close()
	if suite.db != nil {
		sqlDB, _ := suite.db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
}

func (suite *PayoutIntegrationTestSuite) SetupTest() {
	for _, table := range []string{
		"payout_requests", "earnings", "order_timeline_entries",
		"order_items", "orders", "users",
	} {
		suite.db.Exec("DELETE FROM " + table)
	}

	suite.designer = suite.createUser("auth0|int-designer", models.RoleDesigner)
	suite.manager = suite.createUser("auth0|int-manager", models.RoleManager)
}

func (suite *PayoutIntegrationTestSuite) createUser(auth0ID, role string) *models.User {
	user := models.User{
		Auth0ID: auth0ID, Name: "Integration " + role,
		Email: auth0ID + "@example.com", Role: role, Approved: true,
	}
	suite.Require().NoError(suite.db.Create(&user).Error)
	return &user
}

// seedEarning inserts a delivered order plus its commission record,
// backdated so the hold window can be controlled per test.
func (suite *PayoutIntegrationTestSuite) seedEarning(amount float64, deliveredDaysAgo int) {
	customer := models.User{
		Auth0ID: fmt.Sprintf("auth0|int-cust-%d", time.Now().UnixNano()),
		Name:    "Paying Customer",
		Email:   fmt.Sprintf("cust-%d@example.com", time.Now().UnixNano()),
		Role:    models.RoleCustomer, Approved: true,
	}
	suite.Require().NoError(suite.db.Create(&customer).Error)

	deliveredAt := time.Now().AddDate(0, 0, -deliveredDaysAgo)
	order := models.Order{
		OrderNumber: fmt.Sprintf("DD-%08X", time.Now().UnixNano()&0xFFFFFFFF),
		UserID:      customer.ID,
		DesignerID:  &suite.designer.ID,
		Status:      models.StatusDelivered,
		TotalAmount: amount / 0.8,
		DeliveredAt: &deliveredAt,
	}
	suite.Require().NoError(suite.db.Create(&order).Error)

	earning := models.Earning{
		OrderID:         order.ID,
		DesignerID:      suite.designer.ID,
		OrderAmount:     order.TotalAmount,
		CommissionRate:  80,
		DesignerEarning: amount,
		Status:          models.EarningPending,
	}
	suite.Require().NoError(suite.db.Create(&earning).Error)
}

func (suite *PayoutIntegrationTestSuite) makeRequest(method, path string, as *models.User, body interface{}) (*http.Response, map[string]interface{}) {
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

// TestBalanceHonorsHoldWindow verifies recently delivered earnings stay
// on hold.
func (suite *PayoutIntegrationTestSuite) TestBalanceHonorsHoldWindow() {
	t := suite.T()

	suite.seedEarning(800, 10) // past the 7-day hold
	suite.seedEarning(500, 1)  // still held

	resp, respData := suite.makeRequest("GET", "/api/v1/designer/balance", suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := respData["data"].(map[string]interface{})
	assert.Equal(t, 800.0, data["available_balance"])
	assert.Equal(t, 500.0, data["min_payout_amount"])

	// Both earnings count toward lifetime totals regardless of the hold.
	resp, respData = suite.makeRequest("GET", "/api/v1/designer/earnings", suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	earningsData := respData["data"].(map[string]interface{})
	assert.Equal(t, 1300.0, earningsData["lifetime_earnings"])
	assert.Equal(t, 80.0, earningsData["commission_rate"])
	assert.Len(t, earningsData["earnings"].([]interface{}), 2)
}

// TestPayoutRequestValidation checks the minimum amount and the balance
// ceiling.
func (suite *PayoutIntegrationTestSuite) TestPayoutRequestValidation() {
	t := suite.T()
	suite.seedEarning(800, 10)

	// Below the minimum.
	resp, respData := suite.makeRequest("POST", "/api/v1/designer/payouts", suite.designer,
		map[string]interface{}{"amount": 100, "payment_method": "upi", "payment_details": "designer@upi"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_BALANCE", respData["error"].(map[string]interface{})["code"])

	// More than the available balance.
	resp, respData = suite.makeRequest("POST", "/api/v1/designer/payouts", suite.designer,
		map[string]interface{}{"amount": 900, "payment_method": "upi", "payment_details": "designer@upi"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_BALANCE", respData["error"].(map[string]interface{})["code"])

	// Unknown payment method fails request validation.
	resp, respData = suite.makeRequest("POST", "/api/v1/designer/payouts", suite.designer,
		map[string]interface{}{"amount": 600, "payment_method": "cheque", "payment_details": "n/a"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", respData["error"].(map[string]interface{})["code"])
}

// TestPayoutLifecycle walks request -> approve -> process -> complete
// and verifies the earnings settle.
func (suite *PayoutIntegrationTestSuite) TestPayoutLifecycle() {
	t := suite.T()
	suite.seedEarning(500, 12)
	suite.seedEarning(300, 10)

	resp, respData := suite.makeRequest("POST", "/api/v1/designer/payouts", suite.designer,
		map[string]interface{}{"amount": 600, "payment_method": "bank_transfer", "payment_details": "IBAN XX00"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	payoutData := respData["data"].(map[string]interface{})
	payoutID := int(payoutData["id"].(float64))
	assert.Equal(t, models.PayoutPending, payoutData["status"])

	// The requested amount is locked immediately.
	resp, respData = suite.makeRequest("GET", "/api/v1/designer/balance", suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 200.0, respData["data"].(map[string]interface{})["available_balance"])

	// Completing out of order is refused.
	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/payouts/%d/process", payoutID), suite.manager,
		map[string]interface{}{"action": "complete"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", respData["error"].(map[string]interface{})["code"])

	for _, action := range []string{"approve", "process"} {
		resp, _ = suite.makeRequest("POST",
			fmt.Sprintf("/api/v1/manager/payouts/%d/process", payoutID), suite.manager,
			map[string]interface{}{"action": action})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/payouts/%d/process", payoutID), suite.manager,
		map[string]interface{}{"action": "complete"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	completed := respData["data"].(map[string]interface{})
	assert.Equal(t, models.PayoutCompleted, completed["status"])
	assert.NotEmpty(t, completed["transaction_id"])

	// The oldest earning is settled by the payout; the 300 earning is
	// only partially covered and stays payable.
	var paidTotal float64
	suite.db.Model(&models.Earning{}).
		Where("designer_id = ? AND status = ?", suite.designer.ID, models.EarningPaid).
		Select("COALESCE(SUM(designer_earning), 0)").
		Scan(&paidTotal)
	assert.Equal(t, 500.0, paidTotal)

	// The residual 200 is still withdrawable after completion.
	resp, respData = suite.makeRequest("GET", "/api/v1/designer/balance", suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 200.0, respData["data"].(map[string]interface{})["available_balance"])
}

// TestPayoutRejectionFreesBalance verifies a rejection requires a reason
// and releases the locked amount.
func (suite *PayoutIntegrationTestSuite) TestPayoutRejectionFreesBalance() {
	t := suite.T()
	suite.seedEarning(800, 10)

	resp, respData := suite.makeRequest("POST", "/api/v1/designer/payouts", suite.designer,
		map[string]interface{}{"amount": 800, "payment_method": "paypal", "payment_details": "designer@example.com"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	payoutID := int(respData["data"].(map[string]interface{})["id"].(float64))

	// Rejection without a reason is refused.
	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/payouts/%d/process", payoutID), suite.manager,
		map[string]interface{}{"action": "reject"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, respData = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/payouts/%d/process", payoutID), suite.manager,
		map[string]interface{}{"action": "reject", "reason": "payment details incomplete"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rejected := respData["data"].(map[string]interface{})
	assert.Equal(t, models.PayoutRejected, rejected["status"])
	assert.Equal(t, "payment details incomplete", rejected["rejection_reason"])

	resp, respData = suite.makeRequest("GET", "/api/v1/designer/balance", suite.designer, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 800.0, respData["data"].(map[string]interface{})["available_balance"])
}

// TestManagerPayoutQueue verifies the status filter on the manager's
// payout list.
func (suite *PayoutIntegrationTestSuite) TestManagerPayoutQueue() {
	t := suite.T()
	suite.seedEarning(800, 10)
	suite.seedEarning(700, 20)

	resp, respData := suite.makeRequest("POST", "/api/v1/designer/payouts", suite.designer,
		map[string]interface{}{"amount": 600, "payment_method": "upi", "payment_details": "designer@upi"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	firstID := int(respData["data"].(map[string]interface{})["id"].(float64))

	resp, _ = suite.makeRequest("POST", "/api/v1/designer/payouts", suite.designer,
		map[string]interface{}{"amount": 500, "payment_method": "upi", "payment_details": "designer@upi"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = suite.makeRequest("POST",
		fmt.Sprintf("/api/v1/manager/payouts/%d/process", firstID), suite.manager,
		map[string]interface{}{"action": "approve"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, respData = suite.makeRequest("GET", "/api/v1/manager/payouts?status=pending", suite.manager, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, respData["data"].([]interface{}), 1)

	resp, respData = suite.makeRequest("GET", "/api/v1/manager/payouts", suite.manager, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, respData["data"].([]interface{}), 2)
}

func TestPayoutIntegrationTestSuite(t *testing.T) {
	testutil.RequireTestEnvironment(t)
	suite.Run(t, new(PayoutIntegrationTestSuite))
}
