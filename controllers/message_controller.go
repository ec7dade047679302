package controllers

import (
	"net/http"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/gin-gonic/gin"
)

// CreateMessageRequest represents the request body for posting to an
// order conversation
type CreateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// canChatOnOrder decides whether the caller may participate in the
// order's conversation. Customers chat on their own orders, designers
// on orders assigned to them, managers and admins on any order.
func canChatOnOrder(order *models.Order, user *models.User) bool {
	switch user.Role {
	case models.RoleManager, models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return order.UserID == user.ID
	case models.RoleDesigner:
		return order.DesignerID != nil && *order.DesignerID == user.ID
	}
	return false
}

// loadChatOrder fetches the order and checks chat access for the caller
func loadChatOrder(c *gin.Context, user *models.User) (*models.Order, bool) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	var order models.Order
	if err := config.GetDB().First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return nil, false
	}

	if !canChatOnOrder(&order, user) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have access to this conversation",
			},
		})
		return nil, false
	}

	return &order, true
}

// GetOrderMessages handles GET /api/v1/orders/:id/messages
func GetOrderMessages(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	order, ok := loadChatOrder(c, user)
	if !ok {
		return
	}

	var messages []models.Message
	err := config.GetDB().Preload("Sender").Where("order_id = ?", order.ID).
		Order("created_at ASC, id ASC").Find(&messages).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load messages",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
	})
}

// CreateOrderMessage handles POST /api/v1/orders/:id/messages
func CreateOrderMessage(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, ok := loadChatOrder(c, user)
	if !ok {
		return
	}

	message := models.Message{
		OrderID:  order.ID,
		SenderID: user.ID,
		Text:     req.Text,
	}
	db := config.GetDB()
	if err := db.Create(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create message",
			},
		})
		return
	}
	message.Sender = *user

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}
