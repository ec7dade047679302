package controllers

import (
	"net/http"
	"time"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/middleware"
	"github.com/designden/designden-api/models"
	"github.com/designden/designden-api/services"
	"github.com/gin-gonic/gin"
)

// CheckoutRequest represents the request body for placing an order from
// the current cart
type CheckoutRequest struct {
	DeliveryDate     *time.Time `json:"delivery_date"`
	DeliveryTimeSlot string     `json:"delivery_time_slot"`
}

// Checkout handles POST /api/v1/orders - turns the customer's cart into
// an order (customers only)
func Checkout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, svcErr := services.Checkout(config.GetDB(), user, req.DeliveryDate, req.DeliveryTimeSlot)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists orders visible to the
// caller. Customers see their own orders, designers and delivery
// personnel the orders assigned to them, managers and admins everything.
func ListOrders(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	db := config.GetDB()
	query := db.Preload("Items").Preload("User").Order("created_at DESC")

	switch user.Role {
	case models.RoleCustomer:
		query = query.Where("user_id = ?", user.ID)
	case models.RoleDesigner:
		query = query.Where("designer_id = ?", user.ID)
	case models.RoleDelivery:
		query = query.Where("delivery_person_id = ?", user.ID)
	}

	if status := c.Query("status"); status != "" {
		if !models.OrderStatus(status).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Unknown status " + status,
				},
			})
			return
		}
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// canViewOrder decides whether the caller may read the order
func canViewOrder(order *models.Order, user *models.User) bool {
	switch user.Role {
	case models.RoleManager, models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return order.UserID == user.ID
	case models.RoleDesigner:
		return order.DesignerID != nil && *order.DesignerID == user.ID
	case models.RoleDelivery:
		return order.DeliveryPersonID != nil && *order.DeliveryPersonID == user.ID
	}
	return false
}

// GetOrder handles GET /api/v1/orders/:id - fetches one order
func GetOrder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	err := db.Preload("Items").Preload("User").Preload("Designer").Preload("DeliveryPerson").
		First(&order, orderID).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	if !canViewOrder(&order, user) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have permission to view this order",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// GetOrderTimeline handles GET /api/v1/orders/:id/timeline - returns the
// append-only workflow history of an order
func GetOrderTimeline(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	if !canViewOrder(&order, user) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have permission to view this order",
			},
		})
		return
	}

	var timeline []models.OrderTimelineEntry
	if err := db.Where("order_id = ?", order.ID).Order("created_at ASC, id ASC").Find(&timeline).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load timeline",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    timeline,
	})
}
