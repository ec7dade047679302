package controllers

import (
	"net/http"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/gin-gonic/gin"
)

// CreateFeedbackRequest represents the request body for submitting
// feedback
type CreateFeedbackRequest struct {
	OrderID *uint  `json:"order_id"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// CreateFeedback handles POST /api/v1/feedback (customers only). When
// an order is referenced it must belong to the caller, but feedback is
// accepted regardless of the order's workflow status.
func CreateFeedback(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	db := config.GetDB()

	if req.OrderID != nil {
		var order models.Order
		err := db.Where("id = ? AND user_id = ?", *req.OrderID, user.ID).First(&order).Error
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
	}

	feedback := models.Feedback{
		UserID:  user.ID,
		OrderID: req.OrderID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := db.Create(&feedback).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create feedback",
			},
		})
		return
	}
	feedback.User = *user

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    feedback,
	})
}

// ListFeedback handles GET /api/v1/feedback (managers and admins)
func ListFeedback(c *gin.Context) {
	var feedback []models.Feedback
	err := config.GetDB().Preload("User").Order("created_at DESC").Find(&feedback).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list feedback",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    feedback,
	})
}
