package controllers

import (
	"io"
	"net/http"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/middleware"
	"github.com/designden/designden-api/models"
	"github.com/designden/designden-api/services"
	"github.com/gin-gonic/gin"
)

// AssignDesignerRequest represents the request body for assigning a
// designer to a custom order
type AssignDesignerRequest struct {
	DesignerID uint `json:"designer_id" binding:"required"`
}

// UpdateProgressRequest represents the request body for a production
// progress update
type UpdateProgressRequest struct {
	Progress *int   `json:"progress_percentage" binding:"required"`
	Note     string `json:"note"`
}

// AssignDeliveryRequest represents the request body for assigning a
// delivery person to an order
type AssignDeliveryRequest struct {
	DeliveryPersonID uint `json:"delivery_person_id" binding:"required"`
}

// OutForDeliveryRequest represents the request body for marking an
// order out for delivery
type OutForDeliveryRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

// DeliverOrderRequest represents the request body for confirming a
// delivery with the customer's OTP
type DeliverOrderRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// CancelOrderRequest represents the request body for cancelling an order
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OverrideStatusRequest represents the request body for an admin
// status override
type OverrideStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// lifecycleActor pulls the resolved user off the context, responding
// with 401 when it's missing
func lifecycleActor(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}
	return user, true
}

// AssignDesigner handles POST /api/v1/manager/orders/:id/assign-designer
// (managers and admins)
func AssignDesigner(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignDesignerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, svcErr := services.AssignDesigner(config.GetDB(), orderID, req.DesignerID, actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// AcceptOrder handles POST /api/v1/designer/orders/:id/accept
// (assigned designer)
func AcceptOrder(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, svcErr := services.AcceptOrder(config.GetDB(), orderID, actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// StartProduction handles POST /api/v1/designer/orders/:id/start
// (assigned designer)
func StartProduction(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, svcErr := services.StartProduction(config.GetDB(), orderID, actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateProgress handles POST /api/v1/designer/orders/:id/progress
// (assigned designer)
func UpdateProgress(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, svcErr := services.UpdateProgress(config.GetDB(), orderID, actor, *req.Progress, req.Note)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CompleteProduction handles POST /api/v1/designer/orders/:id/complete
// (assigned designer)
func CompleteProduction(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, svcErr := services.CompleteProduction(config.GetDB(), orderID, actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// AssignDelivery handles POST /api/v1/manager/orders/:id/assign-delivery
// (managers and admins)
func AssignDelivery(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, svcErr := services.AssignDelivery(config.GetDB(), orderID, req.DeliveryPersonID, actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// MarkOutForDelivery handles POST /api/v1/delivery/orders/:id/out-for-delivery
// (assigned delivery person)
func MarkOutForDelivery(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// body is optional, tracking_number only
	var req OutForDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBindingError(c, err)
		return
	}

	order, svcErr := services.MarkOutForDelivery(config.GetDB(), orderID, actor, req.TrackingNumber)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// DeliverOrder handles POST /api/v1/delivery/orders/:id/deliver (assigned
// delivery person, requires the customer's OTP)
func DeliverOrder(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req DeliverOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, svcErr := services.DeliverOrder(config.GetDB(), orderID, actor, req.OTP)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CancelOrder handles POST /api/v1/manager/orders/:id/cancel
// (managers and admins)
func CancelOrder(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// body is optional, reason only
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBindingError(c, err)
		return
	}

	order, svcErr := services.CancelOrder(config.GetDB(), orderID, actor, req.Reason)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// OverrideStatus handles PUT /api/v1/admin/orders/:id/status (admins only)
func OverrideStatus(c *gin.Context) {
	actor, ok := lifecycleActor(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, svcErr := services.OverrideStatus(config.GetDB(), orderID, models.OrderStatus(req.Status), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}
