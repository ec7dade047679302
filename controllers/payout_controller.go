package controllers

import (
	"net/http"
	"time"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/designden/designden-api/services"
	"github.com/gin-gonic/gin"
)

// RequestPayoutRequest represents the request body for a designer
// payout request
type RequestPayoutRequest struct {
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Method  string  `json:"payment_method" binding:"required,oneof=bank_transfer upi paypal"`
	Details string  `json:"payment_details" binding:"required"`
}

// ProcessPayoutRequest represents the request body for a manager
// decision on a payout request
type ProcessPayoutRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject process complete"`
	Reason string `json:"reason"`
}

// GetMyEarnings handles GET /api/v1/designer/earnings - lists the
// designer's per-order earnings
func GetMyEarnings(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var earnings []models.Earning
	err := db.Preload("Order").Where("designer_id = ?", designer.ID).
		Order("created_at DESC").Find(&earnings).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list earnings",
			},
		})
		return
	}

	lifetime, err := services.LifetimeEarnings(db, designer.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to total earnings",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"earnings":          earnings,
			"lifetime_earnings": lifetime,
			"commission_rate":   config.GetConfig().CommissionRateFor(lifetime),
		},
	})
}

// GetMyBalance handles GET /api/v1/designer/balance - the amount the
// designer can withdraw right now, after the hold window and any prior
// payout requests
func GetMyBalance(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	balance, svcErr := services.AvailableBalance(config.GetDB(), designer.ID, time.Now())
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"available_balance": balance,
			"min_payout_amount": config.GetConfig().MinPayoutAmount,
		},
	})
}

// RequestPayout handles POST /api/v1/designer/payouts
func RequestPayout(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	payout, svcErr := services.RequestPayout(config.GetDB(), designer, req.Amount, req.Method, req.Details)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    payout,
	})
}

// ListMyPayouts handles GET /api/v1/designer/payouts
func ListMyPayouts(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var payouts []models.PayoutRequest
	err := config.GetDB().Where("designer_id = ?", designer.ID).
		Order("created_at DESC").Find(&payouts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list payout requests",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payouts,
	})
}

// ListPayouts handles GET /api/v1/manager/payouts - all payout
// requests, optionally filtered by status
func ListPayouts(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Designer").Order("created_at ASC")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var payouts []models.PayoutRequest
	if err := query.Find(&payouts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list payout requests",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payouts,
	})
}

// ProcessPayout handles POST /api/v1/manager/payouts/:id/process
func ProcessPayout(c *gin.Context) {
	payoutID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProcessPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	payout, svcErr := services.ProcessPayout(config.GetDB(), payoutID, req.Action, req.Reason)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payout,
	})
}
