package controllers

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/services"
	"github.com/gin-gonic/gin"
)

// SendCodeRequest represents the request body for requesting a
// verification code. Delivery codes are issued by the delivery
// assignment flow, so login is the only purpose accepted here.
type SendCodeRequest struct {
	Purpose string `json:"purpose" binding:"omitempty,oneof=login"`
}

// VerifyCodeRequest represents the request body for confirming a login
// verification code
type VerifyCodeRequest struct {
	Purpose string `json:"purpose" binding:"omitempty,oneof=login"`
	Code    string `json:"code" binding:"required,len=6"`
}

// SendVerificationCode handles POST /api/v1/auth/verification-code -
// generates a short-lived code, stores it keyed to the caller, and
// emails it
func SendVerificationCode(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	// body is optional, purpose defaults to login
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBindingError(c, err)
		return
	}

	store := services.GetCodeStore()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VERIFICATION_UNAVAILABLE",
				"message": "Verification codes are not configured",
			},
		})
		return
	}

	code, err := services.GenerateCode()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to generate code",
			},
		})
		return
	}

	cfg := config.GetConfig()
	ttl := time.Duration(cfg.VerificationTTLMin) * time.Minute
	err = store.Put(c.Request.Context(), user.ID, services.PurposeLogin, code, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to store code",
			},
		})
		return
	}

	mailErr := services.SendVerificationCode(user.Email, services.VerificationCodeData{
		UserName:      user.Name,
		Code:          code,
		ExpiryMinutes: cfg.VerificationTTLMin,
	})
	if mailErr != nil {
		log.Printf("warning: verification mail to user %d failed: %v", user.ID, mailErr)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":        "Verification code sent",
			"expiry_minutes": cfg.VerificationTTLMin,
		},
	})
}

// VerifyCode handles POST /api/v1/auth/verify - checks the submitted
// code against the stored one and consumes it on success
func VerifyCode(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	store := services.GetCodeStore()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VERIFICATION_UNAVAILABLE",
				"message": "Verification codes are not configured",
			},
		})
		return
	}

	stored, err := store.Get(c.Request.Context(), user.ID, services.PurposeLogin)
	if err != nil || stored != req.Code {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "OTP_INVALID",
				"message": "Verification code is invalid or expired",
			},
		})
		return
	}

	if err := store.Delete(c.Request.Context(), user.ID, services.PurposeLogin); err != nil {
		log.Printf("warning: failed to consume verification code for user %d: %v", user.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"verified": true},
	})
}
