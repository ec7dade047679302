package controllers

import (
	"net/http"
	"strconv"

	"github.com/designden/designden-api/services"
	"github.com/gin-gonic/gin"
)

// respondServiceError writes the error envelope for a typed service
// failure, using the status the error code maps to.
func respondServiceError(c *gin.Context, err *services.ServiceError) {
	c.JSON(err.HTTPStatus(), gin.H{
		"success": false,
		"error": gin.H{
			"code":    err.Code,
			"message": err.Message,
		},
	})
}

// respondBindingError writes the envelope for a request that failed
// binding validation.
func respondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// parseIDParam parses a numeric :id path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid " + name + " parameter",
			},
		})
		return 0, false
	}
	return uint(id), true
}
