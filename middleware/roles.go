package middleware

import (
	"net/http"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// RequireRole resolves the authenticated user's database record and
// aborts unless their role is in the allowed set. Designers and managers
// must additionally be approved. The resolved user is stored in the
// context for handlers, so every role-gated route performs exactly one
// user lookup.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not extract user information",
				},
			})
			c.Abort()
			return
		}

		var user models.User
		if err := config.GetDB().Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "USER_NOT_FOUND",
					"message": "User profile not found. Please create a profile first.",
				},
			})
			c.Abort()
			return
		}

		if len(allowed) > 0 && !allowed[user.Role] {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Your role does not permit this action",
				},
			})
			c.Abort()
			return
		}

		if (user.Role == models.RoleDesigner || user.Role == models.RoleManager) && !user.Approved {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Your account is pending approval",
				},
			})
			c.Abort()
			return
		}

		c.Set(currentUserKey, &user)
		c.Next()
	}
}

// CurrentUser returns the user resolved by RequireRole
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
