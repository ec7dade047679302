package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRolesTest(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	config.SetDB(db)
	return db
}

// roleTestRouter registers a probe route behind RequireRole and a fake
// auth step that injects the auth0 subject.
func roleTestRouter(auth0ID string, roles ...string) *gin.Engine {
	router := gin.New()
	router.GET("/probe",
		func(c *gin.Context) {
			c.Set("user_id", auth0ID)
			c.Next()
		},
		RequireRole(roles...),
		func(c *gin.Context) {
			user, ok := CurrentUser(c)
			if !ok {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"role": user.Role}})
		},
	)
	return router
}

func probe(t *testing.T, router *gin.Engine) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRequireRole(t *testing.T) {
	db := setupRolesTest(t)

	users := []models.User{
		{Auth0ID: "auth0|cust", Name: "C", Email: "c@example.com", Role: models.RoleCustomer, Approved: true},
		{Auth0ID: "auth0|designer", Name: "D", Email: "d@example.com", Role: models.RoleDesigner, Approved: true},
		{Auth0ID: "auth0|pending", Name: "P", Email: "p@example.com", Role: models.RoleDesigner, Approved: false},
		{Auth0ID: "auth0|mgr", Name: "M", Email: "m@example.com", Role: models.RoleManager, Approved: true},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}

	t.Run("allowed role passes and resolves the user", func(t *testing.T) {
		code, body := probe(t, roleTestRouter("auth0|designer", models.RoleDesigner))
		assert.Equal(t, http.StatusOK, code)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, models.RoleDesigner, data["role"])
	})

	t.Run("role outside the set is forbidden", func(t *testing.T) {
		code, body := probe(t, roleTestRouter("auth0|cust", models.RoleManager, models.RoleAdmin))
		assert.Equal(t, http.StatusForbidden, code)
		errorData := body["error"].(map[string]interface{})
		assert.Equal(t, "FORBIDDEN", errorData["code"])
	})

	t.Run("unapproved designer is rejected even with the right role", func(t *testing.T) {
		code, body := probe(t, roleTestRouter("auth0|pending", models.RoleDesigner))
		assert.Equal(t, http.StatusForbidden, code)
		errorData := body["error"].(map[string]interface{})
		assert.Equal(t, "FORBIDDEN", errorData["code"])
		assert.Contains(t, errorData["message"], "pending approval")
	})

	t.Run("unknown subject gets 404", func(t *testing.T) {
		code, body := probe(t, roleTestRouter("auth0|ghost", models.RoleCustomer))
		assert.Equal(t, http.StatusNotFound, code)
		errorData := body["error"].(map[string]interface{})
		assert.Equal(t, "USER_NOT_FOUND", errorData["code"])
	})

	t.Run("missing auth context gets 401", func(t *testing.T) {
		router := gin.New()
		router.GET("/probe", RequireRole(models.RoleCustomer), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		code, body := probe(t, router)
		assert.Equal(t, http.StatusUnauthorized, code)
		errorData := body["error"].(map[string]interface{})
		assert.Equal(t, "UNAUTHORIZED", errorData["code"])
	})

	t.Run("manager passes a multi-role gate", func(t *testing.T) {
		code, _ := probe(t, roleTestRouter("auth0|mgr", models.RoleManager, models.RoleAdmin))
		assert.Equal(t, http.StatusOK, code)
	})
}
