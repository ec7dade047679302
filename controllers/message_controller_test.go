package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/designden/designden-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatRoles mirrors the route registration: delivery personnel are not
// part of order conversations.
var chatRoles = []string{
	models.RoleCustomer, models.RoleDesigner, models.RoleManager, models.RoleAdmin,
}

func TestOrderMessages_Access(t *testing.T) {
	db := setupOrderTest(t)

	owner := createUser(t, db, "auth0|chat-owner", models.RoleCustomer)
	stranger := createUser(t, db, "auth0|chat-stranger", models.RoleCustomer)
	designer := createUser(t, db, "auth0|chat-designer", models.RoleDesigner)
	otherDesigner := createUser(t, db, "auth0|chat-designer2", models.RoleDesigner)
	manager := createUser(t, db, "auth0|chat-manager", models.RoleManager)
	delivery := createUser(t, db, "auth0|chat-delivery", models.RoleDelivery)

	order := seedOrder(t, db, owner.ID, &designer.ID, &delivery.ID, models.StatusInProduction)
	path := fmt.Sprintf("/orders/%d/messages", order.ID)

	tests := []struct {
		name         string
		user         *models.User
		expectedCode int
	}{
		{"customer chats on their own order", owner, http.StatusCreated},
		{"assigned designer chats", designer, http.StatusCreated},
		{"manager chats on any order", manager, http.StatusCreated},
		{"another customer is forbidden", stranger, http.StatusForbidden},
		{"an unassigned designer is forbidden", otherDesigner, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := orderRoute(http.MethodPost, "/orders/:id/messages", CreateOrderMessage,
				tt.user.Auth0ID, tt.user.Role, chatRoles...)
			code, response := doJSON(t, router, http.MethodPost, path,
				map[string]interface{}{"text": "Checking in on the stitching"})

			assert.Equal(t, tt.expectedCode, code)
			if tt.expectedCode == http.StatusCreated {
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "Checking in on the stitching", data["text"])
				assert.Equal(t, float64(tt.user.ID), data["sender_id"])
				sender := data["sender"].(map[string]interface{})
				assert.Equal(t, tt.user.Email, sender["email"])
			} else {
				errorData := response["error"].(map[string]interface{})
				assert.Equal(t, "FORBIDDEN", errorData["code"])
			}
		})
	}

	t.Run("delivery person is kept out by the role gate", func(t *testing.T) {
		router := orderRoute(http.MethodPost, "/orders/:id/messages", CreateOrderMessage,
			delivery.Auth0ID, models.RoleDelivery, chatRoles...)
		code, response := doJSON(t, router, http.MethodPost, path,
			map[string]interface{}{"text": "Where do I park?"})

		assert.Equal(t, http.StatusForbidden, code)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "FORBIDDEN", errorData["code"])
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		router := orderRoute(http.MethodPost, "/orders/:id/messages", CreateOrderMessage,
			owner.Auth0ID, models.RoleCustomer, chatRoles...)
		code, response := doJSON(t, router, http.MethodPost, path, map[string]interface{}{})

		assert.Equal(t, http.StatusBadRequest, code)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "VALIDATION_ERROR", errorData["code"])
	})

	t.Run("unknown order returns 404", func(t *testing.T) {
		router := orderRoute(http.MethodPost, "/orders/:id/messages", CreateOrderMessage,
			owner.Auth0ID, models.RoleCustomer, chatRoles...)
		code, response := doJSON(t, router, http.MethodPost, "/orders/99999/messages",
			map[string]interface{}{"text": "hello?"})

		assert.Equal(t, http.StatusNotFound, code)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "ORDER_NOT_FOUND", errorData["code"])
	})
}

func TestGetOrderMessages_IsChronological(t *testing.T) {
	db := setupOrderTest(t)

	owner := createUser(t, db, "auth0|chatlog-owner", models.RoleCustomer)
	designer := createUser(t, db, "auth0|chatlog-designer", models.RoleDesigner)
	order := seedOrder(t, db, owner.ID, &designer.ID, nil, models.StatusDesignerAccepted)

	messages := []models.Message{
		{OrderID: order.ID, SenderID: owner.ID, Text: "Can the collar be wider?"},
		{OrderID: order.ID, SenderID: designer.ID, Text: "Yes, updating the pattern."},
		{OrderID: order.ID, SenderID: owner.ID, Text: "Great, thanks!"},
	}
	for i := range messages {
		require.NoError(t, db.Create(&messages[i]).Error)
	}

	router := orderRoute(http.MethodGet, "/orders/:id/messages", GetOrderMessages,
		designer.Auth0ID, models.RoleDesigner, chatRoles...)
	code, response := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/orders/%d/messages", order.ID), nil)

	assert.Equal(t, http.StatusOK, code)
	data := response["data"].([]interface{})
	require.Len(t, data, 3)

	first := data[0].(map[string]interface{})
	assert.Equal(t, "Can the collar be wider?", first["text"])
	sender := first["sender"].(map[string]interface{})
	assert.Equal(t, owner.Email, sender["email"])

	last := data[2].(map[string]interface{})
	assert.Equal(t, "Great, thanks!", last["text"])
}
