package controllers

import (
	"net/http"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AddCartItemRequest represents the request body for adding a line to
// the cart. Exactly one of product_id or design_id must be set.
type AddCartItemRequest struct {
	ProductID *uint  `json:"product_id"`
	DesignID  *uint  `json:"design_id"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// UpdateCartItemRequest represents the request body for changing a
// cart line's quantity
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// loadOrCreateCart fetches the caller's cart, creating an empty one on
// first use
func loadOrCreateCart(db *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	cart = models.Cart{UserID: userID}
	if err := db.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCart handles GET /api/v1/cart (customers only)
func GetCart(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	cart, err := loadOrCreateCart(config.GetDB(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load cart",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cart,
	})
}

// AddCartItem handles POST /api/v1/cart/items (customers only)
func AddCartItem(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if (req.ProductID == nil) == (req.DesignID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Exactly one of product_id or design_id must be set",
			},
		})
		return
	}

	db := config.GetDB()

	if req.ProductID != nil {
		var product models.Product
		if err := db.First(&product, *req.ProductID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PRODUCT_NOT_FOUND",
					"message": "Product not found",
				},
			})
			return
		}
	} else {
		var design models.Design
		err := db.Where("published = ?", true).First(&design, *req.DesignID).Error
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DESIGN_NOT_FOUND",
					"message": "Design not found",
				},
			})
			return
		}
	}

	cart, err := loadOrCreateCart(db, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load cart",
			},
		})
		return
	}

	item := models.CartItem{
		CartID:    cart.ID,
		ProductID: req.ProductID,
		DesignID:  req.DesignID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	}
	if err := db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to add item",
			},
		})
		return
	}

	cart.Items = append(cart.Items, item)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    cart,
	})
}

// loadOwnCartItem fetches a cart line and checks it belongs to the
// caller's cart
func loadOwnCartItem(c *gin.Context, userID uint) (*models.CartItem, bool) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	db := config.GetDB()
	var item models.CartItem
	err := db.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CART_ITEM_NOT_FOUND",
				"message": "Cart item not found",
			},
		})
		return nil, false
	}

	return &item, true
}

// UpdateCartItem handles PUT /api/v1/cart/items/:id (customers only)
func UpdateCartItem(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	item, ok := loadOwnCartItem(c, user.ID)
	if !ok {
		return
	}

	if err := config.GetDB().Model(item).Update("quantity", req.Quantity).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update item",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// ClearCart handles DELETE /api/v1/cart (customers only)
func ClearCart(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	db := config.GetDB()
	cart, err := loadOrCreateCart(db, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load cart",
			},
		})
		return
	}

	if err := db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to clear cart",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"message": "Cart cleared"},
	})
}

// RemoveCartItem handles DELETE /api/v1/cart/items/:id (customers only)
func RemoveCartItem(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	item, ok := loadOwnCartItem(c, user.ID)
	if !ok {
		return
	}

	if err := config.GetDB().Delete(item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to remove item",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"message": "Item removed"},
	})
}
