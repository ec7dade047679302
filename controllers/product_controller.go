package controllers

import (
	"net/http"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/designden/designden-api/services"
	"github.com/gin-gonic/gin"
)

// ProductRequest represents the request body for creating or updating
// a catalog product
type ProductRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Gender        string  `json:"gender"`
	Price         float64 `json:"price" binding:"required,gt=0"`
	Sizes         string  `json:"sizes"`
	Colors        string  `json:"colors"`
	Fabrics       string  `json:"fabrics"`
	StockQuantity *int    `json:"stock_quantity" binding:"omitempty,gte=0"`
}

// AdjustStockRequest represents the request body for a stock adjustment
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// attachProductImageURL fills in the presigned URL for a product image
func attachProductImageURL(product *models.Product) {
	if product.ImageS3Key == nil {
		return
	}
	if url, err := services.GetImageService().GetImageURL(*product.ImageS3Key); err == nil {
		product.ImageURL = &url
	}
}

// ListProducts handles GET /api/v1/products - public catalog browsing
// with optional category and gender filters
func ListProducts(c *gin.Context) {
	db := config.GetDB()
	query := db.Order("created_at DESC")

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if gender := c.Query("gender"); gender != "" {
		query = query.Where("gender = ?", gender)
	}
	if c.Query("in_stock") == "true" {
		query = query.Where("in_stock = ?", true)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list products",
			},
		})
		return
	}

	for i := range products {
		attachProductImageURL(&products[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
	})
}

// GetProduct handles GET /api/v1/products/:id
func GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var product models.Product
	if err := config.GetDB().First(&product, productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PRODUCT_NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	attachProductImageURL(&product)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
	})
}

// CreateProduct handles POST /api/v1/products (managers and admins)
func CreateProduct(c *gin.Context) {
	user, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	stock := 0
	if req.StockQuantity != nil {
		stock = *req.StockQuantity
	}

	product := models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Gender:        req.Gender,
		Price:         req.Price,
		Sizes:         req.Sizes,
		Colors:        req.Colors,
		Fabrics:       req.Fabrics,
		InStock:       stock > 0,
		StockQuantity: stock,
		CreatedByID:   user.ID,
	}

	if err := config.GetDB().Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create product",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    product,
	})
}

// UpdateProduct handles PUT /api/v1/products/:id (managers and admins).
// Stock is adjusted through the dedicated stock endpoint, not here.
func UpdateProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PRODUCT_NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"category":    req.Category,
		"gender":      req.Gender,
		"price":       req.Price,
		"sizes":       req.Sizes,
		"colors":      req.Colors,
		"fabrics":     req.Fabrics,
	}
	if err := db.Model(&product).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
	})
}

// AdjustStock handles PUT /api/v1/products/:id/stock (managers and
// admins). The adjustment is applied atomically against the current
// database value so concurrent adjustments never lose updates, and a
// decrement below zero is rejected.
func AdjustStock(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	product, svcErr := services.AdjustStock(config.GetDB(), productID, req.Delta)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
	})
}

// DeleteProduct handles DELETE /api/v1/products/:id (managers and admins)
func DeleteProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PRODUCT_NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	if err := db.Delete(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"message": "Product deleted"},
	})
}

// UploadProductImage handles POST /api/v1/products/:id/image (managers
// and admins)
func UploadProductImage(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PRODUCT_NOT_FOUND",
				"message": "Product not found",
			},
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Image file is required",
			},
		})
		return
	}

	imageKey, err := services.GetImageService().UploadImage(fileHeader)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_FORMAT",
				"message": err.Error(),
			},
		})
		return
	}

	if product.ImageS3Key != nil {
		// best effort, the new key is already stored in S3
		_ = services.GetImageService().DeleteImage(*product.ImageS3Key)
	}

	if err := db.Model(&product).Update("image_s3_key", imageKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image key",
			},
		})
		return
	}

	attachProductImageURL(&product)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
	})
}
