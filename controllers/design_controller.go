package controllers

import (
	"net/http"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/middleware"
	"github.com/designden/designden-api/models"
	"github.com/designden/designden-api/services"
	"github.com/gin-gonic/gin"
)

// DesignRequest represents the request body for creating or updating a
// custom design
type DesignRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
}

// PublishDesignRequest represents the request body for toggling a
// design's published flag
type PublishDesignRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// attachDesignImageURL fills in the presigned URL for a design image
func attachDesignImageURL(design *models.Design) {
	if design.ImageS3Key == nil {
		return
	}
	if url, err := services.GetImageService().GetImageURL(*design.ImageS3Key); err == nil {
		design.ImageURL = &url
	}
}

// ListDesigns handles GET /api/v1/designs - published designs for the
// public gallery, optionally filtered by designer
func ListDesigns(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Designer").Where("published = ?", true).Order("created_at DESC")

	if designerID := c.Query("designer_id"); designerID != "" {
		query = query.Where("designer_id = ?", designerID)
	}

	var designs []models.Design
	if err := query.Find(&designs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list designs",
			},
		})
		return
	}

	for i := range designs {
		attachDesignImageURL(&designs[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    designs,
	})
}

// ListMyDesigns handles GET /api/v1/designer/designs - the designer's
// own designs, published or not
func ListMyDesigns(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var designs []models.Design
	err := config.GetDB().Where("designer_id = ?", designer.ID).
		Order("created_at DESC").Find(&designs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list designs",
			},
		})
		return
	}

	for i := range designs {
		attachDesignImageURL(&designs[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    designs,
	})
}

// GetDesign handles GET /api/v1/designs/:id. Unpublished designs are
// only visible to their owner, managers and admins.
func GetDesign(c *gin.Context) {
	designID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var design models.Design
	err := config.GetDB().Preload("Designer").First(&design, designID).Error
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

	if !design.Published {
		user, ok := middleware.CurrentUser(c)
		allowed := ok && (user.ID == design.DesignerID ||
			user.Role == models.RoleManager || user.Role == models.RoleAdmin)
		if !allowed {
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

	attachDesignImageURL(&design)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    design,
	})
}

// CreateDesign handles POST /api/v1/designs (designers only)
func CreateDesign(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req DesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	design := models.Design{
		DesignerID:  designer.ID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	}

	if err := config.GetDB().Create(&design).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create design",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    design,
	})
}

// loadOwnDesign fetches a design and checks it belongs to the caller
func loadOwnDesign(c *gin.Context, designer *models.User) (*models.Design, bool) {
	designID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	var design models.Design
	if err := config.GetDB().First(&design, designID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DESIGN_NOT_FOUND",
				"message": "Design not found",
			},
		})
		return nil, false
	}

	if design.DesignerID != designer.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not own this design",
			},
		})
		return nil, false
	}

	return &design, true
}

// UpdateDesign handles PUT /api/v1/designs/:id (owning designer)
func UpdateDesign(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req DesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	design, ok := loadOwnDesign(c, designer)
	if !ok {
		return
	}

	updates := map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
		"price":       req.Price,
	}
	if err := config.GetDB().Model(design).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update design",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    design,
	})
}

// PublishDesign handles PUT /api/v1/designs/:id/publish (owning designer)
func PublishDesign(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	var req PublishDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	design, ok := loadOwnDesign(c, designer)
	if !ok {
		return
	}

	if err := config.GetDB().Model(design).Update("published", *req.Published).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update design",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    design,
	})
}

// DeleteDesign handles DELETE /api/v1/designs/:id (owning designer)
func DeleteDesign(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	design, ok := loadOwnDesign(c, designer)
	if !ok {
		return
	}

	if err := config.GetDB().Delete(design).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete design",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"message": "Design deleted"},
	})
}

// UploadDesignImage handles POST /api/v1/designs/:id/image (owning designer)
func UploadDesignImage(c *gin.Context) {
	designer, ok := lifecycleActor(c)
	if !ok {
		return
	}

	design, ok := loadOwnDesign(c, designer)
	if !ok {
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

	if design.ImageS3Key != nil {
		_ = services.GetImageService().DeleteImage(*design.ImageS3Key)
	}

	if err := config.GetDB().Model(design).Update("image_s3_key", imageKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image key",
			},
		})
		return
	}

	attachDesignImageURL(design)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    design,
	})
}
