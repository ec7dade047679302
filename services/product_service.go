package services

import (
	"github.com/designden/designden-api/models"
	"gorm.io/gorm"
)

// AdjustStock applies a relative stock change to a product. The update
// runs against the database's current value with a floor guard, so two
// managers adjusting at once cannot drive the count negative or
// overwrite each other.
func AdjustStock(db *gorm.DB, productID uint, delta int) (*models.Product, *ServiceError) {
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		return nil, newError(CodeProductNotFound, "product not found")
	}

	query := db.Model(&models.Product{}).Where("id = ?", productID)
	if delta < 0 {
		query = query.Where("stock_quantity >= ?", -delta)
	}
	result := query.Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if result.Error != nil {
		return nil, newError(CodeDatabase, "failed to adjust stock")
	}
	if result.RowsAffected == 0 {
		return nil, newError(CodeInsufficientStock, "stock cannot go below zero")
	}

	if err := db.First(&product, productID).Error; err != nil {
		return nil, newError(CodeDatabase, "failed to reload product")
	}
	if err := db.Model(&product).Update("in_stock", product.StockQuantity > 0).Error; err != nil {
		return nil, newError(CodeDatabase, "failed to update stock flag")
	}
	product.InStock = product.StockQuantity > 0

	return &product, nil
}
