package models

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a ready-made catalog item
type Product struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"not null" json:"name"`
	Description   string  `gorm:"type:text" json:"description"`
	Category      string  `gorm:"index" json:"category"`
	Gender        string  `json:"gender"`
	Price         float64 `gorm:"not null;check:price >= 0" json:"price"`
	Sizes         string  `json:"sizes"`   // comma-separated list
	Colors        string  `json:"colors"`  // comma-separated list
	Fabrics       string  `json:"fabrics"` // comma-separated list
	ImageS3Key    *string `json:"image_s3_key"`
	ImageURL      *string `gorm:"-" json:"image_url,omitempty"` // computed, presigned URL
	InStock       bool    `gorm:"not null;default:true" json:"in_stock"`
	StockQuantity int     `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	CreatedByID   uint    `gorm:"not null;index" json:"created_by_id"` // manager, or designer for authored graphics
	CreatedBy     User    `gorm:"foreignKey:CreatedByID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
