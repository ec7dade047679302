package models

import (
	"time"

	"gorm.io/gorm"
)

// Design represents a designer-authored custom design that customers can
// commission. An order line referencing a Design makes the order a
// custom-design order.
type Design struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	DesignerID  uint    `gorm:"not null;index" json:"designer_id"`
	Designer    User    `gorm:"foreignKey:DesignerID" json:"designer"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"not null;check:price >= 0" json:"price"`
	ImageS3Key  *string `json:"image_s3_key"`
	ImageURL    *string `gorm:"-" json:"image_url,omitempty"` // computed, presigned URL
	Published   bool    `gorm:"not null;default:false" json:"published"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Design model
func (Design) TableName() string {
	return "designs"
}
