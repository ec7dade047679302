package models

import (
	"time"

	"gorm.io/gorm"
)

// Cart holds a user's pending selections. One cart per user, created
// lazily on first add and cleared on checkout.
type Cart struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	UserID uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Items  []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Cart model
func (Cart) TableName() string {
	return "carts"
}

// CartItem is a single line in a cart. Exactly one of ProductID or
// DesignID is set.
type CartItem struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	CartID    uint   `gorm:"not null;index" json:"cart_id"`
	ProductID *uint  `gorm:"index" json:"product_id,omitempty"`
	DesignID  *uint  `gorm:"index" json:"design_id,omitempty"`
	Quantity  int    `gorm:"not null;check:quantity > 0" json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the CartItem model
func (CartItem) TableName() string {
	return "cart_items"
}
