package models

import (
	"time"

	"gorm.io/gorm"
)

// Feedback is a user rating and comment, optionally tied to an order.
// Independent of the order's workflow status.
type Feedback struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"user"`
	OrderID *uint  `gorm:"index" json:"order_id,omitempty"`
	Rating  int    `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Feedback model
func (Feedback) TableName() string {
	return "feedback"
}
