package models

import (
	"time"

	"gorm.io/gorm"
)

// Earning statuses
const (
	EarningPending    = "pending"
	EarningProcessing = "processing"
	EarningPaid       = "paid"
	EarningOnHold     = "on_hold"
)

// Earning is one commission record per completed order per designer,
// created when the order reaches production_completed. It becomes payable
// once the order has been delivered for the configured holding period.
type Earning struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	OrderID         uint    `gorm:"uniqueIndex;not null" json:"order_id"`
	Order           Order   `gorm:"foreignKey:OrderID" json:"-"`
	DesignerID      uint    `gorm:"not null;index" json:"designer_id"`
	Designer        User    `gorm:"foreignKey:DesignerID" json:"-"`
	OrderAmount     float64 `gorm:"not null" json:"order_amount"`
	CommissionRate  float64 `gorm:"not null" json:"commission_rate"` // percent of order total
	DesignerEarning float64 `gorm:"not null" json:"designer_earning"`
	Status          string  `gorm:"not null;default:'pending'" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Earning model
func (Earning) TableName() string {
	return "earnings"
}
