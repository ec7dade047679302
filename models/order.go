package models

import (
	"time"

	"gorm.io/gorm"
)

// Order is the central entity: a checkout of cart lines that flows
// through the status workflow. DesignerID is only ever set for
// custom-design orders; ProgressPercentage is only meaningful while the
// order is in production.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	User        User        `gorm:"foreignKey:UserID" json:"user"`
	Status      OrderStatus `gorm:"not null;default:'pending';index" json:"status"`
	TotalAmount float64     `gorm:"not null" json:"total_amount"`

	Items    []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Timeline []OrderTimelineEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"timeline,omitempty"`

	DesignerID         *uint `gorm:"index" json:"designer_id,omitempty"`
	Designer           *User `gorm:"foreignKey:DesignerID" json:"designer,omitempty"`
	DeliveryPersonID   *uint `gorm:"index" json:"delivery_person_id,omitempty"`
	DeliveryPerson     *User `gorm:"foreignKey:DeliveryPersonID" json:"delivery_person,omitempty"`
	ProgressPercentage int   `gorm:"not null;default:0" json:"progress_percentage"`

	DeliveryDate     *time.Time `json:"delivery_date,omitempty"`
	DeliveryTimeSlot string     `json:"delivery_time_slot,omitempty"`
	TrackingNumber   *string    `json:"tracking_number,omitempty"`
	OTP              *string    `json:"-"` // delivery verification code, never serialized
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	PaymentStatus    string     `gorm:"not null;default:'pending'" json:"payment_status"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsCustom reports whether any line item references a designer-authored
// design, which routes the order through the designer track.
func (o *Order) IsCustom() bool {
	for _, item := range o.Items {
		if item.DesignID != nil {
			return true
		}
	}
	return false
}

// OrderItem is a single purchased line. Exactly one of ProductID or
// DesignID is set; name and unit price are captured at checkout so later
// catalog edits don't rewrite history.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"not null;index" json:"order_id"`
	ProductID *uint   `gorm:"index" json:"product_id,omitempty"`
	DesignID  *uint   `gorm:"index" json:"design_id,omitempty"`
	Name      string  `gorm:"not null" json:"name"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`
	Quantity  int     `gorm:"not null;check:quantity > 0" json:"quantity"`
	LineTotal float64 `gorm:"not null" json:"line_total"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderTimelineEntry is one append-only record of a workflow event on an
// order (status change or in-production progress update).
type OrderTimelineEntry struct {
	ID       uint        `gorm:"primaryKey" json:"id"`
	OrderID  uint        `gorm:"not null;index" json:"order_id"`
	Status   OrderStatus `gorm:"not null" json:"status"`
	Note     string      `json:"note"`
	Progress *int        `json:"progress,omitempty"` // set for in_production progress updates
	ActorID  *uint       `json:"actor_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderTimelineEntry model
func (OrderTimelineEntry) TableName() string {
	return "order_timeline_entries"
}
