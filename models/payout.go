package models

import (
	"time"

	"gorm.io/gorm"
)

// Payout request statuses
const (
	PayoutPending    = "pending"
	PayoutApproved   = "approved"
	PayoutProcessing = "processing"
	PayoutCompleted  = "completed"
	PayoutRejected   = "rejected"
)

// payoutSuccessors encodes the only permitted payout transitions:
// pending -> approved -> processing -> completed, or pending -> rejected.
var payoutSuccessors = map[string][]string{
	PayoutPending:    {PayoutApproved, PayoutRejected},
	PayoutApproved:   {PayoutProcessing},
	PayoutProcessing: {PayoutCompleted},
	PayoutCompleted:  {},
	PayoutRejected:   {},
}

// CanTransitionPayout reports whether a payout request may move between
// the two statuses.
func CanTransitionPayout(from, to string) bool {
	for _, next := range payoutSuccessors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PayoutRequest is a designer-initiated withdrawal against their
// available balance, approved and processed by a manager or admin.
type PayoutRequest struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	DesignerID      uint    `gorm:"not null;index" json:"designer_id"`
	Designer        User    `gorm:"foreignKey:DesignerID" json:"-"`
	Amount          float64 `gorm:"not null" json:"amount"`
	PaymentMethod   string  `gorm:"not null" json:"payment_method"`
	PaymentDetails  string  `json:"payment_details"`
	Status          string  `gorm:"not null;default:'pending'" json:"status"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	TransactionID   *string `json:"transaction_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the PayoutRequest model
func (PayoutRequest) TableName() string {
	return "payout_requests"
}
