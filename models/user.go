package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleCustomer = "customer"
	RoleDesigner = "designer"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
	RoleDelivery = "delivery"
)

// Designer availability statuses
const (
	AvailabilityAvailable    = "available"
	AvailabilityBusy         = "busy"
	AvailabilityNotAccepting = "not_accepting"
)

// User represents an account in the system. Designer-specific profile
// fields are only populated for users with the designer role.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Auth0ID  string `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Role     string `gorm:"not null;default:'customer'" json:"role"`
	Approved bool   `gorm:"not null;default:true" json:"approved"` // gates designer/manager activity

	// Designer profile
	Bio                string  `json:"bio,omitempty"`
	Specializations    string  `json:"specializations,omitempty"` // comma-separated list
	Rating             float64 `json:"rating,omitempty"`
	AvailabilityStatus string  `gorm:"default:'available'" json:"availability_status,omitempty"`
	PriceMin           float64 `json:"price_min,omitempty"`
	PriceMax           float64 `json:"price_max,omitempty"`
	TurnaroundDays     int     `json:"turnaround_days,omitempty"`
	PortfolioS3Key     *string `json:"portfolio_s3_key,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsEligibleDesigner reports whether this user can be assigned a new
// custom-design order.
func (u *User) IsEligibleDesigner() bool {
	return u.Role == RoleDesigner && u.Approved && u.AvailabilityStatus != AvailabilityNotAccepting
}
