package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleHomeowner = "homeowner"
	RoleAgent     = "agent"
	RoleAdmin     = "admin"
)

// Agent subscription statuses. Mutated only by the billing reconciler.
const (
	SubscriptionNone      = "none"
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"size:20;default:'homeowner'" json:"role"`
	FullName     string    `gorm:"size:255" json:"full_name"`
	AuthProvider string    `gorm:"size:50;default:'email'" json:"-"`

	// Recurring agent coverage, bound to one external subscription at a time.
	AgentSubscriptionStatus string     `gorm:"size:20;not null;default:'none'" json:"agent_subscription_status"`
	AgentSubscriptionID     *string    `gorm:"size:255;uniqueIndex" json:"-"`
	AgentSubscriptionStart  *time.Time `json:"agent_subscription_start,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasActiveAgentSubscription reports whether the user can file
// agent_subscription claims.
func (u *User) HasActiveAgentSubscription() bool {
	return u.Role == RoleAgent && u.AgentSubscriptionStatus == SubscriptionActive
}
