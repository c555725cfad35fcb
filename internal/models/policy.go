package models

import (
	"time"

	"github.com/google/uuid"
)

// Coverage types.
const (
	CoverageSingle       = "single"
	CoverageSubscription = "subscription"
)

// Policy statuses. "expired" is derived at read time, never stored.
const (
	PolicyStatusPending = "pending"
	PolicyStatusActive  = "active"
	PolicyStatusExpired = "expired"
)

// PolicyTerm is how long a policy stays claimable after purchase.
const PolicyTerm = 90 * 24 * time.Hour

// Policy is purchased coverage for one property. Created only by the
// billing reconciler from a verified checkout event; the checkout session
// reference doubles as the idempotency key.
type Policy struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	PropertyAddress string    `gorm:"not null;size:500" json:"property_address"`
	CoverageType    string    `gorm:"not null;size:100" json:"coverage_type"`
	Status          string    `gorm:"not null;default:'pending';size:20" json:"status"`

	CheckoutSessionID string `gorm:"not null;size:255;uniqueIndex" json:"-"`
	PaymentIntentID   string `gorm:"size:255" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}

// IsExpired reports whether the policy term has lapsed at the given time.
func (p *Policy) IsExpired(now time.Time) bool {
	return now.After(p.CreatedAt.Add(PolicyTerm))
}

// EffectiveStatus overlays the time-derived expiry on the stored status.
func (p *Policy) EffectiveStatus(now time.Time) string {
	if p.Status == PolicyStatusActive && p.IsExpired(now) {
		return PolicyStatusExpired
	}
	return p.Status
}
