package models

import (
	"time"

	"github.com/google/uuid"
)

// Claim types.
const (
	ClaimTypeHomeownerShowing  = "homeowner_showing"
	ClaimTypeAgentSubscription = "agent_subscription"
	ClaimTypeAgentListing      = "agent_listing"
)

// Claim statuses. approved and denied are terminal.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusApproved = "approved"
	ClaimStatusDenied   = "denied"
)

// AgentSubscriptionPayoutCap is the fixed per-claim payout limit (USD) for
// claims filed against an agent subscription rather than a policy.
const AgentSubscriptionPayoutCap int64 = 1000

// Claim is a payout request tied to an incident during a showing. PolicyID
// is null only for agent_subscription claims.
type Claim struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PolicyID  *uuid.UUID `gorm:"type:uuid;index" json:"policy_id"`
	ClaimType string     `gorm:"not null;size:50" json:"claim_type"`
	Status    string     `gorm:"not null;default:'pending';size:20;index" json:"status"`

	IncidentDate time.Time `gorm:"not null" json:"incident_date"`
	DamagedItems string    `gorm:"not null;size:1000" json:"damaged_items"`
	Description  string    `gorm:"not null;type:text" json:"description"`
	ProofURL     string    `gorm:"size:1000" json:"proof_url,omitempty"`

	ShowingConfirmationNumber string `gorm:"size:255" json:"showing_confirmation_number,omitempty"`

	// agent_subscription claims carry the third-party homeowner's details
	// since no policy links back to the damaged property.
	AtFaultParty     string `gorm:"size:255" json:"at_fault_party,omitempty"`
	HomeownerName    string `gorm:"size:255" json:"homeowner_name,omitempty"`
	HomeownerPhone   string `gorm:"size:50" json:"homeowner_phone,omitempty"`
	HomeownerEmail   string `gorm:"size:255" json:"homeowner_email,omitempty"`
	HomeownerAddress string `gorm:"size:500" json:"homeowner_address,omitempty"`
	ShowingProofURL  string `gorm:"size:1000" json:"showing_proof_url,omitempty"`

	MaxPayoutAmount *int64 `json:"max_payout_amount,omitempty"`

	DeniedReason string `gorm:"size:1000" json:"denied_reason,omitempty"`
	AdminNote    string `gorm:"size:1000" json:"admin_note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}

// IsDecided reports whether the claim has reached a terminal status.
func (c *Claim) IsDecided() bool {
	return c.Status == ClaimStatusApproved || c.Status == ClaimStatusDenied
}
