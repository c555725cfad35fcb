// Package store defines the persistence contract the billing reconciler and
// claim service are written against, plus its GORM/Postgres implementation.
// Keeping the contract an interface lets tests run against an in-memory fake.
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/showingsafe/showingsafe-backend/internal/models"
)

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// SubscriptionUpdate is a partial update of a user's agent subscription
// fields. Nil pointers leave the corresponding column untouched.
type SubscriptionUpdate struct {
	Status string
	Ref    *string
	Start  *time.Time
}

// Ledger is the durable storage contract required by the core. Writes are
// partitioned by owner: the billing reconciler is the sole writer of Policy
// rows and User subscription fields, the claim service the sole writer of
// Claim rows.
type Ledger interface {
	UserByID(id uuid.UUID) (*models.User, error)
	UserBySubscriptionRef(ref string) (*models.User, error)
	UpdateUserSubscription(userID uuid.UUID, upd SubscriptionUpdate) error

	PolicyByID(id uuid.UUID) (*models.Policy, error)
	PolicyBySessionRef(sessionRef string) (*models.Policy, error)
	PoliciesByUser(userID uuid.UUID) ([]models.Policy, error)
	// CreatePolicy returns ErrDuplicate when the checkout session reference
	// is already bound to a policy.
	CreatePolicy(policy *models.Policy) error

	ClaimByID(id uuid.UUID) (*models.Claim, error)
	ClaimsByUser(userID uuid.UUID) ([]models.Claim, error)
	ListClaims(status string, limit, offset int) ([]models.Claim, int64, error)
	CreateClaim(claim *models.Claim) error
	// TransitionClaim moves a still-pending claim into a terminal status.
	// Returns ErrNotFound when no pending claim with that id exists, which
	// callers use to reject decisions on already-decided claims.
	TransitionClaim(id uuid.UUID, toStatus, reason, note string) (*models.Claim, error)

	AppendAudit(entry *models.AuditLog) error
}
