package handlers

import (
	"github.com/google/uuid"
	"github.com/showingsafe/showingsafe-backend/internal/models"
	"github.com/showingsafe/showingsafe-backend/internal/store"
)

// stubLedger is a minimal in-memory store.Ledger for handler tests.
type stubLedger struct {
	users    map[uuid.UUID]*models.User
	policies map[uuid.UUID]*models.Policy
	claims   map[uuid.UUID]*models.Claim
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		users:    make(map[uuid.UUID]*models.User),
		policies: make(map[uuid.UUID]*models.Policy),
		claims:   make(map[uuid.UUID]*models.Claim),
	}
}

func (l *stubLedger) UserByID(id uuid.UUID) (*models.User, error) {
	if u, ok := l.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (l *stubLedger) UserBySubscriptionRef(ref string) (*models.User, error) {
	for _, u := range l.users {
		if u.AgentSubscriptionID != nil && *u.AgentSubscriptionID == ref {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (l *stubLedger) UpdateUserSubscription(userID uuid.UUID, upd store.SubscriptionUpdate) error {
	u, ok := l.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.AgentSubscriptionStatus = upd.Status
	if upd.Ref != nil {
		u.AgentSubscriptionID = upd.Ref
	}
	if upd.Start != nil {
		u.AgentSubscriptionStart = upd.Start
	}
	return nil
}

func (l *stubLedger) PolicyByID(id uuid.UUID) (*models.Policy, error) {
	if p, ok := l.policies[id]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (l *stubLedger) PolicyBySessionRef(sessionRef string) (*models.Policy, error) {
	for _, p := range l.policies {
		if p.CheckoutSessionID == sessionRef {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (l *stubLedger) PoliciesByUser(userID uuid.UUID) ([]models.Policy, error) {
	var out []models.Policy
	for _, p := range l.policies {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (l *stubLedger) CreatePolicy(policy *models.Policy) error {
	for _, p := range l.policies {
		if p.CheckoutSessionID == policy.CheckoutSessionID {
			return store.ErrDuplicate
		}
	}
	l.policies[policy.ID] = policy
	return nil
}

func (l *stubLedger) ClaimByID(id uuid.UUID) (*models.Claim, error) {
	if c, ok := l.claims[id]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (l *stubLedger) ClaimsByUser(userID uuid.UUID) ([]models.Claim, error) {
	var out []models.Claim
	for _, c := range l.claims {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (l *stubLedger) ListClaims(status string, limit, offset int) ([]models.Claim, int64, error) {
	var out []models.Claim
	for _, c := range l.claims {
		if status == "" || c.Status == status {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (l *stubLedger) CreateClaim(claim *models.Claim) error {
	l.claims[claim.ID] = claim
	return nil
}

func (l *stubLedger) TransitionClaim(id uuid.UUID, toStatus, reason, note string) (*models.Claim, error) {
	c, ok := l.claims[id]
	if !ok || c.Status != models.ClaimStatusPending {
		return nil, store.ErrNotFound
	}
	c.Status = toStatus
	c.DeniedReason = reason
	c.AdminNote = note
	return c, nil
}

func (l *stubLedger) AppendAudit(entry *models.AuditLog) error {
	return nil
}
