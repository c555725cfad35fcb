package services

import (
	"sync"

	"github.com/google/uuid"
	"github.com/showingsafe/showingsafe-backend/internal/models"
	"github.com/showingsafe/showingsafe-backend/internal/store"
)

// fakeLedger is an in-memory store.Ledger. Error fields, when set, override
// the corresponding operation to simulate outages and insert races.
type fakeLedger struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	policies map[uuid.UUID]*models.Policy
	claims   map[uuid.UUID]*models.Claim
	audits   []*models.AuditLog

	lookupErr       error
	createPolicyErr error
	auditErr        error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		users:    make(map[uuid.UUID]*models.User),
		policies: make(map[uuid.UUID]*models.Policy),
		claims:   make(map[uuid.UUID]*models.Claim),
	}
}

func (l *fakeLedger) addUser(u *models.User) *models.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *u
	l.users[u.ID] = &copied
	return &copied
}

func (l *fakeLedger) addPolicy(p *models.Policy) *models.Policy {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *p
	l.policies[p.ID] = &copied
	return &copied
}

func (l *fakeLedger) UserByID(id uuid.UUID) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookupErr != nil {
		return nil, l.lookupErr
	}
	user, ok := l.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (l *fakeLedger) UserBySubscriptionRef(ref string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookupErr != nil {
		return nil, l.lookupErr
	}
	for _, user := range l.users {
		if user.AgentSubscriptionID != nil && *user.AgentSubscriptionID == ref {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (l *fakeLedger) UpdateUserSubscription(userID uuid.UUID, upd store.SubscriptionUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	user, ok := l.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.AgentSubscriptionStatus = upd.Status
	if upd.Ref != nil {
		ref := *upd.Ref
		user.AgentSubscriptionID = &ref
	}
	if upd.Start != nil {
		start := *upd.Start
		user.AgentSubscriptionStart = &start
	}
	return nil
}

func (l *fakeLedger) PolicyByID(id uuid.UUID) (*models.Policy, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookupErr != nil {
		return nil, l.lookupErr
	}
	policy, ok := l.policies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *policy
	return &copied, nil
}

func (l *fakeLedger) PolicyBySessionRef(sessionRef string) (*models.Policy, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookupErr != nil {
		return nil, l.lookupErr
	}
	for _, policy := range l.policies {
		if policy.CheckoutSessionID == sessionRef {
			copied := *policy
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (l *fakeLedger) PoliciesByUser(userID uuid.UUID) ([]models.Policy, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Policy
	for _, policy := range l.policies {
		if policy.UserID == userID {
			out = append(out, *policy)
		}
	}
	return out, nil
}

func (l *fakeLedger) CreatePolicy(policy *models.Policy) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createPolicyErr != nil {
		return l.createPolicyErr
	}
	for _, existing := range l.policies {
		if existing.CheckoutSessionID == policy.CheckoutSessionID {
			return store.ErrDuplicate
		}
	}
	copied := *policy
	l.policies[policy.ID] = &copied
	return nil
}

func (l *fakeLedger) ClaimByID(id uuid.UUID) (*models.Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookupErr != nil {
		return nil, l.lookupErr
	}
	claim, ok := l.claims[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *claim
	return &copied, nil
}

func (l *fakeLedger) ClaimsByUser(userID uuid.UUID) ([]models.Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Claim
	for _, claim := range l.claims {
		if claim.UserID == userID {
			out = append(out, *claim)
		}
	}
	return out, nil
}

func (l *fakeLedger) ListClaims(status string, limit, offset int) ([]models.Claim, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Claim
	for _, claim := range l.claims {
		if status == "" || claim.Status == status {
			out = append(out, *claim)
		}
	}
	return out, int64(len(out)), nil
}

func (l *fakeLedger) CreateClaim(claim *models.Claim) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *claim
	l.claims[claim.ID] = &copied
	return nil
}

func (l *fakeLedger) TransitionClaim(id uuid.UUID, toStatus, reason, note string) (*models.Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	claim, ok := l.claims[id]
	if !ok || claim.Status != models.ClaimStatusPending {
		return nil, store.ErrNotFound
	}
	claim.Status = toStatus
	claim.DeniedReason = reason
	claim.AdminNote = note
	copied := *claim
	return &copied, nil
}

func (l *fakeLedger) AppendAudit(entry *models.AuditLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.auditErr != nil {
		return l.auditErr
	}
	l.audits = append(l.audits, entry)
	return nil
}

// spyNotifier records notifications synchronously.
type spyNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *spyNotifier) Notify(event, recipient string, data map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *spyNotifier) seen(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}
