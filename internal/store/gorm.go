package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/showingsafe/showingsafe-backend/internal/models"
	"gorm.io/gorm"
)

// GormLedger implements Ledger on a GORM/Postgres handle. It relies on the
// connection being opened with TranslateError so unique-constraint
// violations surface as gorm.ErrDuplicatedKey.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) UserByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := l.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "load user")
	}
	return &user, nil
}

func (l *GormLedger) UserBySubscriptionRef(ref string) (*models.User, error) {
	var user models.User
	if err := l.db.First(&user, "agent_subscription_id = ?", ref).Error; err != nil {
		return nil, translate(err, "load user by subscription ref")
	}
	return &user, nil
}

func (l *GormLedger) UpdateUserSubscription(userID uuid.UUID, upd SubscriptionUpdate) error {
	fields := map[string]interface{}{
		"agent_subscription_status": upd.Status,
	}
	if upd.Ref != nil {
		fields["agent_subscription_id"] = *upd.Ref
	}
	if upd.Start != nil {
		fields["agent_subscription_start"] = *upd.Start
	}

	result := l.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if result.Error != nil {
		return translate(result.Error, "update user subscription")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *GormLedger) PolicyByID(id uuid.UUID) (*models.Policy, error) {
	var policy models.Policy
	if err := l.db.First(&policy, "id = ?", id).Error; err != nil {
		return nil, translate(err, "load policy")
	}
	return &policy, nil
}

func (l *GormLedger) PolicyBySessionRef(sessionRef string) (*models.Policy, error) {
	var policy models.Policy
	if err := l.db.First(&policy, "checkout_session_id = ?", sessionRef).Error; err != nil {
		return nil, translate(err, "load policy by session ref")
	}
	return &policy, nil
}

func (l *GormLedger) PoliciesByUser(userID uuid.UUID) ([]models.Policy, error) {
	var policies []models.Policy
	if err := l.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&policies).Error; err != nil {
		return nil, translate(err, "list policies")
	}
	return policies, nil
}

func (l *GormLedger) CreatePolicy(policy *models.Policy) error {
	if err := l.db.Create(policy).Error; err != nil {
		return translate(err, "create policy")
	}
	return nil
}

func (l *GormLedger) ClaimByID(id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	if err := l.db.First(&claim, "id = ?", id).Error; err != nil {
		return nil, translate(err, "load claim")
	}
	return &claim, nil
}

func (l *GormLedger) ClaimsByUser(userID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	if err := l.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&claims).Error; err != nil {
		return nil, translate(err, "list claims")
	}
	return claims, nil
}

func (l *GormLedger) ListClaims(status string, limit, offset int) ([]models.Claim, int64, error) {
	var claims []models.Claim
	var total int64

	query := l.db.Model(&models.Claim{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count claims")
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&claims).Error; err != nil {
		return nil, 0, translate(err, "list claims")
	}
	return claims, total, nil
}

func (l *GormLedger) CreateClaim(claim *models.Claim) error {
	if err := l.db.Create(claim).Error; err != nil {
		return translate(err, "create claim")
	}
	return nil
}

func (l *GormLedger) TransitionClaim(id uuid.UUID, toStatus, reason, note string) (*models.Claim, error) {
	// The status guard in the WHERE clause is what makes terminal states
	// immutable under concurrent decisions.
	result := l.db.Model(&models.Claim{}).
		Where("id = ? AND status = ?", id, models.ClaimStatusPending).
		Updates(map[string]interface{}{
			"status":        toStatus,
			"denied_reason": reason,
			"admin_note":    note,
		})
	if result.Error != nil {
		return nil, translate(result.Error, "transition claim")
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return l.ClaimByID(id)
}

func (l *GormLedger) AppendAudit(entry *models.AuditLog) error {
	if err := l.db.Create(entry).Error; err != nil {
		return translate(err, "append audit log")
	}
	return nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
