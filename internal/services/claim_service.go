package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/showingsafe/showingsafe-backend/internal/dto"
	"github.com/showingsafe/showingsafe-backend/internal/models"
	"github.com/showingsafe/showingsafe-backend/internal/store"
	"gorm.io/datatypes"
)

var (
	// ErrPolicyNotFound covers both "no such policy" and "not your policy"
	// so callers cannot probe for other users' policy ids.
	ErrPolicyNotFound = errors.New("policy not found")
	// ErrForbidden means the caller lacks the role or subscription the
	// claim type requires.
	ErrForbidden     = errors.New("not eligible for this claim type")
	ErrClaimNotFound = errors.New("claim not found")
	// ErrAlreadyDecided rejects decisions on claims in a terminal status.
	ErrAlreadyDecided = errors.New("claim already decided")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Field + " " + e.Reason
	}
	return e.Field + " is required"
}

func missingField(field string) error {
	return &ValidationError{Field: field}
}

// Claim decisions.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

// ClaimService gates claim creation by per-type eligibility rules and owns
// the pending -> approved/denied state machine.
type ClaimService struct {
	ledger   store.Ledger
	notifier Notifier
}

func NewClaimService(ledger store.Ledger, notifier Notifier) *ClaimService {
	return &ClaimService{ledger: ledger, notifier: notifier}
}

// Submit validates and creates a claim for the calling user. Every claim
// starts pending; the single insert is the only side effect.
func (s *ClaimService) Submit(userID uuid.UUID, req *dto.SubmitClaimRequest) (*models.Claim, error) {
	claimType := req.ClaimType
	if claimType == "" {
		claimType = models.ClaimTypeHomeownerShowing
	}

	switch claimType {
	case models.ClaimTypeHomeownerShowing:
		return s.submitHomeownerShowing(userID, req)
	case models.ClaimTypeAgentSubscription:
		return s.submitAgentSubscription(userID, req)
	case models.ClaimTypeAgentListing:
		return s.submitAgentListing(userID, req)
	default:
		return nil, &ValidationError{Field: "claim_type", Reason: "must be homeowner_showing, agent_subscription, or agent_listing"}
	}
}

func (s *ClaimService) submitHomeownerShowing(userID uuid.UUID, req *dto.SubmitClaimRequest) (*models.Claim, error) {
	incidentDate, err := s.validateShowingFields(req)
	if err != nil {
		return nil, err
	}

	policy, err := s.ownedPolicy(userID, req.PolicyID)
	if err != nil {
		return nil, err
	}

	claim := &models.Claim{
		ID:                        uuid.New(),
		UserID:                    userID,
		PolicyID:                  &policy.ID,
		ClaimType:                 models.ClaimTypeHomeownerShowing,
		Status:                    models.ClaimStatusPending,
		IncidentDate:              incidentDate,
		DamagedItems:              req.DamagedItems,
		Description:               req.Description,
		ProofURL:                  req.ProofURL,
		ShowingConfirmationNumber: req.ShowingConfirmationNumber,
	}
	return s.create(claim)
}

func (s *ClaimService) submitAgentSubscription(userID uuid.UUID, req *dto.SubmitClaimRequest) (*models.Claim, error) {
	incidentDate, err := s.validateIncidentFields(req)
	if err != nil {
		return nil, err
	}
	for field, value := range map[string]string{
		"at_fault_party":    req.AtFaultParty,
		"homeowner_name":    req.HomeownerName,
		"homeowner_phone":   req.HomeownerPhone,
		"homeowner_email":   req.HomeownerEmail,
		"homeowner_address": req.HomeownerAddress,
		"showing_proof_url": req.ShowingProofURL,
	} {
		if value == "" {
			return nil, missingField(field)
		}
	}

	user, err := s.ledger.UserByID(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !user.HasActiveAgentSubscription() {
		return nil, ErrForbidden
	}

	payoutCap := models.AgentSubscriptionPayoutCap
	claim := &models.Claim{
		ID:               uuid.New(),
		UserID:           userID,
		ClaimType:        models.ClaimTypeAgentSubscription,
		Status:           models.ClaimStatusPending,
		IncidentDate:     incidentDate,
		DamagedItems:     req.DamagedItems,
		Description:      req.Description,
		ProofURL:         req.ProofURL,
		AtFaultParty:     req.AtFaultParty,
		HomeownerName:    req.HomeownerName,
		HomeownerPhone:   req.HomeownerPhone,
		HomeownerEmail:   req.HomeownerEmail,
		HomeownerAddress: req.HomeownerAddress,
		ShowingProofURL:  req.ShowingProofURL,
		MaxPayoutAmount:  &payoutCap,
	}
	return s.create(claim)
}

func (s *ClaimService) submitAgentListing(userID uuid.UUID, req *dto.SubmitClaimRequest) (*models.Claim, error) {
	incidentDate, err := s.validateShowingFields(req)
	if err != nil {
		return nil, err
	}

	user, err := s.ledger.UserByID(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if user.Role != models.RoleAgent {
		return nil, ErrForbidden
	}

	policy, err := s.ownedPolicy(userID, req.PolicyID)
	if err != nil {
		return nil, err
	}

	claim := &models.Claim{
		ID:                        uuid.New(),
		UserID:                    userID,
		PolicyID:                  &policy.ID,
		ClaimType:                 models.ClaimTypeAgentListing,
		Status:                    models.ClaimStatusPending,
		IncidentDate:              incidentDate,
		DamagedItems:              req.DamagedItems,
		Description:               req.Description,
		ProofURL:                  req.ProofURL,
		ShowingConfirmationNumber: req.ShowingConfirmationNumber,
	}
	return s.create(claim)
}

// Decide applies an admin decision to a pending claim. The status
// transition commits before the audit append; a failed audit write is
// logged and swallowed rather than rolling back the decision.
func (s *ClaimService) Decide(adminID, claimID uuid.UUID, req *dto.DecideClaimRequest) (*models.Claim, error) {
	if req.Decision != DecisionApprove && req.Decision != DecisionDeny {
		return nil, &ValidationError{Field: "decision", Reason: "must be approve or deny"}
	}
	if req.Decision == DecisionDeny && req.Reason == "" {
		return nil, missingField("reason")
	}

	claim, err := s.ledger.ClaimByID(claimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	if claim.IsDecided() {
		return nil, ErrAlreadyDecided
	}

	toStatus := models.ClaimStatusApproved
	reason := ""
	if req.Decision == DecisionDeny {
		toStatus = models.ClaimStatusDenied
		reason = req.Reason
	}

	updated, err := s.ledger.TransitionClaim(claimID, toStatus, reason, req.AdminNote)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent decision won the conditional update.
			return nil, ErrAlreadyDecided
		}
		return nil, err
	}

	s.appendDecisionAudit(adminID, updated, req)
	s.notifyDecision(updated)
	return updated, nil
}

// Get returns a claim visible to the given user. Admins see every claim.
func (s *ClaimService) Get(userID uuid.UUID, isAdmin bool, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.ledger.ClaimByID(claimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	if !isAdmin && claim.UserID != userID {
		return nil, ErrClaimNotFound
	}
	return claim, nil
}

func (s *ClaimService) ListForUser(userID uuid.UUID) ([]models.Claim, error) {
	return s.ledger.ClaimsByUser(userID)
}

func (s *ClaimService) ListAll(status string, limit, offset int) ([]models.Claim, int64, error) {
	return s.ledger.ListClaims(status, limit, offset)
}

func (s *ClaimService) create(claim *models.Claim) (*models.Claim, error) {
	if err := s.ledger.CreateClaim(claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	if user, err := s.ledger.UserByID(claim.UserID); err == nil {
		s.notify("claim.submitted", user.Email, map[string]interface{}{
			"claim_id":   claim.ID.String(),
			"claim_type": claim.ClaimType,
		})
	}
	return claim, nil
}

// validateShowingFields checks the field set shared by policy-bound claims.
func (s *ClaimService) validateShowingFields(req *dto.SubmitClaimRequest) (time.Time, error) {
	if req.PolicyID == "" {
		return time.Time{}, missingField("policy_id")
	}
	if req.ShowingConfirmationNumber == "" {
		return time.Time{}, missingField("showing_confirmation_number")
	}
	return s.validateIncidentFields(req)
}

func (s *ClaimService) validateIncidentFields(req *dto.SubmitClaimRequest) (time.Time, error) {
	if req.IncidentDate == "" {
		return time.Time{}, missingField("incident_date")
	}
	if req.DamagedItems == "" {
		return time.Time{}, missingField("damaged_items")
	}
	if req.Description == "" {
		return time.Time{}, missingField("description")
	}
	incidentDate, err := time.Parse("2006-01-02", req.IncidentDate)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "incident_date", Reason: "must be formatted YYYY-MM-DD"}
	}
	return incidentDate, nil
}

// ownedPolicy resolves a policy id and enforces ownership. Malformed ids,
// missing policies, and other users' policies all collapse into
// ErrPolicyNotFound.
func (s *ClaimService) ownedPolicy(userID uuid.UUID, rawPolicyID string) (*models.Policy, error) {
	policyID, err := uuid.Parse(rawPolicyID)
	if err != nil {
		return nil, ErrPolicyNotFound
	}
	policy, err := s.ledger.PolicyByID(policyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	if policy.UserID != userID {
		return nil, ErrPolicyNotFound
	}
	return policy, nil
}

func (s *ClaimService) appendDecisionAudit(adminID uuid.UUID, claim *models.Claim, req *dto.DecideClaimRequest) {
	detail, _ := json.Marshal(map[string]string{
		"decision":   req.Decision,
		"reason":     req.Reason,
		"admin_note": req.AdminNote,
	})
	entry := &models.AuditLog{
		ID:           uuid.New(),
		ActorID:      adminID,
		Action:       "claim." + req.Decision,
		ResourceType: "claim",
		ResourceID:   claim.ID.String(),
		Detail:       datatypes.JSON(detail),
	}
	if err := s.ledger.AppendAudit(entry); err != nil {
		// The decision has already committed; losing the audit row is
		// degraded but survivable.
		slog.Error("audit log append failed", "claim_id", claim.ID, "action", entry.Action, "error", err)
	}
}

func (s *ClaimService) notifyDecision(claim *models.Claim) {
	user, err := s.ledger.UserByID(claim.UserID)
	if err != nil {
		return
	}
	event := "claim.approved"
	data := map[string]interface{}{"claim_id": claim.ID.String()}
	if claim.Status == models.ClaimStatusDenied {
		event = "claim.denied"
		data["reason"] = claim.DeniedReason
	}
	s.notify(event, user.Email, data)
}

func (s *ClaimService) notify(event, recipient string, data map[string]interface{}) {
	if s.notifier == nil || recipient == "" {
		return
	}
	s.notifier.Notify(event, recipient, data)
}
