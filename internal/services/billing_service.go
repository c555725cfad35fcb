package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/showingsafe/showingsafe-backend/internal/models"
	"github.com/showingsafe/showingsafe-backend/internal/payments"
	"github.com/showingsafe/showingsafe-backend/internal/store"
)

// Outcome is the reconciler's acknowledgement of one webhook delivery. The
// transport layer maps it, together with the returned error, onto a response
// the gateway understands.
type Outcome string

const (
	// OutcomeApplied: the event mutated state (or was a recognized no-op).
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate: the event was already applied; acknowledged again.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeRejected: the event is permanently unprocessable.
	OutcomeRejected Outcome = "rejected"
)

var (
	// ErrMissingSecret means the webhook shared secret is not configured.
	// Operator error; deliveries cannot be verified until it is fixed.
	ErrMissingSecret = errors.New("billing webhook secret not configured")
	// ErrBadSignature marks a delivery whose signature did not verify.
	ErrBadSignature = errors.New("billing event signature rejected")
	// ErrBadMetadata marks a delivery whose payload is malformed or whose
	// metadata fails validation. Never retried.
	ErrBadMetadata = errors.New("billing event metadata invalid")
)

// Metadata length caps for property-purchase checkout events.
const (
	maxMetaUserID   = 255
	maxMetaAddress  = 500
	maxMetaCoverage = 100
)

// BillingReconciler converts gateway webhook events into idempotent
// mutations on policies and agent subscription state. It is the sole writer
// of both. Safe under at-least-once delivery: every mutating path either
// dedups on a unique key or sets fields idempotently by value.
type BillingReconciler struct {
	ledger    store.Ledger
	notifier  Notifier
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewBillingReconciler(ledger store.Ledger, notifier Notifier, secret string, tolerance time.Duration) *BillingReconciler {
	if tolerance <= 0 {
		tolerance = payments.DefaultTolerance
	}
	return &BillingReconciler{
		ledger:    ledger,
		notifier:  notifier,
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// HandleEvent verifies and applies one webhook delivery. A non-nil error
// that is not ErrMissingSecret/ErrBadSignature/ErrBadMetadata is a transient
// store failure: the transport should ask the gateway to redeliver.
func (r *BillingReconciler) HandleEvent(payload []byte, sigHeader string) (Outcome, error) {
	if r.secret == "" {
		return OutcomeRejected, ErrMissingSecret
	}
	if err := payments.VerifySignature(payload, sigHeader, r.secret, r.tolerance, r.now()); err != nil {
		return OutcomeRejected, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	event, err := payments.ParseEvent(payload)
	if err != nil {
		return OutcomeRejected, fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}

	switch event.Type {
	case payments.EventCheckoutCompleted:
		return r.applyCheckoutCompleted(event)
	case payments.EventSubscriptionCreated:
		return r.applySubscriptionCreated(event)
	case payments.EventSubscriptionUpdated:
		return r.applySubscriptionUpdated(event)
	case payments.EventSubscriptionDeleted:
		return r.applySubscriptionDeleted(event)
	default:
		slog.Info("ignoring billing event", "event_id", event.ID, "type", event.Type)
		return OutcomeApplied, nil
	}
}

func (r *BillingReconciler) applyCheckoutCompleted(event *payments.Event) (Outcome, error) {
	session, err := event.CheckoutSession()
	if err != nil {
		return OutcomeRejected, fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}
	if session.Mode == payments.ModeSubscription {
		return r.applySubscriptionPurchase(session)
	}
	return r.applyPolicyPurchase(session)
}

// applySubscriptionPurchase binds the external subscription to the
// purchasing user and activates it. Idempotent by value: reapplying the
// same event sets the same fields.
func (r *BillingReconciler) applySubscriptionPurchase(session *payments.CheckoutSession) (Outcome, error) {
	rawUserID := session.Metadata["userId"]
	if rawUserID == "" || session.Subscription == "" {
		return OutcomeRejected, fmt.Errorf("%w: subscription checkout %q missing userId or subscription ref", ErrBadMetadata, session.ID)
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return OutcomeRejected, fmt.Errorf("%w: subscription checkout %q has malformed userId", ErrBadMetadata, session.ID)
	}

	user, err := r.ledger.UserByID(userID)
	if errors.Is(err, store.ErrNotFound) {
		return OutcomeRejected, fmt.Errorf("%w: subscription checkout %q references unknown user", ErrBadMetadata, session.ID)
	}
	if err != nil {
		return OutcomeRejected, err
	}

	ref := session.Subscription
	start := r.now()
	if err := r.ledger.UpdateUserSubscription(userID, store.SubscriptionUpdate{
		Status: models.SubscriptionActive,
		Ref:    &ref,
		Start:  &start,
	}); err != nil && !errors.Is(err, store.ErrNotFound) {
		return OutcomeRejected, err
	}

	r.notify("subscription.activated", user.Email, map[string]interface{}{
		"subscription_ref": ref,
	})
	return OutcomeApplied, nil
}

// applyPolicyPurchase creates the policy for a property-coverage checkout.
// The existence pre-check plus the unique constraint on the session
// reference together make redelivery and concurrent duplicates harmless.
func (r *BillingReconciler) applyPolicyPurchase(session *payments.CheckoutSession) (Outcome, error) {
	if session.ID == "" {
		return OutcomeRejected, fmt.Errorf("%w: checkout event missing session id", ErrBadMetadata)
	}
	rawUserID := session.Metadata["userId"]
	address := session.Metadata["propertyAddress"]
	coverage := session.Metadata["coverageType"]
	switch {
	case rawUserID == "" || len(rawUserID) > maxMetaUserID:
		return OutcomeRejected, fmt.Errorf("%w: checkout %q has invalid userId", ErrBadMetadata, session.ID)
	case address == "" || len(address) > maxMetaAddress:
		return OutcomeRejected, fmt.Errorf("%w: checkout %q has invalid propertyAddress", ErrBadMetadata, session.ID)
	case coverage == "" || len(coverage) > maxMetaCoverage:
		return OutcomeRejected, fmt.Errorf("%w: checkout %q has invalid coverageType", ErrBadMetadata, session.ID)
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return OutcomeRejected, fmt.Errorf("%w: checkout %q has malformed userId", ErrBadMetadata, session.ID)
	}

	if _, err := r.ledger.PolicyBySessionRef(session.ID); err == nil {
		return OutcomeDuplicate, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return OutcomeRejected, err
	}

	policy := &models.Policy{
		ID:                uuid.New(),
		UserID:            userID,
		PropertyAddress:   address,
		CoverageType:      coverage,
		Status:            models.PolicyStatusActive,
		CheckoutSessionID: session.ID,
		PaymentIntentID:   session.PaymentIntent,
	}
	if err := r.ledger.CreatePolicy(policy); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Concurrent redelivery lost the insert race; same effect.
			return OutcomeDuplicate, nil
		}
		return OutcomeRejected, err
	}

	if user, err := r.ledger.UserByID(userID); err == nil {
		r.notify("policy.created", user.Email, map[string]interface{}{
			"policy_id":        policy.ID.String(),
			"property_address": policy.PropertyAddress,
			"coverage_type":    policy.CoverageType,
		})
	}
	return OutcomeApplied, nil
}

// applySubscriptionCreated activates a subscription already bound to a
// user. If the binding has not happened yet (checkout event still in
// flight), this is a no-op; the checkout handler will activate it.
func (r *BillingReconciler) applySubscriptionCreated(event *payments.Event) (Outcome, error) {
	sub, err := event.Subscription()
	if err != nil {
		return OutcomeRejected, fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}

	user, err := r.ledger.UserBySubscriptionRef(sub.ID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("subscription created for unbound ref", "subscription_ref", sub.ID)
		return OutcomeApplied, nil
	}
	if err != nil {
		return OutcomeRejected, err
	}

	start := time.Unix(sub.Created, 0)
	if err := r.ledger.UpdateUserSubscription(user.ID, store.SubscriptionUpdate{
		Status: models.SubscriptionActive,
		Start:  &start,
	}); err != nil && !errors.Is(err, store.ErrNotFound) {
		return OutcomeRejected, err
	}
	return OutcomeApplied, nil
}

func (r *BillingReconciler) applySubscriptionUpdated(event *payments.Event) (Outcome, error) {
	sub, err := event.Subscription()
	if err != nil {
		return OutcomeRejected, fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}

	user, err := r.ledger.UserBySubscriptionRef(sub.ID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("subscription update for unbound ref", "subscription_ref", sub.ID)
		return OutcomeApplied, nil
	}
	if err != nil {
		return OutcomeRejected, err
	}

	status := mapSubscriptionStatus(sub.Status)
	if err := r.ledger.UpdateUserSubscription(user.ID, store.SubscriptionUpdate{Status: status}); err != nil && !errors.Is(err, store.ErrNotFound) {
		return OutcomeRejected, err
	}

	if status == models.SubscriptionCancelled {
		r.notify("subscription.cancelled", user.Email, map[string]interface{}{
			"subscription_ref": sub.ID,
		})
	}
	return OutcomeApplied, nil
}

func (r *BillingReconciler) applySubscriptionDeleted(event *payments.Event) (Outcome, error) {
	sub, err := event.Subscription()
	if err != nil {
		return OutcomeRejected, fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}

	user, err := r.ledger.UserBySubscriptionRef(sub.ID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("subscription delete for unbound ref", "subscription_ref", sub.ID)
		return OutcomeApplied, nil
	}
	if err != nil {
		return OutcomeRejected, err
	}

	if err := r.ledger.UpdateUserSubscription(user.ID, store.SubscriptionUpdate{Status: models.SubscriptionCancelled}); err != nil && !errors.Is(err, store.ErrNotFound) {
		return OutcomeRejected, err
	}

	r.notify("subscription.cancelled", user.Email, map[string]interface{}{
		"subscription_ref": sub.ID,
	})
	return OutcomeApplied, nil
}

// mapSubscriptionStatus collapses gateway statuses to the local vocabulary:
// only canceled/incomplete_expired count as cancelled, everything else
// (trialing, past_due, ...) stays active.
func mapSubscriptionStatus(gatewayStatus string) string {
	switch gatewayStatus {
	case "canceled", "incomplete_expired":
		return models.SubscriptionCancelled
	default:
		return models.SubscriptionActive
	}
}

func (r *BillingReconciler) notify(event, recipient string, data map[string]interface{}) {
	if r.notifier == nil || recipient == "" {
		return
	}
	r.notifier.Notify(event, recipient, data)
}
