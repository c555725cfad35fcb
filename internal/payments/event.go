// Package payments adapts the payment gateway's webhook wire format:
// signature verification plus typed access to the event kinds the backend
// consumes. Interpretation of events lives in the billing reconciler.
package payments

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds the reconciler reacts to. Anything else is acknowledged
// without effect so new gateway event types never break delivery.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Checkout session modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Event is one decoded gateway notification.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"-"`
}

type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the object payload of a checkout.session.completed
// event.
type CheckoutSession struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	Subscription  string            `json:"subscription"`
	PaymentIntent string            `json:"payment_intent"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

// Subscription is the object payload of a customer.subscription.* event.
type Subscription struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Created int64  `json:"created"`
}

// ParseEvent decodes a verified webhook payload into an Event.
func ParseEvent(payload []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode billing event: %w", err)
	}
	return &Event{
		ID:      env.ID,
		Type:    env.Type,
		Created: env.Created,
		Data:    env.Data.Object,
	}, nil
}

// CreatedAt converts the gateway's unix timestamp to time.Time.
func (e *Event) CreatedAt() time.Time {
	return time.Unix(e.Created, 0)
}

// CheckoutSession decodes the event's data object as a checkout session.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(e.Data, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &session, nil
}

// Subscription decodes the event's data object as a subscription.
func (e *Event) Subscription() (*Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(e.Data, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &sub, nil
}
