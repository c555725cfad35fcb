package services

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"sort"
	"strings"

	"github.com/getsentry/sentry-go"
)

// Notifier delivers transactional notifications on state changes. Strictly
// fire-and-forget: implementations must never let a delivery failure reach
// the reconciler or claim service call paths.
type Notifier interface {
	Notify(event, recipient string, data map[string]interface{})
}

var notifySubjects = map[string]string{
	"policy.created":         "Your ShowingSafe policy is active",
	"subscription.activated": "Your ShowingSafe agent subscription is active",
	"subscription.cancelled": "Your ShowingSafe agent subscription was cancelled",
	"claim.submitted":        "We received your claim",
	"claim.approved":         "Your claim was approved",
	"claim.denied":           "Your claim was denied",
}

// EmailNotifier sends plain-text email over SMTP. Delivery runs on its own
// goroutine; failures are logged and reported to sentry, never returned.
type EmailNotifier struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(host, port, from, username, password string) *EmailNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &EmailNotifier{
		addr: host + ":" + port,
		from: from,
		auth: auth,
		send: smtp.SendMail,
	}
}

func (n *EmailNotifier) Notify(event, recipient string, data map[string]interface{}) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("notifier panic", "event", event, "panic", r)
			}
		}()

		msg := n.compose(event, recipient, data)
		if err := n.send(n.addr, n.auth, n.from, []string{recipient}, msg); err != nil {
			slog.Error("notification delivery failed", "event", event, "recipient", recipient, "error", err)
			sentry.CaptureException(fmt.Errorf("notify %s: %w", event, err))
		}
	}()
}

func (n *EmailNotifier) compose(event, recipient string, data map[string]interface{}) []byte {
	subject, ok := notifySubjects[event]
	if !ok {
		subject = "ShowingSafe update"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n", n.from, recipient, subject)
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\r\n", k, data[k])
	}
	return []byte(b.String())
}

// LogNotifier is the fallback when SMTP is not configured; it just records
// that a notification would have gone out.
type LogNotifier struct{}

func (LogNotifier) Notify(event, recipient string, data map[string]interface{}) {
	slog.Info("notification skipped (smtp not configured)", "event", event, "recipient", recipient)
}
