package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/showingsafe/showingsafe-backend/internal/models"
	"github.com/showingsafe/showingsafe-backend/internal/payments"
	"github.com/showingsafe/showingsafe-backend/internal/services"
)

const webhookSecret = "whsec_test"

func newWebhookApp(ledger *stubLedger, secret string) *fiber.App {
	reconciler := services.NewBillingReconciler(ledger, nil, secret, 0)
	handler := NewWebhookHandler(reconciler)

	app := fiber.New()
	app.Post("/api/webhooks/stripe", handler.HandleStripe)
	return app
}

func webhookRequest(t *testing.T, payload []byte, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	return req
}

func checkoutPayload(t *testing.T, sessionID string, userID uuid.UUID) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":      "evt_1",
		"type":    payments.EventCheckoutCompleted,
		"created": time.Now().Unix(),
		"data": map[string]interface{}{"object": map[string]interface{}{
			"id":   sessionID,
			"mode": "payment",
			"metadata": map[string]string{
				"userId":          userID.String(),
				"propertyAddress": "123 Main St",
				"coverageType":    models.CoverageSingle,
			},
		}},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func TestWebhookAcceptsAppliedAndDuplicate(t *testing.T) {
	ledger := newStubLedger()
	userID := uuid.New()
	ledger.users[userID] = &models.User{ID: userID, Email: "owner@example.com"}
	app := newWebhookApp(ledger, webhookSecret)

	payload := checkoutPayload(t, "sess_1", userID)
	signature := payments.SignPayload(payload, webhookSecret, time.Now())

	for i, wantOutcome := range []string{"applied", "duplicate"} {
		resp, err := app.Test(webhookRequest(t, payload, signature))
		if err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, want 200", i, resp.StatusCode)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["outcome"] != wantOutcome {
			t.Errorf("delivery %d: outcome = %v, want %s", i, body["outcome"], wantOutcome)
		}
	}
	if len(ledger.policies) != 1 {
		t.Errorf("policies = %d, want 1", len(ledger.policies))
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app := newWebhookApp(newStubLedger(), webhookSecret)
	payload := checkoutPayload(t, "sess_1", uuid.New())

	resp, err := app.Test(webhookRequest(t, payload, payments.SignPayload(payload, "whsec_other", time.Now())))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	app := newWebhookApp(newStubLedger(), webhookSecret)
	payload := checkoutPayload(t, "sess_1", uuid.New())

	resp, err := app.Test(webhookRequest(t, payload, ""))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookFailsClosedWithoutSecret(t *testing.T) {
	app := newWebhookApp(newStubLedger(), "")
	payload := checkoutPayload(t, "sess_1", uuid.New())

	resp, err := app.Test(webhookRequest(t, payload, payments.SignPayload(payload, webhookSecret, time.Now())))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestWebhookRejectsBadMetadata(t *testing.T) {
	app := newWebhookApp(newStubLedger(), webhookSecret)
	payload, err := json.Marshal(map[string]interface{}{
		"id":      "evt_1",
		"type":    payments.EventCheckoutCompleted,
		"created": time.Now().Unix(),
		"data": map[string]interface{}{"object": map[string]interface{}{
			"id":       "sess_1",
			"mode":     "payment",
			"metadata": map[string]string{},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := app.Test(webhookRequest(t, payload, payments.SignPayload(payload, webhookSecret, time.Now())))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
