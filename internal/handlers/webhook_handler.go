package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/showingsafe/showingsafe-backend/internal/dto"
	"github.com/showingsafe/showingsafe-backend/internal/services"
)

type WebhookHandler struct {
	reconciler *services.BillingReconciler
}

func NewWebhookHandler(reconciler *services.BillingReconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandleStripe maps reconciler outcomes onto gateway retry semantics: 2xx
// acknowledges (applied or duplicate), 4xx rejects permanently, 5xx asks
// for redelivery. Redelivery is always safe because every mutating path in
// the reconciler is idempotent.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	outcome, err := h.reconciler.HandleEvent(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingSecret):
			slog.Error("webhook rejected: secret not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Webhook processing unavailable",
			})
		case errors.Is(err, services.ErrBadSignature):
			slog.Warn("webhook rejected: bad signature", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid signature",
			})
		case errors.Is(err, services.ErrBadMetadata):
			slog.Warn("webhook rejected: bad metadata", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid event payload",
			})
		default:
			// Transient store failure; the gateway should redeliver.
			slog.Error("webhook processing failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: true, Message: "Temporarily unable to process event",
			})
		}
	}

	slog.Info("webhook processed", "outcome", string(outcome))
	return c.JSON(fiber.Map{"received": true, "outcome": string(outcome)})
}
