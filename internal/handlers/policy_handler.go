package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/showingsafe/showingsafe-backend/internal/dto"
	"github.com/showingsafe/showingsafe-backend/internal/middleware"
	"github.com/showingsafe/showingsafe-backend/internal/models"
	"github.com/showingsafe/showingsafe-backend/internal/store"
)

type PolicyHandler struct {
	ledger store.Ledger
}

func NewPolicyHandler(ledger store.Ledger) *PolicyHandler {
	return &PolicyHandler{ledger: ledger}
}

func (h *PolicyHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	policies, err := h.ledger.PoliciesByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch policies",
		})
	}

	now := time.Now()
	out := make([]dto.PolicyResponse, len(policies))
	for i := range policies {
		out[i] = policyResponse(&policies[i], now)
	}
	return c.JSON(fiber.Map{"policies": out})
}

func (h *PolicyHandler) Get(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	policyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid policy ID",
		})
	}

	policy, err := h.ledger.PolicyByID(policyID)
	// Nonexistent and not-owned policies get the same response.
	if errors.Is(err, store.ErrNotFound) || (err == nil && policy.UserID != userID) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Policy not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch policy",
		})
	}

	resp := policyResponse(policy, time.Now())
	return c.JSON(resp)
}

func policyResponse(p *models.Policy, now time.Time) dto.PolicyResponse {
	return dto.PolicyResponse{
		ID:              p.ID,
		PropertyAddress: p.PropertyAddress,
		CoverageType:    p.CoverageType,
		Status:          p.EffectiveStatus(now),
		CreatedAt:       p.CreatedAt,
		ExpiresAt:       p.CreatedAt.Add(models.PolicyTerm),
	}
}
