package dto

import (
	"time"

	"github.com/google/uuid"
)

// PolicyResponse renders a policy with its time-derived effective status.
type PolicyResponse struct {
	ID              uuid.UUID `json:"id"`
	PropertyAddress string    `json:"property_address"`
	CoverageType    string    `json:"coverage_type"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}
