package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog is an append-only trail of administrative actions. The backend
// only ever writes these rows.
type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"actor_id"`
	Action       string         `gorm:"not null;size:100;index" json:"action"`
	ResourceType string         `gorm:"not null;size:50" json:"resource_type"`
	ResourceID   string         `gorm:"not null;size:255;index" json:"resource_id"`
	Detail       datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"detail"`
	CreatedAt    time.Time      `json:"created_at"`
}
