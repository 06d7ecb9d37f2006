package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportAuditLog records every status change of an import request.
type ImportAuditLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ImportRequestID string    `gorm:"index"`
	FromStatus      string
	ToStatus        string
	PerformedBy     string
	Reason          string
	CreatedAt       time.Time
}

// All lists every table managed by the migrate command.
func All() []interface{} {
	return []interface{}{
		&ImportRequest{},
		&ImportAuditLog{},
		&Participant{},
		&Credential{},
		&Company{},
	}
}
