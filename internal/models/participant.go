package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a participant already registered for an event. CPF holds
// digits only.
type Participant struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID    string    `gorm:"uniqueIndex:idx_participant_event_cpf"`
	CPF        string    `gorm:"column:cpf;uniqueIndex:idx_participant_event_cpf"`
	Nome       string
	Funcao     string
	Empresa    string
	Credencial string
	CreatedAt  time.Time
}

// Credential is a wristband type configured for an event.
type Credential struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID   string    `gorm:"index"`
	Name      string
	CreatedAt time.Time
}

type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID   string    `gorm:"index"`
	Name      string
	CreatedAt time.Time
}
