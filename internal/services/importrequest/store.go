package importrequest

import (
	"context"

	"participant-import-backend/internal/services/reconciler"
)

// Storage persists import requests. FindByID returns ErrNotFound for unknown
// ids. UpdateStatus writes only when the stored status equals expected and
// returns ErrConflict otherwise.
type Storage interface {
	Save(ctx context.Context, req *ImportRequest) error
	FindByID(ctx context.Context, id string) (*ImportRequest, error)
	FindByEvent(ctx context.Context, eventID string) ([]ImportRequest, error)
	FindByCompany(ctx context.Context, empresaID string) ([]ImportRequest, error)
	FindAll(ctx context.Context) ([]ImportRequest, error)
	UpdateStatus(ctx context.Context, id string, expected Status, change StatusChange) error
	StatsByEvent(ctx context.Context, eventID string) ([]StatRow, error)
}

// Directory supplies the event-scoped reference data used by the reconciler.
type Directory interface {
	ParticipantsByCPF(ctx context.Context, eventID string) (map[string]reconciler.Participant, error)
	CredentialNames(ctx context.Context, eventID string) ([]string, error)
	CompanyNames(ctx context.Context, eventID string) ([]string, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, evt Event) error
}
