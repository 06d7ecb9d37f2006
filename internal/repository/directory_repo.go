package repository

import (
	"context"

	"participant-import-backend/internal/models"
	"participant-import-backend/internal/services/reconciler"
	"participant-import-backend/internal/utils"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DirectoryRepository reads the participants, credentials and companies of an
// event from Postgres.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// ParticipantsByCPF returns the event's participants keyed by digits-only CPF.
// The map is never nil.
func (r *DirectoryRepository) ParticipantsByCPF(ctx context.Context, eventID string) (map[string]reconciler.Participant, error) {
	var participants []models.Participant
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&participants).Error; err != nil {
		return nil, errors.Wrap(err, "list participants")
	}

	out := make(map[string]reconciler.Participant, len(participants))
	for _, p := range participants {
		key := utils.SanitizeCPF(p.CPF)
		if key == "" {
			continue
		}
		out[key] = reconciler.Participant{
			ID:         p.ID.String(),
			EventID:    p.EventID,
			CPF:        p.CPF,
			Nome:       p.Nome,
			Funcao:     p.Funcao,
			Empresa:    p.Empresa,
			Credencial: p.Credencial,
		}
	}
	return out, nil
}

func (r *DirectoryRepository) CredentialNames(ctx context.Context, eventID string) ([]string, error) {
	names := []string{}
	err := r.db.WithContext(ctx).Model(&models.Credential{}).Where("event_id = ?", eventID).Pluck("name", &names).Error
	return names, errors.Wrap(err, "list credential names")
}

func (r *DirectoryRepository) CompanyNames(ctx context.Context, eventID string) ([]string, error) {
	names := []string{}
	err := r.db.WithContext(ctx).Model(&models.Company{}).Where("event_id = ?", eventID).Pluck("name", &names).Error
	return names, errors.Wrap(err, "list company names")
}
