package repository

import (
	"context"
	"time"

	"participant-import-backend/internal/models"
	"participant-import-backend/internal/services/importrequest"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ImportRequestRepository stores import requests in Postgres.
type ImportRequestRepository struct {
	db *gorm.DB
}

func NewImportRequestRepository(db *gorm.DB) *ImportRequestRepository {
	return &ImportRequestRepository{db: db}
}

func (r *ImportRequestRepository) Save(ctx context.Context, req *importrequest.ImportRequest) error {
	rec, err := models.ImportRequestFromDomain(req)
	if err != nil {
		return err
	}
	return errors.Wrap(r.db.WithContext(ctx).Create(rec).Error, "insert import request")
}

func (r *ImportRequestRepository) FindByID(ctx context.Context, id string) (*importrequest.ImportRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, importrequest.ErrNotFound
	}

	var rec models.ImportRequest
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, importrequest.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find import request %s", id)
	}
	return rec.ToDomain()
}

func (r *ImportRequestRepository) FindByEvent(ctx context.Context, eventID string) ([]importrequest.ImportRequest, error) {
	return findRequests(r.db.WithContext(ctx).Where("event_id = ?", eventID))
}

func (r *ImportRequestRepository) FindByCompany(ctx context.Context, empresaID string) ([]importrequest.ImportRequest, error) {
	return findRequests(r.db.WithContext(ctx).Where("empresa_id = ?", empresaID))
}

func (r *ImportRequestRepository) FindAll(ctx context.Context) ([]importrequest.ImportRequest, error) {
	return findRequests(r.db.WithContext(ctx))
}

func findRequests(query *gorm.DB) ([]importrequest.ImportRequest, error) {
	var recs []models.ImportRequest
	if err := query.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "list import requests")
	}
	return toDomainList(recs)
}

// UpdateStatus applies change only while the stored status still equals
// expected. The audit row is written in the same transaction.
func (r *ImportRequestRepository) UpdateStatus(ctx context.Context, id string, expected importrequest.Status, change importrequest.StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"status":     string(change.Status),
			"updated_at": change.UpdatedAt,
		}
		if change.ApprovedBy != "" {
			fields["approved_by"] = change.ApprovedBy
		}
		if change.ApprovedAt != nil {
			fields["approved_at"] = *change.ApprovedAt
		}
		if change.Notes != "" {
			fields["notes"] = change.Notes
		}

		res := tx.Model(&models.ImportRequest{}).
			Where("id = ? AND status = ?", id, string(expected)).
			Updates(fields)
		if res.Error != nil {
			return errors.Wrap(res.Error, "update import request status")
		}
		if res.RowsAffected == 0 {
			return importrequest.ErrConflict
		}

		audit := &models.ImportAuditLog{
			ID:              uuid.New(),
			ImportRequestID: id,
			FromStatus:      string(expected),
			ToStatus:        string(change.Status),
			PerformedBy:     change.ApprovedBy,
			Reason:          change.Notes,
			CreatedAt:       time.Now().UTC(),
		}
		return errors.Wrap(tx.Create(audit).Error, "insert import audit log")
	})
}

func (r *ImportRequestRepository) StatsByEvent(ctx context.Context, eventID string) ([]importrequest.StatRow, error) {
	var rows []importrequest.StatRow
	err := r.db.WithContext(ctx).Model(&models.ImportRequest{}).
		Where("event_id = ?", eventID).
		Select("status, COUNT(*) AS count, " +
			"COALESCE(SUM(total_rows),0) AS total_rows, " +
			"COALESCE(SUM(valid_rows),0) AS valid_rows, " +
			"COALESCE(SUM(invalid_rows),0) AS invalid_rows, " +
			"COALESCE(SUM(duplicate_rows),0) AS duplicate_rows").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "aggregate import requests")
	}
	return rows, nil
}

func toDomainList(recs []models.ImportRequest) ([]importrequest.ImportRequest, error) {
	out := make([]importrequest.ImportRequest, 0, len(recs))
	for i := range recs {
		req, err := recs[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, nil
}
