package importrequest

import (
	"context"
	"strings"
	"time"

	"participant-import-backend/internal/services/reconciler"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// transitionAttempts is the first write plus the single retry allowed after a
// compare-and-swap conflict.
const transitionAttempts = 2

type Service struct {
	store      Storage
	directory  Directory
	reconciler *reconciler.Reconciler
	publisher  Publisher
	now        func() time.Time
}

// NewService wires the workflow. directory and rec are only needed by Preview
// and Import; publisher may be nil.
func NewService(store Storage, directory Directory, rec *reconciler.Reconciler, publisher Publisher) *Service {
	return &Service{
		store:      store,
		directory:  directory,
		reconciler: rec,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit persists a reconciliation result as a new pending request.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*ImportRequest, error) {
	requestedBy := strings.TrimSpace(in.RequestedBy)
	if requestedBy == "" {
		return nil, validationError("requestedBy is required")
	}
	if strings.TrimSpace(in.EventID) == "" {
		return nil, validationError("eventId is required")
	}
	if strings.TrimSpace(in.EmpresaID) == "" {
		return nil, validationError("empresaId is required")
	}
	if !in.Result.Consistent() {
		return nil, errors.Wrapf(ErrInvalidReconciliation, "total=%d valid=%d invalid=%d duplicate=%d",
			in.Result.TotalRows, in.Result.ValidRows, in.Result.InvalidRows, in.Result.DuplicateRows)
	}

	res := in.Result
	req := &ImportRequest{
		ID:                 uuid.New().String(),
		EventID:            in.EventID,
		EmpresaID:          in.EmpresaID,
		FileName:           in.FileName,
		TotalRows:          res.TotalRows,
		ValidRows:          res.ValidRows,
		InvalidRows:        res.InvalidRows,
		DuplicateRows:      res.DuplicateRows,
		Data:               res.Data,
		Errors:             res.Errors,
		Duplicates:         res.Duplicates,
		MissingCredentials: res.MissingCredentials,
		MissingCompanies:   res.MissingCompanies,
		Status:             StatusPending,
		RequestedBy:        requestedBy,
		CreatedAt:          s.now(),
	}

	if err := s.store.Save(ctx, req); err != nil {
		return nil, errors.Wrap(err, "save import request")
	}

	log.Info().
		Str("import_request_id", req.ID).
		Str("event_id", req.EventID).
		Str("requested_by", requestedBy).
		Int("total_rows", req.TotalRows).
		Int("valid_rows", req.ValidRows).
		Msg("import request submitted")

	s.publish(ctx, EventCreated, req, requestedBy)
	return req, nil
}

func (s *Service) Approve(ctx context.Context, id, approvedBy string) (*ImportRequest, error) {
	approvedBy = strings.TrimSpace(approvedBy)
	if approvedBy == "" {
		return nil, validationError("approvedBy is required")
	}

	now := s.now()
	return s.transition(ctx, id, StatusPending, StatusChange{
		Status:     StatusApproved,
		ApprovedBy: approvedBy,
		ApprovedAt: &now,
		UpdatedAt:  now,
	}, EventApproved)
}

// Reject closes a pending request. The reason is stored in notes.
func (s *Service) Reject(ctx context.Context, id, approvedBy, reason string) (*ImportRequest, error) {
	approvedBy = strings.TrimSpace(approvedBy)
	reason = strings.TrimSpace(reason)
	if approvedBy == "" {
		return nil, validationError("approvedBy is required")
	}
	if reason == "" {
		return nil, validationError("reason is required")
	}

	now := s.now()
	return s.transition(ctx, id, StatusPending, StatusChange{
		Status:     StatusRejected,
		ApprovedBy: approvedBy,
		ApprovedAt: &now,
		Notes:      reason,
		UpdatedAt:  now,
	}, EventRejected)
}

// Complete marks an approved request as materialized.
func (s *Service) Complete(ctx context.Context, id string) (*ImportRequest, error) {
	return s.transition(ctx, id, StatusApproved, StatusChange{
		Status:    StatusCompleted,
		UpdatedAt: s.now(),
	}, EventCompleted)
}

func (s *Service) transition(ctx context.Context, id string, from Status, change StatusChange, eventType string) (*ImportRequest, error) {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		if current.Status != from {
			return nil, invalidTransition(current.Status, change.Status)
		}

		err = s.store.UpdateStatus(ctx, id, from, change)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConflict) {
			return nil, errors.Wrap(err, "update import request status")
		}
		if attempt == transitionAttempts {
			return nil, errors.Wrap(ErrConflict, "this request was already processed")
		}

		log.Warn().Str("import_request_id", id).Str("status", string(change.Status)).Msg("status conflict, re-reading")
		if current, err = s.store.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}

	change.apply(current)

	log.Info().
		Str("import_request_id", id).
		Str("status", string(current.Status)).
		Str("actor", change.ApprovedBy).
		Msg("import request transitioned")

	s.publish(ctx, eventType, current, change.ApprovedBy)
	return current, nil
}

func (s *Service) publish(ctx context.Context, eventType string, req *ImportRequest, actor string) {
	if s.publisher == nil {
		return
	}
	evt := Event{
		Type:            eventType,
		ImportRequestID: req.ID,
		EventID:         req.EventID,
		EmpresaID:       req.EmpresaID,
		Status:          req.Status,
		Actor:           actor,
		ValidRows:       req.ValidRows,
		OccurredAt:      s.now(),
	}
	if err := s.publisher.PublishEvent(ctx, evt); err != nil {
		log.Error().Err(err).Str("import_request_id", req.ID).Str("event_type", eventType).Msg("publish lifecycle event")
	}
}

func (s *Service) Get(ctx context.Context, id string) (*ImportRequest, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]ImportRequest, error) {
	return s.store.FindByEvent(ctx, eventID)
}

func (s *Service) ListByEmpresa(ctx context.Context, empresaID string) ([]ImportRequest, error) {
	return s.store.FindByCompany(ctx, empresaID)
}

func (s *Service) ListAll(ctx context.Context) ([]ImportRequest, error) {
	return s.store.FindAll(ctx)
}

func (s *Service) Stats(ctx context.Context, eventID string) (Stats, error) {
	rows, err := s.store.StatsByEvent(ctx, eventID)
	if err != nil {
		return Stats{}, errors.Wrap(err, "aggregate import request stats")
	}
	return FoldStats(rows), nil
}
