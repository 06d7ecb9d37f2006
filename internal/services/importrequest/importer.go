package importrequest

import (
	"context"
	"strings"

	"participant-import-backend/internal/services/reconciler"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type ImportInput struct {
	EventID     string
	EmpresaID   string
	FileName    string
	RequestedBy string
	Rows        []reconciler.RawRow
}

// Preview reconciles rows against the event's current reference data without
// persisting anything.
func (s *Service) Preview(ctx context.Context, eventID string, rows []reconciler.RawRow) (reconciler.Result, error) {
	if s.directory == nil || s.reconciler == nil {
		return reconciler.Result{}, errors.New("import service has no directory or reconciler")
	}
	if strings.TrimSpace(eventID) == "" {
		return reconciler.Result{}, validationError("eventId is required")
	}

	var (
		existing    map[string]reconciler.Participant
		credentials []string
		companies   []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		existing, err = s.directory.ParticipantsByCPF(gctx, eventID)
		return errors.Wrap(err, "load participants")
	})
	g.Go(func() error {
		var err error
		credentials, err = s.directory.CredentialNames(gctx, eventID)
		return errors.Wrap(err, "load credentials")
	})
	g.Go(func() error {
		var err error
		companies, err = s.directory.CompanyNames(gctx, eventID)
		return errors.Wrap(err, "load companies")
	})
	if err := g.Wait(); err != nil {
		return reconciler.Result{}, err
	}

	return s.reconciler.Reconcile(ctx, reconciler.Input{
		EventID:              eventID,
		Rows:                 rows,
		ExistingParticipants: existing,
		KnownCredentialNames: credentials,
		KnownCompanyNames:    companies,
	})
}

// Import reconciles an uploaded sheet and submits the result for approval.
func (s *Service) Import(ctx context.Context, in ImportInput) (*ImportRequest, error) {
	if strings.TrimSpace(in.RequestedBy) == "" {
		return nil, validationError("requestedBy is required")
	}

	res, err := s.Preview(ctx, in.EventID, in.Rows)
	if err != nil {
		return nil, err
	}

	return s.Submit(ctx, SubmitInput{
		EventID:     in.EventID,
		EmpresaID:   in.EmpresaID,
		FileName:    in.FileName,
		RequestedBy: in.RequestedBy,
		Result:      res,
	})
}
