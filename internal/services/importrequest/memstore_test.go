package importrequest

import (
	"context"
	"sync"

	"participant-import-backend/internal/services/reconciler"

	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory Storage with the same compare-and-swap contract as
// the database repositories. conflicts makes the next N UpdateStatus calls fail
// with ErrConflict; beforeUpdate runs before each compare-and-swap.
type memStore struct {
	mu           sync.Mutex
	items        map[string]ImportRequest
	order        []string
	conflicts    int
	beforeUpdate func(s *memStore, id string)
	updates      int
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]ImportRequest)}
}

func (s *memStore) Save(_ context.Context, req *ImportRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[req.ID]; !ok {
		s.order = append(s.order, req.ID)
	}
	s.items[req.ID] = *req
	return nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*ImportRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &req, nil
}

func (s *memStore) filter(keep func(ImportRequest) bool) []ImportRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ImportRequest{}
	for _, id := range s.order {
		if req := s.items[id]; keep(req) {
			out = append(out, req)
		}
	}
	return out
}

func (s *memStore) FindByEvent(_ context.Context, eventID string) ([]ImportRequest, error) {
	return s.filter(func(r ImportRequest) bool { return r.EventID == eventID }), nil
}

func (s *memStore) FindByCompany(_ context.Context, empresaID string) ([]ImportRequest, error) {
	return s.filter(func(r ImportRequest) bool { return r.EmpresaID == empresaID }), nil
}

func (s *memStore) FindAll(_ context.Context) ([]ImportRequest, error) {
	return s.filter(func(ImportRequest) bool { return true }), nil
}

func (s *memStore) UpdateStatus(_ context.Context, id string, expected Status, change StatusChange) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate(s, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.conflicts > 0 {
		s.conflicts--
		return ErrConflict
	}
	req, ok := s.items[id]
	if !ok || req.Status != expected {
		return ErrConflict
	}
	change.apply(&req)
	s.items[id] = req
	return nil
}

func (s *memStore) StatsByEvent(_ context.Context, eventID string) ([]StatRow, error) {
	index := map[Status]int{}
	var rows []StatRow
	for _, req := range s.filter(func(r ImportRequest) bool { return r.EventID == eventID }) {
		i, ok := index[req.Status]
		if !ok {
			i = len(rows)
			index[req.Status] = i
			rows = append(rows, StatRow{Status: req.Status})
		}
		rows[i].Count++
		rows[i].TotalRows += int64(req.TotalRows)
		rows[i].ValidRows += int64(req.ValidRows)
		rows[i].InvalidRows += int64(req.InvalidRows)
		rows[i].DuplicateRows += int64(req.DuplicateRows)
	}
	return rows, nil
}

// set forces a stored status, bypassing the workflow.
func (s *memStore) set(id string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.items[id]
	req.Status = status
	s.items[id] = req
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, evt Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

type fakeDirectory struct {
	participants map[string]reconciler.Participant
	credentials  []string
	companies    []string
	err          error
}

func (d *fakeDirectory) ParticipantsByCPF(context.Context, string) (map[string]reconciler.Participant, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.participants, nil
}

func (d *fakeDirectory) CredentialNames(context.Context, string) ([]string, error) {
	return d.credentials, nil
}

func (d *fakeDirectory) CompanyNames(context.Context, string) ([]string, error) {
	return d.companies, nil
}
