//go:build integration
// +build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"participant-import-backend/internal/services/importrequest"
	"participant-import-backend/internal/services/reconciler"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingRequest(eventID, empresaID string) *importrequest.ImportRequest {
	row := reconciler.ParticipantRow{CPF: "123.456.789-09", Nome: "Ana", Funcao: "Staff", Empresa: "ACME", Credencial: "STAFF"}
	return &importrequest.ImportRequest{
		ID:                 uuid.New().String(),
		EventID:            eventID,
		EmpresaID:          empresaID,
		FileName:           "lote.xlsx",
		TotalRows:          2,
		ValidRows:          1,
		DuplicateRows:      1,
		Data:               []reconciler.ParticipantRow{row},
		Errors:             []reconciler.RowError{},
		Duplicates:         []reconciler.DuplicateRow{{Row: 2, Item: row, Existing: reconciler.Participant{Row: 1, CPF: row.CPF, Nome: "Ana"}}},
		MissingCredentials: []reconciler.MissingReference{{Name: "VIP-GOLD", Count: 1}},
		MissingCompanies:   []reconciler.MissingReference{},
		Status:             importrequest.StatusPending,
		RequestedBy:        "producer-1",
		CreatedAt:          time.Now().UTC().Truncate(time.Millisecond),
	}
}

// exerciseStorage runs the Storage contract shared by every backend.
func exerciseStorage(t *testing.T, store importrequest.Storage) {
	ctx := context.Background()
	eventID := "evt-" + uuid.NewString()

	req := newPendingRequest(eventID, "emp-1")
	require.NoError(t, store.Save(ctx, req))
	other := newPendingRequest(eventID, "emp-2")
	require.NoError(t, store.Save(ctx, other))

	got, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Result(), got.Result())
	assert.Equal(t, importrequest.StatusPending, got.Status)
	assert.WithinDuration(t, req.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.Nil(t, got.ApprovedAt)

	_, err = store.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, importrequest.ErrNotFound)

	byEvent, err := store.FindByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	byCompany, err := store.FindByCompany(ctx, "emp-2")
	require.NoError(t, err)
	require.NotEmpty(t, byCompany)

	now := time.Now().UTC()
	change := importrequest.StatusChange{Status: importrequest.StatusApproved, ApprovedBy: "admin-1", ApprovedAt: &now, UpdatedAt: now}
	require.NoError(t, store.UpdateStatus(ctx, req.ID, importrequest.StatusPending, change))

	err = store.UpdateStatus(ctx, req.ID, importrequest.StatusPending, change)
	assert.ErrorIs(t, err, importrequest.ErrConflict)

	approved, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, importrequest.StatusApproved, approved.Status)
	assert.Equal(t, "admin-1", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.WithinDuration(t, now, *approved.ApprovedAt, time.Millisecond)

	// Exactly one of many concurrent compare-and-swaps may win.
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.UpdateStatus(ctx, other.ID, importrequest.StatusPending, importrequest.StatusChange{
				Status: importrequest.StatusRejected, ApprovedBy: "admin-2", Notes: "dup", UpdatedAt: time.Now().UTC(),
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, importrequest.ErrConflict)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	rows, err := store.StatsByEvent(ctx, eventID)
	require.NoError(t, err)
	stats := importrequest.FoldStats(rows)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ApprovedCount)
	assert.Equal(t, int64(1), stats.RejectedCount)
	assert.Equal(t, int64(4), stats.TotalRows)
	assert.Equal(t, int64(2), stats.DuplicateRows)
}
