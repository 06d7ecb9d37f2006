package reconciler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validCPFs = []string{
	"100.000.001-08", "200.000.002-99", "300.000.003-88", "400.000.004-77", "500.000.005-66",
	"600.000.006-55", "700.000.007-44", "800.000.008-33", "900.000.009-22", "110.000.001-17",
}

func row(n int, cpf, credencial string) RawRow {
	return RawRow{
		RowNumber: n,
		ParticipantRow: ParticipantRow{
			CPF:        cpf,
			Nome:       fmt.Sprintf("Participante %d", n),
			Funcao:     "Staff",
			Empresa:    "ACME",
			Credencial: credencial,
		},
	}
}

func cleanBatch() []RawRow {
	rows := make([]RawRow, 0, len(validCPFs))
	for i, cpf := range validCPFs {
		rows = append(rows, row(i+1, cpf, "STAFF"))
	}
	return rows
}

func baseInput(rows []RawRow) Input {
	return Input{
		EventID:              "evt-1",
		Rows:                 rows,
		ExistingParticipants: map[string]Participant{},
		KnownCredentialNames: []string{"STAFF", "VIP"},
		KnownCompanyNames:    []string{"ACME"},
	}
}

func assertPartition(t *testing.T, res Result, rows int) {
	t.Helper()
	assert.Equal(t, rows, res.TotalRows)
	assert.Equal(t, res.TotalRows, res.ValidRows+res.InvalidRows+res.DuplicateRows)
	assert.True(t, res.Consistent())
}

func TestReconcile_AllValid(t *testing.T) {
	r := New(Config{StrictCPFChecksum: true})

	res, err := r.Reconcile(context.Background(), baseInput(cleanBatch()))
	require.NoError(t, err)

	assertPartition(t, res, 10)
	assert.Equal(t, 10, res.ValidRows)
	assert.Zero(t, res.InvalidRows)
	assert.Zero(t, res.DuplicateRows)
	assert.Empty(t, res.MissingCredentials)
	assert.Empty(t, res.MissingCompanies)
	assert.Equal(t, validCPFs[0], res.Data[0].CPF)
	assert.Equal(t, validCPFs[9], res.Data[9].CPF)
}

func TestReconcile_EmptyCPFIsInvalid(t *testing.T) {
	rows := cleanBatch()
	rows[2].CPF = "   "

	res, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)

	assertPartition(t, res, 10)
	assert.Equal(t, 1, res.InvalidRows)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Error, "cpf")
	assert.Equal(t, "   ", res.Errors[0].Item.CPF)
}

func TestReconcile_ErrorNamesEveryFailingField(t *testing.T) {
	rows := []RawRow{{RowNumber: 1, ParticipantRow: ParticipantRow{CPF: "123", Empresa: "ACME", Credencial: "STAFF"}}}

	res, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error, "cpf is invalid")
	assert.Contains(t, res.Errors[0].Error, "nome is required")
}

func TestReconcile_ChecksumStrictness(t *testing.T) {
	rows := []RawRow{row(1, "123.456.789-00", "STAFF")}

	strict, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)
	assert.Equal(t, 1, strict.InvalidRows)

	loose, err := New(Config{StrictCPFChecksum: false}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)
	assert.Equal(t, 1, loose.ValidRows)
}

func TestReconcile_InBatchDuplicate(t *testing.T) {
	rows := cleanBatch()
	rows[4].CPF = "123.456.789-00"
	rows[7].CPF = "12345678900"

	res, err := New(Config{StrictCPFChecksum: false}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)

	assertPartition(t, res, 10)
	assert.Equal(t, 9, res.ValidRows)
	require.Len(t, res.Duplicates, 1)
	dup := res.Duplicates[0]
	assert.Equal(t, 8, dup.Row)
	assert.Equal(t, 5, dup.Existing.Row)
	assert.Equal(t, "123.456.789-00", dup.Existing.CPF)
	assert.Equal(t, rows[4].Nome, dup.Existing.Nome)
	assert.Empty(t, dup.Existing.ID)
}

func TestReconcile_StoredDuplicateWinsOverBatch(t *testing.T) {
	rows := cleanBatch()
	rows[7].CPF = rows[4].CPF

	in := baseInput(rows)
	in.ExistingParticipants = map[string]Participant{
		"50000000566": {ID: "p-1", EventID: "evt-1", CPF: "50000000566", Nome: "Stored"},
	}

	res, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), in)
	require.NoError(t, err)

	assertPartition(t, res, 10)
	assert.Equal(t, 2, res.DuplicateRows)
	for _, d := range res.Duplicates {
		assert.Equal(t, "p-1", d.Existing.ID)
	}
	assert.Equal(t, 5, res.Duplicates[0].Row)
	assert.Equal(t, 8, res.Duplicates[1].Row)
}

func TestReconcile_InvalidFirstOccurrenceStillClaimsCPF(t *testing.T) {
	rows := cleanBatch()
	rows[0].Nome = ""
	rows[1].CPF = rows[0].CPF

	res, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)

	assertPartition(t, res, 10)
	assert.Equal(t, 1, res.InvalidRows)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, 2, res.Duplicates[0].Row)
	assert.Equal(t, 1, res.Duplicates[0].Existing.Row)
}

func TestReconcile_InvalidBeatsDuplicate(t *testing.T) {
	rows := cleanBatch()
	rows[1].CPF = rows[0].CPF
	rows[1].Empresa = ""

	res, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)

	assert.Equal(t, 1, res.InvalidRows)
	assert.Zero(t, res.DuplicateRows)
	assert.Equal(t, 2, res.Errors[0].Row)
}

func TestReconcile_MissingCredentialKeepsRowValid(t *testing.T) {
	rows := cleanBatch()
	rows[1].Credencial = "VIP-GOLD"

	res, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)

	assert.Equal(t, 10, res.ValidRows)
	assert.Equal(t, []MissingReference{{Name: "VIP-GOLD", Count: 1}}, res.MissingCredentials)
	assert.Empty(t, res.MissingCompanies)
}

func TestReconcile_MissingReferencesCountEveryRow(t *testing.T) {
	rows := cleanBatch()
	rows[0].Empresa = "Globex"
	rows[1].Empresa = " globex "
	rows[1].Nome = ""
	rows[2].Empresa = "GLOBEX"
	rows[2].CPF = rows[3].CPF
	rows[3].Credencial = "backstage"
	rows[4].Credencial = "BACKSTAGE"

	res, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)

	assertPartition(t, res, 10)
	assert.Equal(t, []MissingReference{{Name: "Globex", Count: 3}}, res.MissingCompanies)
	assert.Equal(t, []MissingReference{{Name: "backstage", Count: 2}}, res.MissingCredentials)
}

func TestReconcile_KnownNamesMatchIgnoringCase(t *testing.T) {
	rows := cleanBatch()
	rows[0].Credencial = "  vip "

	res, err := New(Config{StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)
	assert.Empty(t, res.MissingCredentials)
}

func TestReconcile_RequiresReferenceData(t *testing.T) {
	r := New(Config{})

	_, err := r.Reconcile(context.Background(), Input{EventID: "", ExistingParticipants: map[string]Participant{}})
	assert.ErrorIs(t, err, ErrMissingReferenceData)

	_, err = r.Reconcile(context.Background(), Input{EventID: "evt-1"})
	assert.ErrorIs(t, err, ErrMissingReferenceData)
}

func TestReconcile_EmptyBatch(t *testing.T) {
	res, err := New(Config{}).Reconcile(context.Background(), baseInput(nil))
	require.NoError(t, err)

	assertPartition(t, res, 0)
	assert.NotNil(t, res.Data)
	assert.NotNil(t, res.Errors)
	assert.NotNil(t, res.Duplicates)
	assert.NotNil(t, res.MissingCredentials)
}

func TestReconcile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{Workers: 1}).Reconcile(ctx, baseInput(cleanBatch()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcile_PartitionHoldsOnLargeMixedBatch(t *testing.T) {
	rows := make([]RawRow, 0, 500)
	for i := 0; i < 500; i++ {
		r := row(i+1, validCPFs[i%len(validCPFs)], "STAFF")
		if i%7 == 0 {
			r.Nome = ""
		}
		if i%11 == 0 {
			r.Credencial = "UNKNOWN"
		}
		rows = append(rows, r)
	}

	res, err := New(Config{Workers: 8, StrictCPFChecksum: true}).Reconcile(context.Background(), baseInput(rows))
	require.NoError(t, err)

	assertPartition(t, res, 500)
	assert.LessOrEqual(t, res.ValidRows, len(validCPFs))
	require.Len(t, res.MissingCredentials, 1)
	assert.Equal(t, 46, res.MissingCredentials[0].Count)
}
