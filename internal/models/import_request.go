package models

import (
	"encoding/json"
	"time"

	"participant-import-backend/internal/services/importrequest"
	"participant-import-backend/internal/services/reconciler"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

// ImportRequest is the persisted form of importrequest.ImportRequest. The
// evidence collections are stored as JSON documents.
type ImportRequest struct {
	ID        string `gorm:"type:uuid;primaryKey" bson:"_id"`
	EventID   string `gorm:"index" bson:"event_id"`
	EmpresaID string `gorm:"index" bson:"empresa_id"`
	FileName  string `bson:"file_name"`

	TotalRows     int `bson:"total_rows"`
	ValidRows     int `bson:"valid_rows"`
	InvalidRows   int `bson:"invalid_rows"`
	DuplicateRows int `bson:"duplicate_rows"`

	Data               datatypes.JSON `bson:"data"`
	Errors             datatypes.JSON `bson:"errors"`
	Duplicates         datatypes.JSON `bson:"duplicates"`
	MissingCredentials datatypes.JSON `bson:"missing_credentials"`
	MissingCompanies   datatypes.JSON `bson:"missing_companies"`

	Status      string     `gorm:"index" bson:"status"`
	RequestedBy string     `bson:"requested_by"`
	ApprovedBy  string     `bson:"approved_by,omitempty"`
	ApprovedAt  *time.Time `bson:"approved_at,omitempty"`
	Notes       string     `bson:"notes,omitempty"`

	CreatedAt time.Time  `gorm:"index" bson:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" bson:"updated_at,omitempty"`
}

// ImportRequestFromDomain converts the canonical request into its record.
func ImportRequestFromDomain(r *importrequest.ImportRequest) (*ImportRequest, error) {
	rec := &ImportRequest{
		ID:            r.ID,
		EventID:       r.EventID,
		EmpresaID:     r.EmpresaID,
		FileName:      r.FileName,
		TotalRows:     r.TotalRows,
		ValidRows:     r.ValidRows,
		InvalidRows:   r.InvalidRows,
		DuplicateRows: r.DuplicateRows,
		Status:        string(r.Status),
		RequestedBy:   r.RequestedBy,
		ApprovedBy:    r.ApprovedBy,
		ApprovedAt:    r.ApprovedAt,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}

	fields := []struct {
		dst *datatypes.JSON
		src interface{}
	}{
		{&rec.Data, nonNil(r.Data)},
		{&rec.Errors, nonNil(r.Errors)},
		{&rec.Duplicates, nonNil(r.Duplicates)},
		{&rec.MissingCredentials, nonNil(r.MissingCredentials)},
		{&rec.MissingCompanies, nonNil(r.MissingCompanies)},
	}
	for _, f := range fields {
		raw, err := json.Marshal(f.src)
		if err != nil {
			return nil, errors.Wrap(err, "encode import request evidence")
		}
		*f.dst = raw
	}
	return rec, nil
}

// ToDomain converts the record back into the canonical request.
func (m *ImportRequest) ToDomain() (*importrequest.ImportRequest, error) {
	status := importrequest.Status(m.Status)
	if !status.Valid() {
		return nil, errors.Errorf("import request %s has unknown status %q", m.ID, m.Status)
	}

	r := &importrequest.ImportRequest{
		ID:                 m.ID,
		EventID:            m.EventID,
		EmpresaID:          m.EmpresaID,
		FileName:           m.FileName,
		TotalRows:          m.TotalRows,
		ValidRows:          m.ValidRows,
		InvalidRows:        m.InvalidRows,
		DuplicateRows:      m.DuplicateRows,
		Data:               []reconciler.ParticipantRow{},
		Errors:             []reconciler.RowError{},
		Duplicates:         []reconciler.DuplicateRow{},
		MissingCredentials: []reconciler.MissingReference{},
		MissingCompanies:   []reconciler.MissingReference{},
		Status:             status,
		RequestedBy:        m.RequestedBy,
		ApprovedBy:         m.ApprovedBy,
		ApprovedAt:         m.ApprovedAt,
		Notes:              m.Notes,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}

	fields := []struct {
		src datatypes.JSON
		dst interface{}
	}{
		{m.Data, &r.Data},
		{m.Errors, &r.Errors},
		{m.Duplicates, &r.Duplicates},
		{m.MissingCredentials, &r.MissingCredentials},
		{m.MissingCompanies, &r.MissingCompanies},
	}
	for _, f := range fields {
		if len(f.src) == 0 || string(f.src) == "null" {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, errors.Wrapf(err, "decode evidence of import request %s", m.ID)
		}
	}
	return r, nil
}

// nonNil keeps empty collections as [] rather than null in storage.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
