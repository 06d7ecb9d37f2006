package importrequest

import (
	"time"

	"participant-import-backend/internal/services/reconciler"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// ImportRequest is one submitted batch together with its reconciliation
// snapshot and approval lifecycle.
type ImportRequest struct {
	ID        string `json:"id"`
	EventID   string `json:"eventId"`
	EmpresaID string `json:"empresaId"`
	FileName  string `json:"fileName"`

	TotalRows     int `json:"totalRows"`
	ValidRows     int `json:"validRows"`
	InvalidRows   int `json:"invalidRows"`
	DuplicateRows int `json:"duplicateRows"`

	Data               []reconciler.ParticipantRow   `json:"data"`
	Errors             []reconciler.RowError         `json:"errors"`
	Duplicates         []reconciler.DuplicateRow     `json:"duplicates"`
	MissingCredentials []reconciler.MissingReference `json:"missingCredentials"`
	MissingCompanies   []reconciler.MissingReference `json:"missingCompanies"`

	Status      Status     `json:"status"`
	RequestedBy string     `json:"requestedBy"`
	ApprovedBy  string     `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Result returns the reconciliation snapshot carried by the request.
func (r *ImportRequest) Result() reconciler.Result {
	return reconciler.Result{
		TotalRows:          r.TotalRows,
		ValidRows:          r.ValidRows,
		InvalidRows:        r.InvalidRows,
		DuplicateRows:      r.DuplicateRows,
		Data:               r.Data,
		Errors:             r.Errors,
		Duplicates:         r.Duplicates,
		MissingCredentials: r.MissingCredentials,
		MissingCompanies:   r.MissingCompanies,
	}
}

// StatusChange is the set of fields a transition writes.
type StatusChange struct {
	Status     Status
	ApprovedBy string
	ApprovedAt *time.Time
	Notes      string
	UpdatedAt  time.Time
}

func (c StatusChange) apply(r *ImportRequest) {
	r.Status = c.Status
	if c.ApprovedBy != "" {
		r.ApprovedBy = c.ApprovedBy
	}
	if c.ApprovedAt != nil {
		r.ApprovedAt = c.ApprovedAt
	}
	if c.Notes != "" {
		r.Notes = c.Notes
	}
	updated := c.UpdatedAt
	r.UpdatedAt = &updated
}

type SubmitInput struct {
	EventID     string
	EmpresaID   string
	FileName    string
	RequestedBy string
	Result      reconciler.Result
}

// Stats aggregates the requests of one event.
type Stats struct {
	Total          int64 `json:"total"`
	PendingCount   int64 `json:"pendingCount"`
	ApprovedCount  int64 `json:"approvedCount"`
	RejectedCount  int64 `json:"rejectedCount"`
	CompletedCount int64 `json:"completedCount"`

	TotalRows     int64 `json:"totalRows"`
	ValidRows     int64 `json:"validRows"`
	InvalidRows   int64 `json:"invalidRows"`
	DuplicateRows int64 `json:"duplicateRows"`
}

// StatRow is one GROUP BY status line produced by storage.
type StatRow struct {
	Status        Status
	Count         int64
	TotalRows     int64
	ValidRows     int64
	InvalidRows   int64
	DuplicateRows int64
}

// FoldStats sums per-status rows into Stats.
func FoldStats(rows []StatRow) Stats {
	var s Stats
	for _, r := range rows {
		s.Total += r.Count
		s.TotalRows += r.TotalRows
		s.ValidRows += r.ValidRows
		s.InvalidRows += r.InvalidRows
		s.DuplicateRows += r.DuplicateRows

		switch r.Status {
		case StatusPending:
			s.PendingCount = r.Count
		case StatusApproved:
			s.ApprovedCount = r.Count
		case StatusRejected:
			s.RejectedCount = r.Count
		case StatusCompleted:
			s.CompletedCount = r.Count
		}
	}
	return s
}

// Event types published on lifecycle changes.
const (
	EventCreated   = "import_request.created"
	EventApproved  = "import_request.approved"
	EventRejected  = "import_request.rejected"
	EventCompleted = "import_request.completed"
)

type Event struct {
	Type            string    `json:"type"`
	ImportRequestID string    `json:"importRequestId"`
	EventID         string    `json:"eventId"`
	EmpresaID       string    `json:"empresaId"`
	Status          Status    `json:"status"`
	Actor           string    `json:"actor,omitempty"`
	ValidRows       int       `json:"validRows"`
	OccurredAt      time.Time `json:"occurredAt"`
}
