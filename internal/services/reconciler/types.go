package reconciler

// ParticipantRow is one candidate participant as it appears in an import sheet.
type ParticipantRow struct {
	CPF        string `json:"cpf" validate:"required,cpf"`
	Nome       string `json:"nome" validate:"required"`
	Funcao     string `json:"funcao"`
	Empresa    string `json:"empresa" validate:"required"`
	Credencial string `json:"credencial" validate:"required"`
}

// RawRow is a sheet row plus its 1-based position, used in error reports.
type RawRow struct {
	RowNumber int `json:"rowNumber"`
	ParticipantRow
}

// Participant is the record a duplicate row conflicts with. It is either a
// participant already stored for the event (ID set) or an earlier row of the
// same import (Row set).
type Participant struct {
	ID         string `json:"id,omitempty"`
	EventID    string `json:"eventId,omitempty"`
	Row        int    `json:"row,omitempty"`
	CPF        string `json:"cpf"`
	Nome       string `json:"nome"`
	Funcao     string `json:"funcao"`
	Empresa    string `json:"empresa"`
	Credencial string `json:"credencial"`
}

type RowError struct {
	Row   int            `json:"row"`
	Item  ParticipantRow `json:"item"`
	Error string         `json:"error"`
}

type DuplicateRow struct {
	Row      int            `json:"row"`
	Item     ParticipantRow `json:"item"`
	Existing Participant    `json:"existing"`
}

// MissingReference counts the rows citing a credential or company that does
// not exist yet for the event.
type MissingReference struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Input is everything a reconciliation needs. ExistingParticipants is keyed by
// sanitized CPF and must already be scoped to EventID.
type Input struct {
	EventID              string
	Rows                 []RawRow
	ExistingParticipants map[string]Participant
	KnownCredentialNames []string
	KnownCompanyNames    []string
}

type Result struct {
	TotalRows          int                `json:"totalRows"`
	ValidRows          int                `json:"validRows"`
	InvalidRows        int                `json:"invalidRows"`
	DuplicateRows      int                `json:"duplicateRows"`
	Data               []ParticipantRow   `json:"data"`
	Errors             []RowError         `json:"errors"`
	Duplicates         []DuplicateRow     `json:"duplicates"`
	MissingCredentials []MissingReference `json:"missingCredentials"`
	MissingCompanies   []MissingReference `json:"missingCompanies"`
}

// Consistent reports whether the counters agree with each other and with the
// evidence collections.
func (r Result) Consistent() bool {
	return r.TotalRows == r.ValidRows+r.InvalidRows+r.DuplicateRows &&
		r.ValidRows == len(r.Data) &&
		r.InvalidRows == len(r.Errors) &&
		r.DuplicateRows == len(r.Duplicates)
}
