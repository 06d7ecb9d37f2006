package reconciler

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"participant-import-backend/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrMissingReferenceData is returned when the caller did not supply the event
// or its existing participants.
var ErrMissingReferenceData = errors.New("reconciler: event id and existing participants are required")

type Config struct {
	// Workers bounds the goroutines evaluating rows. Zero means GOMAXPROCS.
	Workers           int
	StrictCPFChecksum bool
}

type Reconciler struct {
	cfg      Config
	validate *validator.Validate
}

func New(cfg Config) *Reconciler {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	strict := cfg.StrictCPFChecksum
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return utils.ValidateCPF(utils.SanitizeCPF(fl.Field().String()), strict)
	})

	return &Reconciler{cfg: cfg, validate: v}
}

// rowOutcome is what a single row evaluation produces. It only depends on the
// row and the read-only reference data, so rows can be evaluated in any order.
type rowOutcome struct {
	problems []string
	cpfKey   string
	stored   *Participant
}

// Reconcile classifies every row as valid, invalid or duplicate, in that
// tie-break order, and tallies credentials and companies unknown to the event.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.EventID) == "" || in.ExistingParticipants == nil {
		return Result{}, ErrMissingReferenceData
	}

	outcomes := make([]rowOutcome, len(in.Rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i := range in.Rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.evaluate(in.Rows[i], in.ExistingParticipants)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, errors.Wrap(err, "evaluate rows")
	}

	return aggregate(in, outcomes), nil
}

func (r *Reconciler) evaluate(row RawRow, existing map[string]Participant) rowOutcome {
	trimmed := trimRow(row.ParticipantRow)
	out := rowOutcome{cpfKey: utils.SanitizeCPF(trimmed.CPF)}

	if err := r.validate.Struct(trimmed); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				out.problems = append(out.problems, describe(fe))
			}
		} else {
			out.problems = append(out.problems, err.Error())
		}
		return out
	}

	if p, ok := existing[out.cpfKey]; ok {
		out.stored = &p
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "cpf":
		return fmt.Sprintf("%s is invalid", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// aggregate walks the outcomes in row order. In-batch duplicates, counters and
// the missing-reference tallies are only ever touched here.
func aggregate(in Input, outcomes []rowOutcome) Result {
	res := Result{
		TotalRows:  len(in.Rows),
		Data:       make([]ParticipantRow, 0, len(in.Rows)),
		Errors:     make([]RowError, 0),
		Duplicates: make([]DuplicateRow, 0),
	}

	credentials := newTally(in.KnownCredentialNames)
	companies := newTally(in.KnownCompanyNames)
	firstSeen := make(map[string]RawRow, len(in.Rows))

	for i, o := range outcomes {
		row := in.Rows[i]

		credentials.observe(row.Credencial)
		companies.observe(row.Empresa)

		switch {
		case len(o.problems) > 0:
			res.InvalidRows++
			res.Errors = append(res.Errors, RowError{
				Row:   row.RowNumber,
				Item:  row.ParticipantRow,
				Error: strings.Join(o.problems, "; "),
			})

		case o.stored != nil:
			res.DuplicateRows++
			res.Duplicates = append(res.Duplicates, DuplicateRow{
				Row:      row.RowNumber,
				Item:     row.ParticipantRow,
				Existing: *o.stored,
			})

		default:
			if first, ok := firstSeen[o.cpfKey]; ok {
				res.DuplicateRows++
				res.Duplicates = append(res.Duplicates, DuplicateRow{
					Row:      row.RowNumber,
					Item:     row.ParticipantRow,
					Existing: fromRow(first, in.EventID),
				})
			} else {
				res.ValidRows++
				res.Data = append(res.Data, row.ParticipantRow)
			}
		}

		if _, ok := firstSeen[o.cpfKey]; !ok && o.cpfKey != "" {
			firstSeen[o.cpfKey] = row
		}
	}

	res.MissingCredentials = credentials.missing()
	res.MissingCompanies = companies.missing()
	return res
}

func trimRow(p ParticipantRow) ParticipantRow {
	return ParticipantRow{
		CPF:        strings.TrimSpace(p.CPF),
		Nome:       strings.TrimSpace(p.Nome),
		Funcao:     strings.TrimSpace(p.Funcao),
		Empresa:    strings.TrimSpace(p.Empresa),
		Credencial: strings.TrimSpace(p.Credencial),
	}
}

func fromRow(row RawRow, eventID string) Participant {
	return Participant{
		EventID:    eventID,
		Row:        row.RowNumber,
		CPF:        row.CPF,
		Nome:       row.Nome,
		Funcao:     row.Funcao,
		Empresa:    row.Empresa,
		Credencial: row.Credencial,
	}
}
