package importrequest

import "github.com/pkg/errors"

var (
	// ErrValidation marks caller input problems such as a missing actor or reason.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition is returned for approve, reject or complete on a
	// request that is not in the required state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict is returned by storage when the compare-and-swap on status
	// did not match.
	ErrConflict = errors.New("concurrent update conflict")
	ErrNotFound = errors.New("import request not found")
	// ErrInvalidReconciliation means the counters of a result do not add up.
	ErrInvalidReconciliation = errors.New("reconciliation counters are inconsistent")
)

func validationError(msg string) error {
	return errors.Wrap(ErrValidation, msg)
}

func invalidTransition(from, to Status) error {
	return errors.Wrapf(ErrInvalidTransition, "cannot move from %s to %s", from, to)
}
