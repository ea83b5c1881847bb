package ledger

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrInvalidOrganization is returned when no owning organization was supplied.
var ErrInvalidOrganization = errors.New("organization id is required")

// PersistenceError wraps a failed store operation. Op names the step, e.g.
// "delete scope" or "insert lines".
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
