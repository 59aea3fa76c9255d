package etl

import (
	"errors"
	"fmt"

	"github.com/BartekS5/archimport/pkg/models"
)

// Setup failures. They abort a run before any row is processed.
var (
	ErrSourceMissing   = errors.New("source file not found")
	ErrMappingNotFound = models.ErrMappingNotFound
	ErrNoRows          = errors.New("no rows found in source")
	ErrNoRules         = errors.New("mapping defines no field rules")
	ErrInvalidOption   = errors.New("invalid import option")
)

// ErrRowsFailed reports a run that completed with row errors.
var ErrRowsFailed = errors.New("import completed with errors")

// SetupError is a fatal error raised before row processing starts.
type SetupError struct {
	// Reason is one of the Err* sentinels above.
	Reason error
	Err    error
}

// NewSetupError wraps err as a fatal setup failure of the given reason.
func NewSetupError(reason, err error) *SetupError {
	return &SetupError{Reason: reason, Err: err}
}

func (e *SetupError) Error() string {
	if e.Err == nil {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%v: %v", e.Reason, e.Err)
}

func (e *SetupError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// RowError is the failure of one source row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}
