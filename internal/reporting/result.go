// internal/reporting/result.go
package reporting

import (
	"errors"
	"time"

	"github.com/xkilldash9x/talosconf/internal/robotdesc"
	"github.com/xkilldash9x/talosconf/pkg/talosconfig"
)

// ErrorClass groups validation failures by the kind of defect.
type ErrorClass string

const (
	ClassNone          ErrorClass = ""
	ClassParse         ErrorClass = "parse"
	ClassMissingField  ErrorClass = "missing_field"
	ClassTypeMismatch  ErrorClass = "type_mismatch"
	ClassRange         ErrorClass = "range"
	ClassInvalidEnum   ErrorClass = "invalid_enum"
	ClassArityMismatch ErrorClass = "arity_mismatch"
	ClassConflict      ErrorClass = "conflict"
	ClassRobotModel    ErrorClass = "robot_model"
	// ClassIO covers everything else, typically an unreadable file.
	ClassIO ErrorClass = "io"
)

// Result is the outcome of validating one file.
type Result struct {
	RunID    string        `json:"run_id"`
	File     string        `json:"file"`
	Kind     string        `json:"kind,omitempty"`
	Valid    bool          `json:"valid"`
	Class    ErrorClass    `json:"class,omitempty"`
	Key      string        `json:"key,omitempty"`
	Line     int           `json:"line,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// NewResult builds a Result from the outcome of a load.
func NewResult(runID, file string, doc *talosconfig.Document, err error, elapsed time.Duration) *Result {
	r := &Result{RunID: runID, File: file, Duration: elapsed}
	if err != nil {
		r.Class, r.Key, r.Line = Classify(err)
		r.Message = err.Error()
		return r
	}
	r.Valid = true
	if doc != nil {
		r.Kind = string(doc.Kind())
	}
	return r
}

// Classify maps an error to its class, the configuration key it concerns
// and, when known, the line in the source document.
func Classify(err error) (ErrorClass, string, int) {
	var (
		parseErr    *talosconfig.ParseError
		missingErr  *talosconfig.MissingFieldError
		typeErr     *talosconfig.TypeMismatchError
		rangeErr    *talosconfig.RangeError
		enumErr     *talosconfig.InvalidEnumError
		arityErr    *talosconfig.ArityMismatchError
		conflictErr *talosconfig.ConflictError
		modelErr    *robotdesc.ModelError
	)
	switch {
	case err == nil:
		return ClassNone, "", 0
	case errors.As(err, &parseErr):
		return ClassParse, "", 0
	case errors.As(err, &missingErr):
		return ClassMissingField, missingErr.Key, 0
	case errors.As(err, &typeErr):
		return ClassTypeMismatch, typeErr.Key, typeErr.Line
	case errors.As(err, &rangeErr):
		return ClassRange, rangeErr.Key, rangeErr.Line
	case errors.As(err, &enumErr):
		return ClassInvalidEnum, enumErr.Key, enumErr.Line
	case errors.As(err, &arityErr):
		return ClassArityMismatch, arityErr.Key, arityErr.Line
	case errors.As(err, &conflictErr):
		return ClassConflict, conflictErr.Key, 0
	case errors.As(err, &modelErr), errors.Is(err, robotdesc.ErrNotFound):
		return ClassRobotModel, "", 0
	}
	return ClassIO, "", 0
}

// Summary counts valid and invalid results.
func Summary(results []*Result) (valid, invalid int) {
	for _, r := range results {
		if r.Valid {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}
