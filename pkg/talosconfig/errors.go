// File: pkg/talosconfig/errors.go
package talosconfig

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is matched (via errors.Is) by every error the loader returns
// for a document that parsed but failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// ParseError reports a document that is not well-formed YAML or is empty.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse error in %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError reports a required key that is absent (or null).
type MissingFieldError struct {
	Key string
	// Alternatives lists other spellings that would also have satisfied the requirement.
	Alternatives []string
}

func (e *MissingFieldError) Error() string {
	if len(e.Alternatives) == 0 {
		return fmt.Sprintf("missing required key %q", e.Key)
	}
	return fmt.Sprintf("missing required key %q (or %s)", e.Key, quoteJoin(e.Alternatives, " or "))
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrInvalidConfig }

// TypeMismatchError reports a value whose YAML type does not match the schema.
type TypeMismatchError struct {
	Key      string
	Expected string
	Actual   string
	Line     int
}

func (e *TypeMismatchError) Error() string {
	key := e.Key
	if key == "" {
		key = "<document>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: key %q: expected %s, got %s", e.Line, key, e.Expected, e.Actual)
	}
	return fmt.Sprintf("key %q: expected %s, got %s", key, e.Expected, e.Actual)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrInvalidConfig }

// RangeError reports a value outside its permitted range.
type RangeError struct {
	Key   string
	Value any
	Range string
	Line  int
}

func (e *RangeError) Error() string {
	return linePrefix(e.Line) + fmt.Sprintf("key %q: value %v out of range, must be %s", e.Key, e.Value, e.Range)
}

func (e *RangeError) Is(target error) bool { return target == ErrInvalidConfig }

// InvalidEnumError reports a value that is not a member of a closed set.
type InvalidEnumError struct {
	Key     string
	Value   string
	Allowed []string
	Line    int
}

func (e *InvalidEnumError) Error() string {
	allowed := e.Allowed
	suffix := ""
	if len(allowed) > 12 {
		suffix = fmt.Sprintf(" (and %d more)", len(allowed)-12)
		allowed = allowed[:12]
	}
	return linePrefix(e.Line) + fmt.Sprintf("key %q: invalid value %q, allowed: %s%s", e.Key, e.Value, quoteJoin(allowed, ", "), suffix)
}

func (e *InvalidEnumError) Is(target error) bool { return target == ErrInvalidConfig }

// ArityMismatchError reports a vector whose length disagrees with a dependent key.
type ArityMismatchError struct {
	Key      string
	Len      int
	Other    string
	OtherLen int
	Line     int
}

func (e *ArityMismatchError) Error() string {
	return linePrefix(e.Line) + fmt.Sprintf("key %q has %d elements but %q implies %d", e.Key, e.Len, e.Other, e.OtherLen)
}

func (e *ArityMismatchError) Is(target error) bool { return target == ErrInvalidConfig }

// ConflictError reports two keys that must not both be set.
type ConflictError struct {
	Key   string
	Other string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("keys %q and %q are mutually exclusive", e.Key, e.Other)
}

func (e *ConflictError) Is(target error) bool { return target == ErrInvalidConfig }

func linePrefix(line int) string {
	if line <= 0 {
		return ""
	}
	return fmt.Sprintf("line %d: ", line)
}

func quoteJoin(items []string, sep string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, sep)
}

// joinKey builds a dotted key path.
func joinKey(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func indexKey(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
