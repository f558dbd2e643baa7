// internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"
)

// TextReporter writes one line per result as results arrive, followed by a
// summary line on Close.
type TextReporter struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	valid   int
	invalid int
}

func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Write(result *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if result.Valid {
		r.valid++
		_, err = fmt.Fprintf(r.writer, "ok    %s (%s)\n", result.File, result.Kind)
	} else {
		r.invalid++
		_, err = fmt.Fprintf(r.writer, "FAIL  %s: %s\n", result.File, result.Message)
	}
	if err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, writeErr := fmt.Fprintf(r.writer, "%d valid, %d invalid\n", r.valid, r.invalid)
	closeErr := r.writer.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write summary: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
