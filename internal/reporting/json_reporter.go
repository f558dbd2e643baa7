// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the document the JSON reporter emits.
type Report struct {
	RunID   string    `json:"run_id,omitempty"`
	Valid   int       `json:"valid"`
	Invalid int       `json:"invalid"`
	Results []*Result `json:"results"`
}

// JSONReporter buffers results and writes a single Report on Close.
type JSONReporter struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	logger  *zap.Logger
	results []*Result
}

func NewJSONReporter(writer io.WriteCloser, logger *zap.Logger) *JSONReporter {
	return &JSONReporter{writer: writer, logger: logger, results: []*Result{}}
}

func (r *JSONReporter) Write(result *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := Report{Results: r.results}
	report.Valid, report.Invalid = Summary(r.results)
	if len(r.results) > 0 {
		report.RunID = r.results[0].RunID
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	encodeErr := encoder.Encode(report)
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode JSON report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Debug("Wrote JSON report", zap.Int("results", len(r.results)))
	return nil
}
