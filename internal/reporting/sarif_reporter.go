// internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/talosconf/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "talosconf"
	ToolInfoURI  = "https://github.com/xkilldash9x/talosconf"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

type ruleSpec struct {
	class       ErrorClass
	name        string
	description string
}

// rules is the fixed rule table. A result's ruleIndex points into it.
var rules = []ruleSpec{
	{ClassParse, "ParseError", "The document is not well-formed YAML or is empty."},
	{ClassMissingField, "MissingField", "A required key is absent or null."},
	{ClassTypeMismatch, "TypeMismatch", "A value has the wrong YAML type for its key."},
	{ClassRange, "OutOfRange", "A value lies outside its permitted interval."},
	{ClassInvalidEnum, "InvalidEnum", "A value is not a member of the allowed set."},
	{ClassArityMismatch, "ArityMismatch", "A vector length disagrees with the joints it weights."},
	{ClassConflict, "Conflict", "Two mutually exclusive keys are both set."},
	{ClassRobotModel, "RobotModel", "The referenced URDF/SRDF does not match the configuration."},
	{ClassIO, "IOError", "The file could not be read."},
}

// ruleID derives the SARIF rule identifier for a class, e.g. TALOSCONF-MISSING-FIELD.
func ruleID(c ErrorClass) string {
	return "TALOSCONF-" + strings.ToUpper(strings.ReplaceAll(string(c), "_", "-"))
}

// SARIFReporter collects results into a SARIF 2.1.0 log written on Close.
// It is safe for concurrent use.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure.
	mu sync.Mutex
}

// NewSARIFReporter creates a reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string, logger *zap.Logger) *SARIFReporter {
	descriptors := make([]*sarif.ReportingDescriptor, 0, len(rules))
	for _, rs := range rules {
		descriptors = append(descriptors, &sarif.ReportingDescriptor{
			ID:               ruleID(rs.class),
			Name:             pString(rs.name),
			ShortDescription: &sarif.MultiformatMessageString{Text: pString(rs.description)},
			DefaultConfig:    &sarif.ReportingConfiguration{Level: sarif.LevelError},
		})
	}

	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						Rules:          descriptors,
					},
				},
				// Initialize empty slices (not nil) for proper JSON marshalling
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{writer: writer, logger: logger, log: log}
}

// Write records the file as an artifact and, if it failed validation, adds a result.
func (r *SARIFReporter) Write(result *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	if run.AutomationDetails == nil && result.RunID != "" {
		run.AutomationDetails = &sarif.AutomationDetails{GUID: result.RunID}
	}
	run.Artifacts = append(run.Artifacts, &sarif.Artifact{
		Location: &sarif.ArtifactLocation{URI: pString(result.File)},
	})
	if result.Valid {
		return nil
	}

	index := ruleIndex(result.Class)
	run.Results = append(run.Results, &sarif.Result{
		RuleID:    ruleID(rules[index].class),
		RuleIndex: index,
		Message:   &sarif.Message{Text: pString(result.Message)},
		Level:     sarif.LevelError,
		Locations: []*sarif.Location{createLocation(result)},
	})
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Debug("Wrote SARIF report",
		zap.Int("total_results", len(r.log.Runs[0].Results)),
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

func ruleIndex(c ErrorClass) int {
	for i, rs := range rules {
		if rs.class == c {
			return i
		}
	}
	// Unclassified failures are reported as I/O errors.
	return len(rules) - 1
}

func createLocation(result *Result) *sarif.Location {
	loc := &sarif.Location{
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(result.File)},
		},
	}
	if result.Line > 0 {
		loc.PhysicalLocation.Region = &sarif.Region{StartLine: result.Line}
	}
	if result.Key != "" {
		loc.LogicalLocations = []*sarif.LogicalLocation{{FullyQualifiedName: result.Key, Kind: "member"}}
	}
	return loc
}

// pString returns a pointer to the given string value. Helper for optional SARIF fields.
func pString(s string) *string {
	return &s
}
