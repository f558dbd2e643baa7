// File: pkg/talosconfig/loader.go
package talosconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var errEmptyDocument = errors.New("document is empty")

var documentType = reflect.TypeOf(Document{})

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used to report applied defaults and ignored keys.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithKind forces the document kind instead of detecting it from the top-level keys.
func WithKind(kind Kind) Option {
	return func(l *Loader) { l.kind = kind }
}

// Loader turns a YAML training document into a validated Document.
// A Loader holds no per-load state and may be shared between goroutines.
type Loader struct {
	logger *zap.Logger
	kind   Kind
}

// NewLoader creates a Loader. Without options it detects the document kind
// and logs nothing.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile loads and validates the document at path using default options.
func LoadFile(path string, opts ...Option) (*Document, error) {
	return NewLoader(opts...).LoadFile(path)
}

// LoadFile opens, loads and validates the document at path.
func (l *Loader) LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return l.Load(f, path)
}

// LoadBytes loads and validates an in-memory document. source is only used in
// error messages and logs.
func (l *Loader) LoadBytes(b []byte, source string) (*Document, error) {
	return l.Load(bytes.NewReader(b), source)
}

// Load reads a single YAML document from r and validates it. On any error
// the returned Document is nil.
func (l *Loader) Load(r io.Reader, source string) (*Document, error) {
	logger := l.logger.With(zap.String("source", source))

	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Source: source, Err: errEmptyDocument}
		}
		return nil, &ParseError{Source: source, Err: err}
	}
	if len(root.Content) == 0 {
		return nil, &ParseError{Source: source, Err: errEmptyDocument}
	}
	top := resolveAlias(root.Content[0])
	if isNull(top) {
		return nil, &ParseError{Source: source, Err: errEmptyDocument}
	}
	if top.Kind != yaml.MappingNode {
		return nil, mismatch("", "mapping", top)
	}

	kind, err := l.detectKind(top)
	if err != nil {
		return nil, err
	}

	walker := &schemaWalker{}
	if err := walker.walk("", top, documentType); err != nil {
		return nil, err
	}

	var doc Document
	if err := top.Decode(&doc); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	if err := structValidator().Struct(&doc); err != nil {
		return nil, walker.locate(translateValidation(err))
	}
	if err := crossCheck(&doc, kind); err != nil {
		return nil, walker.locate(err)
	}

	for _, key := range walker.unknown {
		logger.Warn("Ignoring unrecognized configuration key", zap.String("key", key))
	}
	for _, d := range walker.defaulted {
		logger.Info("Configuration key absent, using default", zap.String("key", d.key), zap.String("default", d.value))
	}
	logger.Debug("Configuration loaded",
		zap.String("kind", string(kind)),
		zap.String("training", doc.Training.Name),
		zap.Int("controlled_joints", len(doc.RobotDesigner.Joints())),
	)
	return &doc, nil
}

func (l *Loader) detectKind(top *yaml.Node) (Kind, error) {
	_, hasSAC := mappingValue(top, "SAC")
	_, hasOCP := mappingValue(top, "OCP")
	if hasSAC && hasOCP {
		return "", &ConflictError{Key: "SAC", Other: "OCP"}
	}

	switch l.kind {
	case KindSAC:
		if !hasSAC {
			return "", &MissingFieldError{Key: "SAC"}
		}
		return KindSAC, nil
	case KindMPCRL:
		if !hasOCP {
			return "", &MissingFieldError{Key: "OCP"}
		}
		return KindMPCRL, nil
	}

	switch {
	case hasSAC:
		return KindSAC, nil
	case hasOCP:
		return KindMPCRL, nil
	}
	return "", &MissingFieldError{Key: "SAC", Alternatives: []string{"OCP"}}
}
