// File: pkg/talosconfig/schema.go
package talosconfig

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// schemaWalker checks a parsed node tree against the Go types of the schema
// before the tree is decoded. yaml.v3 type errors carry no key path, so the
// walker is what turns a bad document into MissingFieldError or
// TypeMismatchError with the offending key.
//
// The walker normalizes the tree in place: null values count as absent,
// absent keys that carry a `default` struct tag are filled in, YAML 1.1 bool
// spellings become real bools and integral floats under integer keys become ints.
//
// Every key path visited is indexed by its source line so that errors raised
// after decoding can still point into the document.
type schemaWalker struct {
	defaulted []defaultedKey
	unknown   []string
	lines     map[string]int
}

type defaultedKey struct {
	key   string
	value string
}

type fieldSpec struct {
	name     string
	optional bool
	def      string
	typ      reflect.Type
}

var yaml11Bools = map[string]bool{
	"y": true, "yes": true, "on": true,
	"n": false, "no": false, "off": false,
}

func (w *schemaWalker) walk(key string, n *yaml.Node, t reflect.Type) error {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	w.record(key, n.Line)
	n = resolveAlias(n)

	switch t.Kind() {
	case reflect.Struct:
		return w.walkStruct(key, n, t)

	case reflect.Map:
		if n.Kind != yaml.MappingNode {
			return mismatch(key, "mapping", n)
		}
		flattenMerges(n)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := resolveAlias(n.Content[i])
			if k.Kind != yaml.ScalarNode || k.ShortTag() != "!!str" {
				return mismatch(joinKey(key, k.Value), "string key", k)
			}
			w.record(joinKey(key, k.Value), k.Line)
			if err := w.walk(joinKey(key, k.Value), n.Content[i+1], t.Elem()); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice:
		if n.Kind != yaml.SequenceNode {
			return mismatch(key, "sequence", n)
		}
		for i, c := range n.Content {
			if err := w.walk(indexKey(key, i), c, t.Elem()); err != nil {
				return err
			}
		}
		return nil

	case reflect.Array:
		want := fmt.Sprintf("sequence of %d numbers", t.Len())
		if n.Kind != yaml.SequenceNode || len(n.Content) != t.Len() {
			return mismatch(key, want, n)
		}
		for i, c := range n.Content {
			if err := w.walk(indexKey(key, i), c, t.Elem()); err != nil {
				return err
			}
		}
		return nil

	case reflect.Bool:
		return checkBool(key, n)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return checkInt(key, n)
	case reflect.Float32, reflect.Float64:
		return checkFloat(key, n)
	case reflect.String:
		if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
			return mismatch(key, "string", n)
		}
	}
	return nil
}

func (w *schemaWalker) walkStruct(key string, n *yaml.Node, t reflect.Type) error {
	if n.Kind != yaml.MappingNode {
		return mismatch(key, "mapping", n)
	}
	flattenMerges(n)

	fields := schemaFields(t)
	known := make(map[string]fieldSpec, len(fields))
	for _, f := range fields {
		known[f.name] = f
	}

	// Drop known keys whose value is null so they are treated as absent.
	kept := n.Content[:0]
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], resolveAlias(n.Content[i+1])
		if _, ok := known[k.Value]; ok && isNull(v) {
			continue
		}
		kept = append(kept, n.Content[i], n.Content[i+1])
	}
	n.Content = kept

	index := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		index[k.Value] = n.Content[i+1]
		if _, ok := known[k.Value]; !ok {
			w.unknown = append(w.unknown, joinKey(key, k.Value))
		}
	}

	for _, f := range fields {
		path := joinKey(key, f.name)
		v, ok := index[f.name]
		if !ok {
			switch {
			case f.def != "":
				dv, err := defaultNode(f.def)
				if err != nil {
					return fmt.Errorf("bad default for %s: %w", path, err)
				}
				clearLines(dv)
				n.Content = append(n.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.name},
					dv,
				)
				w.defaulted = append(w.defaulted, defaultedKey{key: path, value: f.def})
				v = dv
			case f.optional:
				continue
			default:
				return &MissingFieldError{Key: path}
			}
		} else {
			w.record(path, keyLine(n, f.name))
		}
		if err := w.walk(path, v, f.typ); err != nil {
			return err
		}
	}
	return nil
}

// record keeps the first line seen for a key path. Synthesized nodes have no line.
func (w *schemaWalker) record(key string, line int) {
	if key == "" || line <= 0 {
		return
	}
	if w.lines == nil {
		w.lines = make(map[string]int)
	}
	if _, ok := w.lines[key]; !ok {
		w.lines[key] = line
	}
}

// lineOf returns the line of key, or of its nearest recorded ancestor.
func (w *schemaWalker) lineOf(key string) int {
	for key != "" {
		if line, ok := w.lines[key]; ok {
			return line
		}
		i := strings.LastIndexAny(key, ".[")
		if i < 0 {
			break
		}
		key = key[:i]
	}
	return 0
}

// locate fills in the source line of errors raised after decoding, which only
// know their key path.
func (w *schemaWalker) locate(err error) error {
	var (
		rangeErr *RangeError
		enumErr  *InvalidEnumError
		arityErr *ArityMismatchError
	)
	switch {
	case errors.As(err, &rangeErr):
		if rangeErr.Line == 0 {
			rangeErr.Line = w.lineOf(rangeErr.Key)
		}
	case errors.As(err, &enumErr):
		if enumErr.Line == 0 {
			enumErr.Line = w.lineOf(enumErr.Key)
		}
	case errors.As(err, &arityErr):
		if arityErr.Line == 0 {
			arityErr.Line = w.lineOf(arityErr.Key)
		}
	}
	return err
}

// schemaFields lists the YAML-visible fields of a struct type.
func schemaFields(t reflect.Type) []fieldSpec {
	var out []fieldSpec
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(sf.Tag.Get("yaml"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		def, hasDef := sf.Tag.Lookup("default")
		out = append(out, fieldSpec{
			name:     name,
			optional: strings.Contains(opts, "omitempty") || hasDef,
			def:      def,
			typ:      sf.Type,
		})
	}
	return out
}

func defaultNode(src string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty default")
	}
	return doc.Content[0], nil
}

func clearLines(n *yaml.Node) {
	n.Line, n.Column = 0, 0
	for _, c := range n.Content {
		clearLines(c)
	}
}

// keyLine returns the line of the key node named name in a mapping.
func keyLine(n *yaml.Node, name string) int {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == name {
			return n.Content[i].Line
		}
	}
	return 0
}

// flattenMerges inlines "<<" merge keys so the walker sees every effective key.
// Keys written directly in the mapping win over merged ones.
func flattenMerges(n *yaml.Node) {
	var merged, own []*yaml.Node
	hasMerge := false
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], resolveAlias(n.Content[i+1])
		if k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
			hasMerge = true
			sources := []*yaml.Node{v}
			if v.Kind == yaml.SequenceNode {
				sources = v.Content
			}
			for _, src := range sources {
				src = resolveAlias(src)
				if src.Kind == yaml.MappingNode {
					flattenMerges(src)
					merged = append(merged, src.Content...)
				}
			}
			continue
		}
		own = append(own, n.Content[i], n.Content[i+1])
	}
	if !hasMerge {
		return
	}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(own); i += 2 {
		seen[own[i].Value] = true
	}
	content := make([]*yaml.Node, 0, len(merged)+len(own))
	for i := 0; i+1 < len(merged); i += 2 {
		if seen[merged[i].Value] {
			continue
		}
		seen[merged[i].Value] = true
		content = append(content, merged[i], merged[i+1])
	}
	n.Content = append(content, own...)
}

func checkBool(key string, n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		switch n.ShortTag() {
		case "!!bool":
			return nil
		case "!!str":
			if n.Style == 0 {
				if b, ok := yaml11Bools[strings.ToLower(n.Value)]; ok {
					n.Tag = "!!bool"
					n.Value = strconv.FormatBool(b)
					return nil
				}
			}
		}
	}
	return mismatch(key, "bool", n)
}

func checkInt(key string, n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		switch n.ShortTag() {
		case "!!int":
			_, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, strconv.ErrRange):
				return &RangeError{
					Key:   key,
					Value: n.Value,
					Range: fmt.Sprintf("[%d, %d]", int64(math.MinInt64), int64(math.MaxInt64)),
					Line:  n.Line,
				}
			}
		case "!!float":
			f, err := strconv.ParseFloat(n.Value, 64)
			if err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
				n.Tag = "!!int"
				n.Value = strconv.FormatInt(int64(f), 10)
				return nil
			}
		}
	}
	return mismatch(key, "integer", n)
}

func checkFloat(key string, n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		switch n.ShortTag() {
		case "!!int", "!!float":
			return nil
		}
	}
	return mismatch(key, "number", n)
}

func mismatch(key, expected string, n *yaml.Node) error {
	return &TypeMismatchError{Key: key, Expected: expected, Actual: describeNode(n), Line: n.Line}
}

func describeNode(n *yaml.Node) string {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return fmt.Sprintf("sequence of %d", len(n.Content))
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str":
			return fmt.Sprintf("string %q", n.Value)
		case "!!int":
			return "integer " + n.Value
		case "!!float":
			return "float " + n.Value
		case "!!bool":
			return "bool " + n.Value
		case "!!null":
			return "null"
		}
		return n.ShortTag()
	}
	return "empty node"
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// mappingValue returns the non-null value stored under key in a mapping node.
func mappingValue(n *yaml.Node, key string) (*yaml.Node, bool) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			v := resolveAlias(n.Content[i+1])
			if isNull(v) {
				return nil, false
			}
			return v, true
		}
	}
	return nil, false
}
