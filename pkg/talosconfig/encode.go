// File: pkg/talosconfig/encode.go
package talosconfig

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Marshal renders a document as YAML. Defaults applied at load time are
// written out explicitly, so loading the output yields an equal Document.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush document: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalYAML writes the vector in flow style, e.g. [0.6, 0.4, 1.1].
func (v Vec3) MarshalYAML() (any, error) {
	return floatSeq(v[:]), nil
}

// MarshalYAML writes segments in state-vector order with flow-style weights.
func (w SegmentWeights) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range sortedKeys(w) {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			floatSeq(w[k]),
		)
	}
	return n, nil
}

func floatSeq(xs []float64) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, x := range xs {
		n.Content = append(n.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(x, 'g', -1, 64),
		})
	}
	return n
}
