// File: pkg/talosconfig/fuzz_test.go
package talosconfig

import (
	"os"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
)

// FuzzLoadBytes checks the loader never panics and never returns a document
// together with an error.
func FuzzLoadBytes(f *testing.F) {
	for _, path := range []string{sacFixture, mpcFixture} {
		seed, err := os.ReadFile(path)
		if err != nil {
			f.Fatalf("read seed %s: %v", path, err)
		}
		f.Add(seed)
	}
	f.Add([]byte("SAC: {model_param: ~}\n"))
	f.Add([]byte("a: &x [*x]\n"))

	f.Fuzz(func(t *testing.T, data []byte) {
		doc, err := NewLoader().LoadBytes(data, "fuzz")
		if err != nil && doc != nil {
			t.Fatalf("got both a document and an error: %v", err)
		}
		if err == nil && doc == nil {
			t.Fatal("got neither a document nor an error")
		}
	})
}

// FuzzMarshalRoundTrip builds arbitrary documents, and for every one the
// loader accepts, checks that marshaling and reloading is lossless.
func FuzzMarshalRoundTrip(f *testing.F) {
	f.Add([]byte("seed"))
	f.Add(make([]byte, 512))

	f.Fuzz(func(t *testing.T, data []byte) {
		var generated Document
		if err := fuzz.NewConsumer(data).GenerateStruct(&generated); err != nil {
			return
		}
		out, err := Marshal(&generated)
		if err != nil {
			return
		}
		first, err := NewLoader().LoadBytes(out, "generated")
		if err != nil {
			// Most generated documents are invalid.
			return
		}

		again, err := Marshal(first)
		if err != nil {
			t.Fatalf("marshal accepted document: %v", err)
		}
		second, err := NewLoader().LoadBytes(again, "remarshaled")
		if err != nil {
			t.Fatalf("reload of accepted document failed: %v\n%s", err, again)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("round trip mismatch (-first +second):\n%s", diff)
		}
	})
}
