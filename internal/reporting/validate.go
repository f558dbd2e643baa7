// internal/reporting/validate.go
package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/talosconf/pkg/talosconfig"
)

// ValidateFunc loads and checks a single file.
type ValidateFunc func(ctx context.Context, path string) (*talosconfig.Document, error)

// ValidateFiles runs fn over files with at most concurrency calls in flight.
// Validation failures are recorded in the results, which keep the order of
// files. The returned error is non-nil only when ctx is cancelled.
func ValidateFiles(ctx context.Context, files []string, fn ValidateFunc, concurrency int) ([]*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	runID := uuid.New().String()
	results := make([]*Result, len(files))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			start := time.Now()
			doc, err := fn(groupCtx, file)
			results[i] = NewResult(runID, file, doc, err, time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
