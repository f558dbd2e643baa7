// -- cmd/watch.go --
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/talosconf/internal/config"
	"github.com/xkilldash9x/talosconf/internal/observability"
	"github.com/xkilldash9x/talosconf/internal/reporting"
	"github.com/xkilldash9x/talosconf/internal/watch"
)

// newWatchCmd creates and configures the `watch` command.
func newWatchCmd() *cobra.Command {
	var (
		loader   loaderFlags
		debounce time.Duration
	)

	watchCmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Re-validate configuration files whenever they change",
		Long: `Validates every file once, then again each time one of them is written
or replaced, until interrupted. Results are printed one line per file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			loader.apply(cmd, cfg)
			if cmd.Flags().Changed("debounce") {
				cfg.SetWatchDebounce(debounce)
			}
			return runWatch(ctx, cmd.OutOrStdout(), observability.GetLogger(), cfg, args)
		},
	}

	loader.register(watchCmd)
	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is re-validated")
	return watchCmd
}

// runWatch validates files, then re-validates them on change until ctx is cancelled.
func runWatch(ctx context.Context, out io.Writer, logger *zap.Logger, cfg config.Interface, files []string) error {
	loaderCfg := cfg.Loader()
	if err := loaderCfg.Validate(); err != nil {
		return fmt.Errorf("invalid loader settings: %w", err)
	}

	validate := newValidateFunc(loaderCfg, logger)
	// Watch mode always prints text; the summary line of Close is never written.
	reporter := reporting.NewTextReporter(reporting.NopCloser(out))
	sessionID := uuid.NewString()

	handler := func(ctx context.Context, path string) {
		start := time.Now()
		doc, err := validate(ctx, path)
		result := reporting.NewResult(sessionID, path, doc, err, time.Since(start))
		if err := reporter.Write(result); err != nil {
			logger.Warn("Failed to write validation result", zap.String("file", path), zap.Error(err))
		}
	}

	w, err := watch.New(files, cfg.Watch().Debounce, handler, logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Register the watches before the first pass so an edit made while it
	// runs still triggers a re-validation.
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	for _, f := range files {
		handler(ctx, f)
	}

	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("watch stopped: %w", err)
	}
	logger.Info("Watch stopped")
	return nil
}
