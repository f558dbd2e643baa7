// -- cmd/validate.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/talosconf/internal/config"
	"github.com/xkilldash9x/talosconf/internal/observability"
	"github.com/xkilldash9x/talosconf/internal/reporting"
	"github.com/xkilldash9x/talosconf/internal/robotdesc"
	"github.com/xkilldash9x/talosconf/pkg/talosconfig"
)

// errInvalidDocuments is returned when at least one file failed validation.
// The per-file errors have already been reported, so cobra does not print it.
var errInvalidDocuments = errors.New("one or more documents failed validation")

// loaderFlags are the loader overrides shared by validate and watch.
type loaderFlags struct {
	kind        string
	checkURDF   bool
	searchPaths []string
}

func (f *loaderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "kind", "auto", "Document kind: 'auto', 'sac' or 'mpc-rl'")
	cmd.Flags().BoolVar(&f.checkURDF, "check-urdf", false, "Cross-check joints and frames against the referenced URDF/SRDF")
	cmd.Flags().StringSliceVar(&f.searchPaths, "search-path", nil, "Robot model directory (repeatable); replaces loader.search_paths")
}

// apply copies the flags the user actually set over the loaded settings.
func (f *loaderFlags) apply(cmd *cobra.Command, cfg config.Interface) {
	if cmd.Flags().Changed("kind") {
		cfg.SetLoaderKind(f.kind)
	}
	if cmd.Flags().Changed("check-urdf") {
		cfg.SetLoaderCheckURDF(f.checkURDF)
	}
	if cmd.Flags().Changed("search-path") {
		cfg.SetLoaderSearchPaths(f.searchPaths)
	}
}

// newValidateCmd creates and configures the `validate` command.
func newValidateCmd() *cobra.Command {
	var (
		loader      loaderFlags
		format      string
		output      string
		concurrency int
	)

	validateCmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate one or more training configuration files",
		Long: `Loads each file, applies defaults and checks every range, enum and
cross-field constraint. With --check-urdf the controlled joints, foot links
and tool frame are also checked against the robot model the document names.
Exits with status 1 when any file is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			loader.apply(cmd, cfg)
			if cmd.Flags().Changed("format") {
				cfg.SetReportFormat(format)
			}
			if cmd.Flags().Changed("output") {
				cfg.SetReportOutput(output)
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.SetLoaderConcurrency(concurrency)
			}

			err = runValidate(ctx, cmd.OutOrStdout(), observability.GetLogger(), cfg, args)
			if errors.Is(err, errInvalidDocuments) {
				cmd.SilenceErrors = true
			}
			return err
		},
	}

	loader.register(validateCmd)
	validateCmd.Flags().StringVarP(&format, "format", "f", "text", "Report format: 'text', 'json' or 'sarif'")
	validateCmd.Flags().StringVarP(&output, "output", "o", "stdout", "Report destination file")
	validateCmd.Flags().IntVar(&concurrency, "concurrency", 4, "Maximum number of files validated at once")
	return validateCmd
}

// runValidate contains the core, testable logic of the validate command.
func runValidate(ctx context.Context, out io.Writer, logger *zap.Logger, cfg config.Interface, files []string) error {
	loaderCfg := cfg.Loader()
	if err := loaderCfg.Validate(); err != nil {
		return fmt.Errorf("invalid loader settings: %w", err)
	}

	reporter, err := newReporter(cfg.Report(), out, logger)
	if err != nil {
		return err
	}

	logger.Info("Validating configuration files",
		zap.Int("files", len(files)),
		zap.String("kind", loaderCfg.Kind),
		zap.Bool("check_urdf", loaderCfg.CheckURDF),
	)

	results, err := reporting.ValidateFiles(ctx, files, newValidateFunc(loaderCfg, logger), loaderCfg.Concurrency)
	if err != nil {
		_ = reporter.Close()
		return fmt.Errorf("validation aborted: %w", err)
	}

	for _, r := range results {
		if err := reporter.Write(r); err != nil {
			_ = reporter.Close()
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}

	valid, invalid := reporting.Summary(results)
	logger.Info("Validation finished", zap.Int("valid", valid), zap.Int("invalid", invalid))
	if invalid > 0 {
		return errInvalidDocuments
	}
	return nil
}

// newReporter writes to out unless the settings name an output file.
func newReporter(rc config.ReportConfig, out io.Writer, logger *zap.Logger) (reporting.Reporter, error) {
	if rc.Output == "" || rc.Output == "stdout" {
		return reporting.NewWithWriter(rc.Format, reporting.NopCloser(out), Version, logger)
	}
	return reporting.New(rc.Format, rc.Output, Version, logger)
}

// newValidateFunc loads a document and, when enabled, checks it against its robot model.
func newValidateFunc(lc config.LoaderConfig, logger *zap.Logger) reporting.ValidateFunc {
	loader := talosconfig.NewLoader(
		talosconfig.WithKind(lc.DocumentKind()),
		talosconfig.WithLogger(logger.Named("loader")),
	)
	resolver := robotdesc.NewResolver(lc.SearchPaths...)

	return func(ctx context.Context, path string) (*talosconfig.Document, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := loader.LoadFile(path)
		if err != nil || !lc.CheckURDF {
			return doc, err
		}
		model, err := robotdesc.Load(doc, resolver)
		if err != nil {
			return nil, err
		}
		if err := robotdesc.Check(doc, model); err != nil {
			return nil, err
		}
		return doc, nil
	}
}
