// -- cmd/dump.go --
package cmd

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/talosconf/internal/config"
	"github.com/xkilldash9x/talosconf/internal/observability"
	"github.com/xkilldash9x/talosconf/pkg/talosconfig"
)

// dumpJSON keys objects by their YAML names so both dump formats agree.
var dumpJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	TagKey:                 "yaml",
}.Froze()

// newDumpCmd creates and configures the `dump` command.
func newDumpCmd() *cobra.Command {
	var (
		kind   string
		format string
	)

	dumpCmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print a configuration with every default filled in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("kind") {
				cfg.SetLoaderKind(kind)
			}
			return runDump(cmd.OutOrStdout(), observability.GetLogger(), cfg, args[0], format)
		},
	}

	dumpCmd.Flags().StringVar(&kind, "kind", "auto", "Document kind: 'auto', 'sac' or 'mpc-rl'")
	dumpCmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: 'yaml' or 'json'")
	return dumpCmd
}

// runDump loads path and writes the normalized document to out.
func runDump(out io.Writer, logger *zap.Logger, cfg config.Interface, path, format string) error {
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported dump format: %s", format)
	}
	loaderCfg := cfg.Loader()
	if err := loaderCfg.Validate(); err != nil {
		return fmt.Errorf("invalid loader settings: %w", err)
	}

	doc, err := talosconfig.LoadFile(path,
		talosconfig.WithKind(loaderCfg.DocumentKind()),
		talosconfig.WithLogger(logger.Named("loader")),
	)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	if format == "json" {
		enc := dumpJSON.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode %s as JSON: %w", path, err)
		}
		return nil
	}

	b, err := talosconfig.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := out.Write(b); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
