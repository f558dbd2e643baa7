// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/talosconf/internal/config"
	"github.com/xkilldash9x/talosconf/internal/observability"
)

type contextKey string

// configKey stores the validated config.Interface in the command context.
const configKey contextKey = "talosconf.config"

// rootOptions holds the persistent flags of one command tree.
type rootOptions struct {
	cfgFile  string
	logLevel string
}

// NewRootCommand builds a fresh command tree. Flags of one tree never leak into another.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "talosconf",
		Short: "talosconf validates Talos humanoid training configurations.",
		Long: `talosconf loads the YAML documents that drive SAC+HER and MPC-RL training
of the Talos humanoid, applies defaults, and reports the first problem in each
file with the offending key.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Usage is noise once arguments have been accepted.
			cmd.SilenceUsage = true

			v := viper.New()
			config.SetDefaults(v)
			if err := initializeConfig(v, opts.cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "talosconf"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			if opts.logLevel != "" {
				if err := observability.SetLevel(opts.logLevel); err != nil {
					return err
				}
			}
			observability.GetLogger().Debug("Starting talosconf", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "CLI settings file (default is ./talosconf.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logger.level (debug, info, warn, error)")

	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree with a signal-aware context and flushes the logger.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	observability.Sync()
	return err
}

// initializeConfig points viper at the settings file and the TALOSCONF_ environment.
// A missing default settings file is not an error.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if dir, err := homedir.Expand("~/.config/talosconf"); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("talosconf")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("TALOSCONF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// getConfigFromContext returns the settings stored by the root PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in command context")
	}
	return cfg, nil
}
