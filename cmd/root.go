// -- cmd/root.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mamamind47/dsl-autofill/internal/config"
	"github.com/mamamind47/dsl-autofill/internal/observability"
	"github.com/mamamind47/dsl-autofill/internal/paths"
)

var cfgFile string

// loadedConfig is the validated configuration produced by the persistent
// pre-run hook, available to all subcommands.
var loadedConfig *config.Config

// NewRootCommand builds a fresh root command tree. Each invocation gets its
// own instance so flag state never leaks between runs.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "autofill",
		Short:   "Batch document submission for the DSL agent portal.",
		Version: Version,
		// Usage help on a failed portal run is just noise.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// This function runs before any command, setting up config and logging.
			if err := initializeConfig(); err != nil {
				return err
			}

			if err := viper.BindPFlag("browser.headless", cmd.Root().PersistentFlags().Lookup("headless")); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				// Initialize a fallback logger if config loading fails.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "dsl-autofill"})
				return fmt.Errorf("failed to load config: %w", err)
			}

			// The diagnostic log lives next to the binary unless configured
			// with an absolute path.
			if !filepath.IsAbs(cfg.Logger.LogFile) {
				layout, err := paths.Resolve()
				if err != nil {
					return fmt.Errorf("resolving application directory: %w", err)
				}
				cfg.Logger.LogFile = layout.LogFile(cfg.Logger.LogFile)
			}

			observability.InitializeLogger(cfg.Logger)
			loadedConfig = cfg

			observability.GetLogger().Info("Starting dsl-autofill", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().Bool("headless", false, "run the browser without a visible window")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newDisburseCmd(),
		newSignContractCmd(),
		newUsersCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with the given signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Use the logger if available, otherwise fall back to stderr.
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AUTOFILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars.
	}
	return nil
}
