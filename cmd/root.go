// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/internal/config"
	"github.com/xkilldash9x/socialgraph-cli/internal/observability"
)

var (
	appConfig   config.Interface
	appConfigMu sync.RWMutex
)

// getConfig returns the configuration resolved during PersistentPreRunE.
func getConfig() config.Interface {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setConfig(cfg config.Interface) {
	appConfigMu.Lock()
	defer appConfigMu.Unlock()
	appConfig = cfg
}

// NewRootCommand builds a fresh root command tree. Each invocation gets its
// own flag state so runs never leak flags into each other.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:     "socialgraph-cli",
		Short:   "Collects a social graph and automates friend-list maintenance through a logged-in browser session.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := initializeViper(cfgFile)
			if err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				// Fall back to a usable logger so the failure is visible.
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "socialgraph",
				})
				return fmt.Errorf("loading configuration: %w", err)
			}

			applyRootFlags(cmd, cfg)
			observability.InitializeLogger(cfg.Logger())
			setConfig(cfg)

			observability.GetLogger().Debug("Configuration resolved.",
				zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output path (default stdout)")
	rootCmd.PersistentFlags().StringP("format", "f", "json", "output format (json, csv)")
	rootCmd.PersistentFlags().Bool("headless", true, "run the browser headless")
	rootCmd.PersistentFlags().String("remote-url", "", "attach to a running browser over the DevTools protocol")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newCollectCmd(),
		newAutomateCmd(),
		newCancelCmd(),
		newUnfriendCmd(),
	)
	return rootCmd
}

// applyRootFlags folds explicitly set persistent flags into the config,
// which gives flags precedence over file and environment values.
func applyRootFlags(cmd *cobra.Command, cfg config.Interface) {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("headless") {
		headless, _ := flags.GetBool("headless")
		cfg.SetBrowserHeadless(headless)
	}
	if flags.Changed("remote-url") {
		remote, _ := flags.GetString("remote-url")
		cfg.SetBrowserRemoteURL(remote)
	}

	output, _ := flags.GetString("output")
	format, _ := flags.GetString("format")
	report := cfg.Report()
	report.Output = output
	report.Format = format
	cfg.SetReportConfig(report)
}

// initializeViper reads the config file (when present) and the environment.
func initializeViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SOCIALGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}
	return v, nil
}

// Execute runs the CLI with a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed.", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}
