// Package cli holds the dosekeeper command tree.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/dosekeeper/internal/config"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	dataDir    string

	lookupEnv config.LookupEnv
	newLogger func(cfg config.Config) (*zap.Logger, error)
}

// NewRootCommand builds the dosekeeper command tree reading the process
// environment.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootOptions{lookupEnv: os.LookupEnv, newLogger: newLogger})
}

func newRootCommand(options *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "dosekeeper",
		Short:         "Meal, insulin dose and glucose tracking engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&options.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&options.dataDir, "data-dir", "", "data directory (overrides DATA_DIR)")

	root.AddCommand(
		newServeCommand(options),
		newCatalogCommand(options),
		newExportCommand(options),
		newBackupCommand(options),
		newTokenCommand(options),
		newSecretCommand(),
	)
	return root
}

// loadConfig layers the --data-dir flag over the environment.
func (options *rootOptions) loadConfig() (config.Config, error) {
	lookup := options.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if dataDir := strings.TrimSpace(options.dataDir); dataDir != "" {
		base := lookup
		lookup = func(key string) (string, bool) {
			if key == "DATA_DIR" {
				return dataDir, true
			}
			return base(key)
		}
	}

	cfg, err := config.LoadWithEnv(options.configPath, lookup)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (options *rootOptions) logger(cfg config.Config) (*zap.Logger, error) {
	if options.newLogger == nil {
		return zap.NewNop(), nil
	}
	return options.newLogger(cfg)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	zapConfig.Encoding = "console"
	zapConfig.DisableStacktrace = true
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
