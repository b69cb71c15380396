// Package commands implements the schoolhub command line: the API server and
// the operator tasks that run against the same configuration.
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/schoolhub/common/logging"
	"github.com/telhawk-systems/schoolhub/internal/config"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// NewRootCommand returns the command tree.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "schoolhub",
		Short: "Multi-tenant school administration API",
		Long: `schoolhub serves the school administration API and carries the
operator tasks that go with it: schema migrations, bootstrap accounts,
token issuance and fixture seeding.

Configuration is read from --config, ./config.yaml or /etc/schoolhub/config.yaml,
then overridden by SCHOOLHUB_* environment variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
		newUserCommand(load),
		newTokenCommand(load),
		newSeedCommand(load),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

type configLoader func() (*config.Config, error)

func newLogger(w io.Writer, cfg *config.Config) *logging.Logger {
	logger := logging.NewWithWriter(w, logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		With(logging.Service(cfg.Service.Name))
	logging.SetDefault(logger)
	return logger
}
