package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/schoolhub/internal/config"
	"github.com/telhawk-systems/schoolhub/migrations"
)

var errNotPostgres = errors.New("database.type must be postgres")

func newMigrateCommand(load configLoader) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := postgresURL(load)
			if err != nil {
				return err
			}
			version, dirty, err := migrations.Up(url)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  "Roll back --steps migrations, or every migration when --steps is 0.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := postgresURL(load)
			if err != nil {
				return err
			}
			version, dirty, err := migrations.Down(url, steps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 = all)")

	migrateCmd.AddCommand(upCmd, downCmd)
	return migrateCmd
}

func postgresURL(load configLoader) (string, error) {
	cfg, err := load()
	if err != nil {
		return "", err
	}
	return requirePostgres(cfg)
}

func requirePostgres(cfg *config.Config) (string, error) {
	if cfg.Database.Type != "postgres" {
		return "", fmt.Errorf("%w, got %q", errNotPostgres, cfg.Database.Type)
	}
	return cfg.Database.Postgres.URL(), nil
}
