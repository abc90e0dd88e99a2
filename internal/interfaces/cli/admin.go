package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/protwis/signprot/internal/config"
)

const defaultMigrationsDir = "migrations"

// NewMigrateCmd applies the catalog schema migrations.
func NewMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			deps, err := cliCtx.Deps(cmd.Context())
			if err != nil {
				return err
			}
			if err := deps.Migrate(cmd.Context(), dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: migrations in %s applied\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", defaultMigrationsDir, "migrations directory")
	return cmd
}

// NewConfigCmd groups configuration commands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd, maskSecrets(*cliCtx.Config))
		},
	})
	return cmd
}

const masked = "******"

// maskSecrets returns a copy of cfg without passwords and keys.
func maskSecrets(cfg config.Config) config.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = masked
		}
	}
	mask(&cfg.Database.Postgres.Password)
	mask(&cfg.Cache.Redis.Password)
	mask(&cfg.Storage.MinIO.AccessKey)
	mask(&cfg.Storage.MinIO.SecretKey)
	return cfg
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "signprot %s\n  commit: %s\n  built:  %s\n  go:     %s\n",
				Version, GitCommit, BuildDate, runtime.Version())
		},
	}
}
