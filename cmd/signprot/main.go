// Command signprot is the command-line entry point: signature and match runs,
// the complex-interaction build and database maintenance.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/protwis/signprot/internal/app"
	"github.com/protwis/signprot/internal/application/interaction"
	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, openDependencies); err != nil {
		stop()
		os.Exit(1)
	}
}

func openDependencies(ctx context.Context, cfg *config.Config, logger logging.Logger) (*cli.Dependencies, error) {
	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &cli.Dependencies{
		Signature: infra.SignatureService(),
		Build: func(ctx context.Context, codes []string, workers int) (*interaction.Summary, error) {
			b, err := infra.Builder(ctx, app.BuilderOptions{Workers: workers})
			if err != nil {
				return nil, err
			}
			return b.Run(ctx, codes)
		},
		Migrate: func(ctx context.Context, dir string) error {
			return infra.Postgres.RunMigrations(dir)
		},
		Close: infra.Close,
	}, nil
}
