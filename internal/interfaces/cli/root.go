// Package cli is the signprot command tree: signature and match runs against
// the catalog, the complex-interaction build and maintenance commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/protwis/signprot/internal/application/interaction"
	"github.com/protwis/signprot/internal/application/signature"
	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
}

// Dependencies are the services commands run against. Close releases the
// connections behind them.
type Dependencies struct {
	Signature signature.Service
	// Build runs the complex-interaction builder over codes (all complexes
	// when empty) with the given number of workers.
	Build   func(ctx context.Context, codes []string, workers int) (*interaction.Summary, error)
	Migrate func(ctx context.Context, dir string) error
	Close   func() error
}

// DependencyFactory opens the dependencies for a loaded configuration.
type DependencyFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Dependencies, error)

// CLIContext carries the loaded configuration through the command tree.
// Dependencies are opened on first use so that commands such as version and
// config show work without a database.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Verbose      bool

	factory   DependencyFactory
	once      sync.Once
	closeOnce sync.Once
	deps      *Dependencies
	depsErr   error
}

// Deps opens the dependencies once per invocation.
func (c *CLIContext) Deps(ctx context.Context) (*Dependencies, error) {
	c.once.Do(func() {
		if c.factory == nil {
			c.depsErr = errors.New(errors.ErrCodeInternal, "no dependency factory configured")
			return
		}
		c.deps, c.depsErr = c.factory(ctx, c.Config, c.Logger)
	})
	return c.deps, c.depsErr
}

func (c *CLIContext) close() {
	c.closeOnce.Do(c.doClose)
}

func (c *CLIContext) doClose() {
	if c.deps != nil && c.deps.Close != nil {
		if err := c.deps.Close(); err != nil {
			c.Logger.Warn("Closing dependencies failed", logging.Err(err))
		}
	}
	_ = c.Logger.Sync()
}

// NewRootCommand creates the root command with its global flags and every
// subcommand.
func NewRootCommand(factory DependencyFactory) *cobra.Command {
	cmd, _ := newRootCommand(factory)
	return cmd
}

// newRootCommand also returns a func that releases whatever the run opened.
// PersistentPostRun does not fire when a command fails, so Execute calls it.
func newRootCommand(factory DependencyFactory) (*cobra.Command, func()) {
	opts := &RootOptions{}
	var current *CLIContext
	release := func() {
		if current != nil {
			current.close()
		}
	}

	cmd := &cobra.Command{
		Use:   "signprot",
		Short: "Sequence signatures and receptor–transducer interactions",
		Long: "signprot computes feature signatures that separate two sets of receptors,\n" +
			"scores receptors against a stored signature and builds the interaction\n" +
			"catalog of receptor–transducer complex structures.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := persistentPreRun(cmd, opts, factory)
			current = c
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			release()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./signprot.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")

	cmd.AddCommand(
		NewSignatureCmd(),
		NewMatchCmd(),
		NewBuildCmd(),
		NewMigrateCmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	)
	return cmd, release
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, factory DependencyFactory) (*CLIContext, error) {
	cfg, err := initConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}
	logger, err := initLogger(opts)
	if err != nil {
		return nil, fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		Verbose:      opts.Verbose,
		factory:      factory,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return cliCtx, nil
}

// initConfig loads the explicit path, else the first config file found in
// the search paths, else SIGNPROT_* variables and defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}
	searchPaths := []string{"./signprot.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".signprot", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/signprot/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

// initLogger writes console output to stderr so stdout stays parseable.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLI context not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the command tree with the given factory and prints the error,
// if any, to stderr.
func Execute(ctx context.Context, factory DependencyFactory) error {
	rootCmd, release := newRootCommand(factory)
	defer release()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}
