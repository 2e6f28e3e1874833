// Package cmd provides the CLI commands for searchindex.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sharethrift/searchindex/internal/config"
	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/logging"
	"github.com/sharethrift/searchindex/internal/profiling"
	"github.com/sharethrift/searchindex/internal/search"
	"github.com/sharethrift/searchindex/internal/telemetry"
	"github.com/sharethrift/searchindex/pkg/version"
)

// app is the state shared by one command tree.
type app struct {
	configPath string
	logLevel   string
	debug      bool
	profile    profiling.Options

	cfg     *config.Config
	loadErr error
	logger  *slog.Logger
	cleanup func()
	session *profiling.Session
}

// NewRootCmd creates the root command for the searchindex CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "searchindex",
		Short: "Embedded full-text search index with OData filters",
		Long: `searchindex loads documents from a fixture file into an in-memory
search index and answers queries against it.

Queries support simple and full Lucene-style syntax, OData-style filters,
ordering, paging and facets. The watch command keeps an index in sync with
its fixture and only rewrites documents whose content changed.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("searchindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: user config if present)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to the rotated log file")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write heap profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = a.setup
	cmd.PersistentPostRunE = a.teardown

	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newHashCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints a formatted error on failure.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, serrors.FormatForCLI(err))
	}
	return err
}

// setup loads configuration and installs the logger. A config that fails to
// load is kept as loadErr so that commands which do not need it still run.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.cfg, a.loadErr = config.Load(a.configPath)

	logCfg := logging.DefaultConfig()
	if a.cfg != nil {
		logCfg = a.cfg.LoggingSetup()
	}
	if a.debug {
		logCfg = logging.DebugConfig()
	}
	if a.logLevel != "" {
		if !logging.ValidLevel(a.logLevel) {
			return serrors.ValidationError(fmt.Sprintf("invalid --log-level %q", a.logLevel), nil).
				WithSuggestion("use debug, info, warn or error")
		}
		logCfg.Level = a.logLevel
	}
	logCfg.Stderr = cmd.ErrOrStderr()

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = logger
	a.cleanup = cleanup
	slog.SetDefault(logger)

	if a.profile.Enabled() {
		a.session, err = profiling.Start(a.profile)
		if err != nil {
			return err
		}
	}

	logger.Debug("cli_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version))
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	err := a.session.Stop()
	a.session = nil
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	return err
}

// config returns the loaded configuration or the load error.
func (a *app) config() (*config.Config, error) {
	if a.loadErr != nil {
		return nil, a.loadErr
	}
	if a.cfg == nil {
		return config.NewConfig(), nil
	}
	return a.cfg, nil
}

func (a *app) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// newService starts a search service configured from cfg.
func (a *app) newService(ctx context.Context, cfg *config.Config) (*search.Service, error) {
	metrics := telemetry.NewQueryMetricsWithConfig(telemetry.QueryMetricsConfig{
		TopTermsCapacity: cfg.Telemetry.TopQueries,
	})
	svc, err := search.NewService(
		search.WithLogger(a.log()),
		search.WithSearchConfig(cfg.Search),
		search.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	if err := svc.Startup(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}
