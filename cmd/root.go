// Package cmd provides the CLI commands for git-observer.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MyCarrier-DevOps/git-observer/internal/adapters/webhook"
	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
	"github.com/MyCarrier-DevOps/git-observer/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/git-observer/internal/usecases"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Repository is the deployment checkout: it can be described and pulled in-process.
type Repository interface {
	domain.RepositoryPuller
	domain.RepositoryInspector
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance. It is called after configuration
	// is loaded so LOG_LEVEL reflects the resolved level.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func(ctx context.Context, opts config.Options) (*config.Config, error)

	// RepositoryFactory opens the deployment checkout at path.
	RepositoryFactory func(path string, log Logger) (Repository, error)

	// SudoPullerFactory creates the puller used when a pulling user is configured.
	SudoPullerFactory func(cfg *config.Config, log Logger) domain.RepositoryPuller

	// CatalogFactory creates the service catalog source.
	CatalogFactory func(cfg *config.Config, log Logger) domain.CatalogSource

	// ExecutorFactory creates the ActionExecutor.
	ExecutorFactory func(cfg *config.Config, log Logger) domain.ActionExecutor

	// OutputWriterFactory creates an OutputWriter writing to w.
	OutputWriterFactory func(w io.Writer) domain.OutputWriter

	// Listen opens the HTTP listener. Nil uses net.Listen("tcp", addr).
	Listen func(addr string) (net.Listener, error)

	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// Command-line flags.
var (
	envFile string
	verbose bool
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for git-observer.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "git-observer [repo] [secret] [port] [rebuild-command] [user] [branch-pattern]",
		Short: "Redeploy docker-compose services when their code is pushed",
		Long: `git-observer listens for GitHub push webhooks and keeps a docker-compose
deployment in step with its repository.

Each authenticated push is pulled into the deployment checkout. The files
changed by the head commit are matched against the services declared in the
compose manifest: when some services changed only those are rebuilt and the
gateway is restarted, when every service changed the rebuild command runs.

Every positional argument is optional and overrides the matching environment
variable (REPO, WEBHOOK_SECRET, PORT, REBUILD_COMMAND, PULLING_USER,
BRANCH_PATTERN), which in turn overrides the .env file.

Examples:
  # Watch ../app on port 8000 with the secret from WEBHOOK_SECRET
  git-observer ../app

  # Only deploy release branches, pulling as the deploy user
  git-observer /srv/app s3cret 9000 "bash rebuild.sh" deploy "release/*"

  # Enable verbose logging
  git-observer -v`,
		Args:         cobra.MaximumNArgs(6),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args, deps)
		},
	}

	rootCmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile,
		"Dotenv file read for configuration; skipped when missing")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runServe loads configuration, wires the observer and serves until the
// context is cancelled or a termination signal arrives.
func runServe(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := deps.ConfigLoader(ctx, config.Options{
		Args:    args,
		EnvFile: envFile,
		Verbose: verbose,
	})
	if err != nil {
		writeWarningf(stderr, "error: %v\n", err)
		return fmt.Errorf("configuration error: %w", err)
	}

	// Best-effort: the logger reads its level and app name from the environment.
	for key, value := range map[string]string{"LOG_LEVEL": cfg.LogLevel, "LOG_APP_NAME": cfg.LogAppName} {
		if err := os.Setenv(key, value); err != nil {
			writeWarningf(stderr, "warning: could not set %s: %v\n", key, err)
		}
	}

	log := deps.LoggerFactory()

	repo, err := deps.RepositoryFactory(cfg.Repo, log)
	if err != nil {
		log.Error(ctx, "failed to open git repository", err, map[string]interface{}{
			"path": cfg.Repo,
		})
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			return fmt.Errorf("not a git repository: %s", cfg.Repo)
		}
		return err
	}

	fields := map[string]interface{}{
		"path":           cfg.Repo,
		"port":           cfg.Port,
		"branch_pattern": cfg.BranchPattern,
		"pull_only":      cfg.PullOnly,
		"match_mode":     cfg.MatchMode,
		"gateway":        cfg.GatewayService,
	}
	if info, err := repo.Describe(ctx); err != nil {
		log.Warn(ctx, "could not describe repository", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		fields["repository"] = info.Repository
		fields["branch"] = info.Branch
		fields["head_sha"] = info.HeadSHA
	}
	log.Info(ctx, "starting git-observer", fields)

	var puller domain.RepositoryPuller = repo
	if cfg.PullingUser != "" {
		puller = deps.SudoPullerFactory(cfg, log)
	}

	output := deps.OutputWriterFactory(stdout)
	observer := usecases.NewObserver(
		usecases.ObserverConfig{
			Secret:        cfg.WebhookSecret,
			BranchPattern: cfg.BranchPattern,
			Gateway:       cfg.GatewayService,
			PullOnly:      cfg.PullOnly,
			MatchMode:     domain.MatchMode(cfg.MatchMode),
			Target:        cfg.Repo,
		},
		deps.CatalogFactory(cfg, log),
		puller,
		deps.ExecutorFactory(cfg, log),
		output,
		nil,
		log,
	)

	dispatcher := webhook.NewDispatcher(ctx, observer, log)
	handler := webhook.NewHandler(dispatcher, log, cfg.MaxBodyBytes)

	listen := deps.Listen
	if listen == nil {
		listen = func(addr string) (net.Listener, error) { return net.Listen("tcp", addr) }
	}
	listener, err := listen(cfg.Address())
	if err != nil {
		log.Error(ctx, "failed to listen", err, map[string]interface{}{
			"address": cfg.Address(),
		})
		return fmt.Errorf("listen error: %w", err)
	}

	server := &http.Server{
		Handler:           handler.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if err := output.WriteBanner(listener.Addr().String(), cfg.Repo); err != nil {
		log.Warn(ctx, "failed to write banner", map[string]interface{}{
			"error": err.Error(),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down", map[string]interface{}{
			"timeout": cfg.ShutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "http server did not shut down cleanly", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "in-flight deployments were cancelled", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error(ctx, "git-observer stopped", err, nil)
		return err
	}
	log.Info(ctx, "git-observer stopped", nil)
	return nil
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		// Intentionally ignored: no recovery action for failed stderr writes
		return
	}
}
