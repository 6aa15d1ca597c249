// Package main is the entry point for the git-observer application.
// git-observer receives GitHub push webhooks and redeploys the docker-compose
// services whose code changed.
package main

import (
	"io"
	"os"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/MyCarrier-DevOps/git-observer/cmd"
	"github.com/MyCarrier-DevOps/git-observer/internal/adapters/catalog"
	"github.com/MyCarrier-DevOps/git-observer/internal/adapters/executor"
	"github.com/MyCarrier-DevOps/git-observer/internal/adapters/git"
	logadapter "github.com/MyCarrier-DevOps/git-observer/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/git-observer/internal/adapters/output"
	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
	"github.com/MyCarrier-DevOps/git-observer/internal/infrastructure/config"
)

func main() {
	cmd.SetDefaultDependencies(productionDependencies(func() logadapter.Logger {
		return logger.NewZapLoggerFromConfig()
	}))
	cmd.Execute()
}

// productionDependencies wires the real adapters. The base logger is built on
// first use so it picks up the level resolved from configuration.
func productionDependencies(newLogger func() logadapter.Logger) *cmd.Dependencies {
	var base *logadapter.ZapAdapter
	root := func() *logadapter.ZapAdapter {
		if base == nil {
			base = logadapter.NewZapAdapter(newLogger())
		}
		return base
	}
	component := func(name string) *logadapter.ZapAdapter {
		return root().With(map[string]any{"component": name})
	}

	return &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			return root()
		},

		ConfigLoader: config.Load,

		RepositoryFactory: func(path string, _ cmd.Logger) (cmd.Repository, error) {
			return git.NewGoGitRepository(path, component("git"))
		},

		SudoPullerFactory: func(cfg *config.Config, _ cmd.Logger) domain.RepositoryPuller {
			return executor.NewSudoPuller(cfg.Repo, cfg.PullingUser, executor.NewExecRunner(component("pull")))
		},

		CatalogFactory: func(cfg *config.Config, _ cmd.Logger) domain.CatalogSource {
			return catalog.NewComposeCatalog(cfg.Repo, cfg.ComposeFile, cfg.CatalogTimeout, component("catalog"))
		},

		ExecutorFactory: func(cfg *config.Config, _ cmd.Logger) domain.ActionExecutor {
			log := component("executor")
			return executor.NewShellExecutor(executor.ShellConfig{
				RepoPath:       cfg.Repo,
				RebuildCommand: cfg.RebuildCommand,
				ComposeCommand: cfg.ComposeCommand,
				ComposeFile:    cfg.ComposeFile,
				Gateway:        cfg.GatewayService,
			}, executor.NewExecRunner(log), log)
		},

		OutputWriterFactory: func(w io.Writer) domain.OutputWriter {
			return output.NewWriterWithOutput(w)
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}
