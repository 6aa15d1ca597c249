package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Defaults for ShellConfig.
const (
	DefaultComposeCommand = "docker-compose"
	DefaultComposeFile    = "docker-compose.yml"
	DefaultRebuildCommand = "bash rebuild.sh"
)

// ShellConfig configures ShellExecutor.
type ShellConfig struct {
	// RepoPath is the working directory of every command.
	RepoPath string

	// RebuildCommand is the catch-all command run through "sh -c" by a full plan.
	RebuildCommand string

	// ComposeCommand is the compose binary, e.g. "docker-compose" or "docker compose".
	ComposeCommand string

	// ComposeFile is passed with -f unless it is the default manifest.
	ComposeFile string

	// Gateway is the service restarted by RestartGateway.
	Gateway string
}

// ShellExecutor implements domain.ActionExecutor with compose and shell commands.
type ShellExecutor struct {
	cfg    ShellConfig
	runner Runner
	logger Logger
}

// NewShellExecutor creates a ShellExecutor; empty config fields take the defaults.
func NewShellExecutor(cfg ShellConfig, runner Runner, log Logger) *ShellExecutor {
	if cfg.RebuildCommand == "" {
		cfg.RebuildCommand = DefaultRebuildCommand
	}
	if strings.TrimSpace(cfg.ComposeCommand) == "" {
		cfg.ComposeCommand = DefaultComposeCommand
	}
	if cfg.ComposeFile == "" {
		cfg.ComposeFile = DefaultComposeFile
	}
	return &ShellExecutor{cfg: cfg, runner: runner, logger: log}
}

// RunFull runs the configured rebuild command.
func (e *ShellExecutor) RunFull(ctx context.Context) error {
	e.logger.Info(ctx, "rebuilding all services", map[string]interface{}{
		"command": e.cfg.RebuildCommand,
	})
	return e.runner.Run(ctx, e.cfg.RepoPath, "sh", "-c", e.cfg.RebuildCommand)
}

// StopService stops one compose service.
func (e *ShellExecutor) StopService(ctx context.Context, name string) error {
	return e.compose(ctx, "stop", name)
}

// RemoveService removes the stopped containers of one compose service.
func (e *ShellExecutor) RemoveService(ctx context.Context, name string) error {
	return e.compose(ctx, "rm", "-f", name)
}

// RebuildAll builds and starts every service that is not running.
func (e *ShellExecutor) RebuildAll(ctx context.Context) error {
	return e.compose(ctx, "up", "-d", "--no-deps", "--build")
}

// RestartGateway restarts the gateway service.
func (e *ShellExecutor) RestartGateway(ctx context.Context) error {
	if e.cfg.Gateway == "" {
		return errors.New("no gateway service configured")
	}
	return e.compose(ctx, "restart", e.cfg.Gateway)
}

func (e *ShellExecutor) compose(ctx context.Context, args ...string) error {
	argv := strings.Fields(e.cfg.ComposeCommand)
	if filepath.Clean(e.cfg.ComposeFile) != DefaultComposeFile {
		argv = append(argv, "-f", e.cfg.ComposeFile)
	}
	argv = append(argv, args...)
	return e.runner.Run(ctx, e.cfg.RepoPath, argv[0], argv[1:]...)
}

// SudoPuller implements domain.RepositoryPuller by running "git pull" as another user.
type SudoPuller struct {
	repoPath string
	user     string
	runner   Runner
}

// NewSudoPuller creates a puller running "sudo -H -u <user> git pull" in repoPath.
func NewSudoPuller(repoPath, user string, runner Runner) *SudoPuller {
	return &SudoPuller{repoPath: repoPath, user: user, runner: runner}
}

// Pull runs git pull as the configured user.
func (p *SudoPuller) Pull(ctx context.Context) error {
	return p.runner.Run(ctx, p.repoPath, "sudo", "-H", "-u", p.user, "git", "pull")
}
