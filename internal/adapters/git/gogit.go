// Package git provides adapters for interacting with the local deployment checkout.
// This package implements domain.RepositoryPuller and domain.RepositoryInspector using go-git/v5.
package git

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// DefaultRemote is the remote pulled from.
const DefaultRemote = "origin"

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// GoGitRepository implements domain.RepositoryPuller and domain.RepositoryInspector
// using go-git/v5. Pulls run as the observer's own OS user.
type GoGitRepository struct {
	repo   *git.Repository
	path   string
	logger Logger
}

// NewGoGitRepository opens the working copy at path.
// Returns domain.ErrRepositoryNotFound if the path is not a valid Git repository.
func NewGoGitRepository(path string, log Logger) (*GoGitRepository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	return &GoGitRepository{
		repo:   repo,
		path:   path,
		logger: log,
	}, nil
}

// Describe returns HEAD SHA, branch name and origin repository name.
// Returns domain.ErrNoRemoteOrigin if no origin remote is configured.
func (r *GoGitRepository) Describe(ctx context.Context) (*domain.RepositoryInfo, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	info := &domain.RepositoryInfo{HeadSHA: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	} else {
		r.logger.Warn(ctx, "HEAD is detached; pulls will fail until a branch is checked out", map[string]interface{}{
			"head_sha": info.HeadSHA,
			"path":     r.path,
		})
	}

	remote, err := r.repo.Remote(DefaultRemote)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get origin remote: %w", domain.ErrNoRemoteOrigin, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: origin remote has no URLs configured", domain.ErrNoRemoteOrigin)
	}

	repoName, err := parseRepoFromURL(urls[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse URL: %w", domain.ErrInvalidRemoteURL, err)
	}
	info.Repository = repoName

	return info, nil
}

// Pull fetches the checked-out branch from origin and fast-forwards the worktree.
// An already up-to-date checkout is not an error.
func (r *GoGitRepository) Pull(ctx context.Context) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return fmt.Errorf("cannot pull with detached HEAD at %s", head.Hash())
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get working tree: %w", err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:    DefaultRemote,
		ReferenceName: head.Name(),
		SingleBranch:  true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		r.logger.Debug(ctx, "repository already up to date", map[string]interface{}{
			"path":     r.path,
			"head_sha": head.Hash().String(),
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to pull %s: %w", head.Name().Short(), err)
	}

	newHead, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD after pull: %w", err)
	}

	r.logger.Info(ctx, "pulled repository", map[string]interface{}{
		"path":   r.path,
		"branch": head.Name().Short(),
		"from":   head.Hash().String(),
		"to":     newHead.Hash().String(),
	})
	return nil
}

// Path returns the repository path.
func (r *GoGitRepository) Path() string {
	return r.path
}

// Regular expressions for parsing Git remote URLs.
var (
	// httpsURLPattern matches HTTPS URLs like:
	// https://github.com/owner/repo.git
	// https://github.com/owner/repo
	httpsURLPattern = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+?)(?:\.git)?$`)

	// sshURLPattern matches SSH URLs like:
	// git@github.com:owner/repo.git
	// ssh://git@github.com/owner/repo.git
	sshURLPattern    = regexp.MustCompile(`^git@[^:]+:([^/]+)/([^/]+?)(?:\.git)?$`)
	sshSchemePattern = regexp.MustCompile(`^ssh://(?:[^@/]+@)?[^/]+/([^/]+)/([^/]+?)(?:\.git)?$`)
)

// parseRepoFromURL extracts owner/repo from a Git remote URL.
func parseRepoFromURL(url string) (string, error) {
	url = strings.TrimSpace(url)

	for _, pattern := range []*regexp.Regexp{httpsURLPattern, sshURLPattern, sshSchemePattern} {
		if matches := pattern.FindStringSubmatch(url); len(matches) == 3 {
			return matches[1] + "/" + matches[2], nil
		}
	}

	return "", fmt.Errorf("unrecognized URL format: %s", url)
}
