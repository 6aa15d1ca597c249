package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Info(_ context.Context, _ string, _ map[string]interface{})  {}
func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})  {}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
	return strings.TrimSpace(string(output))
}

func configureUser(t *testing.T, dir string) {
	t.Helper()
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
}

func commitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", message)
}

// setupUpstreamAndClone creates an upstream repository with one commit and a
// clone of it. Returns (upstream, clone).
func setupUpstreamAndClone(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	upstream := filepath.Join(root, "upstream")
	clone := filepath.Join(root, "deploy")

	require.NoError(t, os.MkdirAll(upstream, 0o755))
	runGit(t, upstream, "init", "-b", "main")
	configureUser(t, upstream)
	commitFile(t, upstream, "docker-compose.yml", "services:\n  api:\n    image: api\n", "Initial commit")

	runGit(t, root, "clone", upstream, clone)
	configureUser(t, clone)
	return upstream, clone
}

func TestNewGoGitRepository_Success(t *testing.T) {
	_, clone := setupUpstreamAndClone(t)

	repo, err := NewGoGitRepository(clone, &testLogger{})

	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, clone, repo.Path())
}

func TestNewGoGitRepository_NotARepository(t *testing.T) {
	repo, err := NewGoGitRepository(t.TempDir(), &testLogger{})

	require.Error(t, err)
	assert.Nil(t, repo)
	assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
}

func TestGoGitRepository_Describe(t *testing.T) {
	_, clone := setupUpstreamAndClone(t)
	runGit(t, clone, "remote", "set-url", "origin", "https://github.com/TestOrg/test-repo.git")

	repo, err := NewGoGitRepository(clone, &testLogger{})
	require.NoError(t, err)

	info, err := repo.Describe(context.Background())

	require.NoError(t, err)
	assert.Len(t, info.HeadSHA, 40)
	assert.Equal(t, "main", info.Branch)
	assert.Equal(t, "TestOrg/test-repo", info.Repository)
}

func TestGoGitRepository_Describe_NoOriginRemote(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	configureUser(t, dir)
	commitFile(t, dir, "README.md", "hello", "Initial commit")

	repo, err := NewGoGitRepository(dir, &testLogger{})
	require.NoError(t, err)

	info, err := repo.Describe(context.Background())

	require.Error(t, err)
	assert.Nil(t, info)
	assert.ErrorIs(t, err, domain.ErrNoRemoteOrigin)
}

func TestGoGitRepository_Describe_LocalPathOrigin(t *testing.T) {
	_, clone := setupUpstreamAndClone(t)

	repo, err := NewGoGitRepository(clone, &testLogger{})
	require.NoError(t, err)

	_, err = repo.Describe(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRemoteURL)
}

func TestGoGitRepository_Pull_AlreadyUpToDate(t *testing.T) {
	_, clone := setupUpstreamAndClone(t)
	before := runGit(t, clone, "rev-parse", "HEAD")

	repo, err := NewGoGitRepository(clone, &testLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, repo.Pull(ctx))
	assert.Equal(t, before, runGit(t, clone, "rev-parse", "HEAD"))
}

func TestGoGitRepository_Pull_FastForwards(t *testing.T) {
	upstream, clone := setupUpstreamAndClone(t)
	commitFile(t, upstream, "services/api/index.js", "console.log('v2')", "Update api")
	want := runGit(t, upstream, "rev-parse", "HEAD")

	repo, err := NewGoGitRepository(clone, &testLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, repo.Pull(ctx))
	assert.Equal(t, want, runGit(t, clone, "rev-parse", "HEAD"))

	content, err := os.ReadFile(filepath.Join(clone, "services", "api", "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log('v2')", string(content))
}

func TestGoGitRepository_Pull_DetachedHead(t *testing.T) {
	_, clone := setupUpstreamAndClone(t)
	head := runGit(t, clone, "rev-parse", "HEAD")
	runGit(t, clone, "checkout", head)

	repo, err := NewGoGitRepository(clone, &testLogger{})
	require.NoError(t, err)

	err = repo.Pull(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "detached HEAD")
}
