package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger records info lines.
type testLogger struct {
	lines []string
}

func (l *testLogger) Info(_ context.Context, msg string, _ map[string]interface{}) {
	l.lines = append(l.lines, msg)
}
func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})  {}

// recordingRunner records commands instead of running them.
type recordingRunner struct {
	dirs     []string
	commands []string
	err      error
}

func (r *recordingRunner) Run(_ context.Context, dir, name string, args ...string) error {
	r.dirs = append(r.dirs, dir)
	r.commands = append(r.commands, strings.Join(append([]string{name}, args...), " "))
	return r.err
}

func TestShellExecutor_Commands(t *testing.T) {
	runner := &recordingRunner{}
	exec := NewShellExecutor(ShellConfig{RepoPath: "/srv/app", Gateway: "nginx"}, runner, &testLogger{})
	ctx := context.Background()

	require.NoError(t, exec.StopService(ctx, "api"))
	require.NoError(t, exec.RemoveService(ctx, "api"))
	require.NoError(t, exec.RebuildAll(ctx))
	require.NoError(t, exec.RestartGateway(ctx))
	require.NoError(t, exec.RunFull(ctx))

	assert.Equal(t, []string{
		"docker-compose stop api",
		"docker-compose rm -f api",
		"docker-compose up -d --no-deps --build",
		"docker-compose restart nginx",
		"sh -c bash rebuild.sh",
	}, runner.commands)
	for _, dir := range runner.dirs {
		assert.Equal(t, "/srv/app", dir)
	}
}

func TestShellExecutor_ComposePluginAndCustomFile(t *testing.T) {
	runner := &recordingRunner{}
	exec := NewShellExecutor(ShellConfig{
		RepoPath:       "/srv/app",
		ComposeCommand: "docker compose",
		ComposeFile:    "compose.prod.yml",
		RebuildCommand: "make deploy",
		Gateway:        "traefik",
	}, runner, &testLogger{})
	ctx := context.Background()

	require.NoError(t, exec.StopService(ctx, "worker"))
	require.NoError(t, exec.RestartGateway(ctx))
	require.NoError(t, exec.RunFull(ctx))

	assert.Equal(t, []string{
		"docker compose -f compose.prod.yml stop worker",
		"docker compose -f compose.prod.yml restart traefik",
		"sh -c make deploy",
	}, runner.commands)
}

func TestShellExecutor_RestartGatewayWithoutGateway(t *testing.T) {
	runner := &recordingRunner{}
	exec := NewShellExecutor(ShellConfig{RepoPath: "/srv/app"}, runner, &testLogger{})

	err := exec.RestartGateway(context.Background())

	require.Error(t, err)
	assert.Empty(t, runner.commands)
}

func TestShellExecutor_PropagatesRunnerError(t *testing.T) {
	runner := &recordingRunner{err: errors.New("exit status 1")}
	exec := NewShellExecutor(ShellConfig{RepoPath: "/srv/app"}, runner, &testLogger{})

	err := exec.StopService(context.Background(), "api")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestSudoPuller_Pull(t *testing.T) {
	runner := &recordingRunner{}
	puller := NewSudoPuller("/srv/app", "ubuntu", runner)

	require.NoError(t, puller.Pull(context.Background()))

	assert.Equal(t, []string{"sudo -H -u ubuntu git pull"}, runner.commands)
	assert.Equal(t, []string{"/srv/app"}, runner.dirs)
}

func TestExecRunner_StreamsOutputLines(t *testing.T) {
	log := &testLogger{}
	runner := NewExecRunner(log)

	err := runner.Run(context.Background(), t.TempDir(), "sh", "-c", "echo first; echo second; printf tail")

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "tail"}, log.lines)
}

func TestExecRunner_ReportsExitCode(t *testing.T) {
	runner := NewExecRunner(&testLogger{})

	err := runner.Run(context.Background(), t.TempDir(), "sh", "-c", "exit 3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 3")
}

func TestExecRunner_HonoursContext(t *testing.T) {
	runner := NewExecRunner(&testLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, t.TempDir(), "sh", "-c", "sleep 5")

	require.Error(t, err)
}
