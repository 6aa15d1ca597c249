// Package executor carries out rebuild plans and pulls by running processes.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Logger defines the logging interface for the executor adapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Runner runs one process in dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner implements Runner with os/exec, streaming output lines to the logger.
type ExecRunner struct {
	logger Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(log Logger) *ExecRunner {
	return &ExecRunner{logger: log}
}

// Run executes name with args in dir and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // operator-configured command
	cmd.Dir = dir

	command := strings.Join(append([]string{name}, args...), " ")
	stdout := &logWriter{ctx: ctx, logger: r.logger, command: command, stream: "stdout"}
	stderr := &logWriter{ctx: ctx, logger: r.logger, command: command, stream: "stderr"}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.logger.Debug(ctx, "running command", map[string]interface{}{
		"command": command,
		"dir":     dir,
	})

	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return fmt.Errorf("command %q failed with exit code %d: %w", command, exitCode, err)
	}
	return nil
}

// logWriter forwards complete output lines to the logger.
type logWriter struct {
	ctx     context.Context
	logger  Logger
	command string
	stream  string

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line; keep it for the next write.
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *logWriter) emit(line string) {
	if line == "" {
		return
	}
	w.logger.Info(w.ctx, line, map[string]interface{}{
		"command": w.command,
		"stream":  w.stream,
	})
}
