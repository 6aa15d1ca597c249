// Package output provides adapters for writing application output.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// Writer writes operator-facing status lines to the configured output destination.
// By default, it writes to stdout.
type Writer struct {
	out io.Writer
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{out: os.Stdout}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
func NewWriterWithOutput(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteBanner announces the listening address and the watched checkout.
func (w *Writer) WriteBanner(addr, repoPath string) error {
	_, err := fmt.Fprintf(w.out, "Git-Observer listening on %s\nWatching repository %s\n", addr, repoPath)
	return err
}

// WriteDeployment writes one summary line for a finished deployment.
// Plans that took no action produce no output.
func (w *Writer) WriteDeployment(plan domain.RebuildPlan) error {
	var line string
	switch plan.Kind {
	case domain.PlanFull:
		line = "Rebuilt all services"
	case domain.PlanSelective:
		line = "Updated " + strings.Join(plan.Services(), ", ")
	default:
		return nil
	}
	_, err := fmt.Fprintln(w.out, line)
	return err
}
