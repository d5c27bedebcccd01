package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// stderrTail bounds how much of a failing tool's stderr is logged. Tesseract
// and the HEIC converters print the useful part last.
const stderrTail = 4 << 10

// execRunner runs tesseract and the HEIC converters as child processes.
type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	tool := filepath.Base(name)

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	attrs := []any{"tool", tool, "duration_ms", time.Since(start).Milliseconds()}
	if len(args) > 0 {
		attrs = append(attrs, "input", filepath.Base(args[0]))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			attrs = append(attrs, "exit_code", exitErr.ExitCode())
		}
		r.logger.Error("ocr.exec.failed", append(attrs, "error", err, "stderr", tail(errb.String(), stderrTail))...)
	} else {
		r.logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", out.Len())...)
	}
	return out.Bytes(), errb.Bytes(), err
}

// tail keeps the last max bytes of s.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "(truncated)..." + s[len(s)-max:]
}
