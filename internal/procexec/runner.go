package procexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"harvest/internal/services"
)

var commandContext = exec.CommandContext

const (
	defaultMaxOutputBytes = 64 * 1024
	defaultWaitDelay      = 5 * time.Second
)

// Request describes one subprocess invocation.
type Request struct {
	// Label names the invocation in errors, e.g. "git clone".
	Label   string
	Binary  string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// Result captures what the subprocess produced.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Runner executes subprocesses.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Exec is the os/exec backed Runner.
type Exec struct {
	// MaxOutputBytes bounds the captured output; later bytes are discarded.
	MaxOutputBytes int
}

// NewExec returns a Runner with default limits.
func NewExec() *Exec {
	return &Exec{MaxOutputBytes: defaultMaxOutputBytes}
}

// Run starts the subprocess and blocks until it exits, times out, or ctx is
// cancelled. The returned Result is populated even when err is non-nil.
func (e *Exec) Run(ctx context.Context, req Request) (Result, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = req.Binary
	}
	if strings.TrimSpace(req.Binary) == "" {
		return Result{ExitCode: -1}, services.Wrap(services.ErrExternalTool, label, "start", "binary not configured", nil)
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	limit := e.MaxOutputBytes
	if limit <= 0 {
		limit = defaultMaxOutputBytes
	}
	output := &boundedBuffer{limit: limit}

	cmd := commandContext(runCtx, req.Binary, req.Args...) //nolint:gosec
	cmd.Dir = req.Dir
	if len(req.Env) > 0 {
		base := cmd.Env
		if base == nil {
			base = os.Environ()
		}
		cmd.Env = append(base, req.Env...)
	}
	cmd.Stdout = output
	cmd.Stderr = output
	isolateProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = defaultWaitDelay

	started := time.Now()
	runErr := cmd.Run()
	// Reap anything the tool left behind in its group.
	_ = killProcessGroup(cmd)

	result := Result{
		ExitCode: -1,
		Output:   output.String(),
		Duration: time.Since(started),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case runErr == nil:
		return result, nil
	case ctx.Err() != nil:
		return result, fmt.Errorf("%s: %w", label, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return result, services.Wrap(services.ErrTimeout, label, "wait", fmt.Sprintf("killed after %s", req.Timeout), runErr)
	case cmd.ProcessState == nil:
		return result, services.Wrap(services.ErrExternalTool, label, "start", "", runErr)
	default:
		return result, services.Wrap(services.ErrExternalTool, label, "wait", fmt.Sprintf("exit status %d", result.ExitCode), runErr)
	}
}

type boundedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - len(b.buf); room > 0 {
		if len(p) <= room {
			b.buf = append(b.buf, p...)
		} else {
			b.buf = append(b.buf, p[:room]...)
			b.truncated = true
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return string(b.buf) + "\n[output truncated]"
	}
	return string(b.buf)
}

var _ Runner = (*Exec)(nil)
