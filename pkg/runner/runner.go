package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds an invocation when the caller supplies none.
	DefaultTimeout = 10 * time.Minute
	// DefaultGrace is the window between the graceful termination signal
	// and the forceful kill after a timeout fires.
	DefaultGrace = 5 * time.Second
)

// Request describes one external CLI invocation.
type Request struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
	Grace   time.Duration
}

// CommandRunner executes one external CLI invocation to completion or
// timeout. Implemented by Runner; stubbed in executor tests.
type CommandRunner interface {
	Run(ctx context.Context, req Request) Outcome
}

// Runner spawns external CLI processes, accumulates their output, and
// enforces the timeout escalation policy. A Runner never leaves a process
// running past the call's lifetime: on timeout it signals termination and
// escalates to a kill after the grace window.
type Runner struct {
	logger zerolog.Logger
}

// New creates a Runner.
func New() *Runner {
	return &Runner{logger: log.With().Str("component", "runner").Logger()}
}

// lockedBuffer accumulates stream output in arrival order. exec writes from
// its copier goroutines, the resolver reads after timeout, so access is
// mutex-guarded.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Run executes the request and resolves exactly one Outcome, regardless of
// how many termination signals end up being sent.
func (r *Runner) Run(ctx context.Context, req Request) Outcome {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	grace := req.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	cmd := exec.Command(req.Command, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = req.Env

	var stdout, stderr lockedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	if err := cmd.Start(); err != nil {
		r.logger.Warn().Err(err).Str("command", req.Command).Msg("Failed to spawn process")
		return r.spawnFailed(req.Command, err, time.Since(start))
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		return r.resolveExit(req, err, stdout.String(), stderr.String(), time.Since(start))

	case <-timer.C:
		// Resolve now, at first detection of timeout. The escalation runs in
		// the background so the eventual process death cannot resolve twice.
		go r.terminate(cmd, waitCh, grace)
		return r.timedOut(req, timeout, stdout.String(), time.Since(start))

	case <-ctx.Done():
		go r.terminate(cmd, waitCh, grace)
		return r.timedOut(req, timeout, stdout.String(), time.Since(start))
	}
}

func (r *Runner) spawnFailed(command string, err error, elapsed time.Duration) Outcome {
	msg := fmt.Sprintf("failed to start %q: %v", command, err)
	if errors.Is(err, exec.ErrNotFound) {
		msg += fmt.Sprintf("; make sure the %s CLI is installed and on PATH", command)
	}
	return Outcome{
		Success:    false,
		Output:     msg,
		ExitCode:   nil,
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
		State:      StateSpawnFailed,
	}
}

func (r *Runner) timedOut(req Request, timeout time.Duration, partial string, elapsed time.Duration) Outcome {
	msg := fmt.Sprintf("%s timed out after %s", req.Command, timeout)
	if cleaned := CleanOutput(partial); cleaned != "" {
		msg += "\n\npartial output:\n" + cleaned
	}
	r.logger.Warn().
		Str("command", req.Command).
		Dur("timeout", timeout).
		Msg("Process timed out")
	return Outcome{
		Success:    false,
		Output:     msg,
		ExitCode:   nil,
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
		State:      StateTimedOut,
	}
}

func (r *Runner) resolveExit(req Request, waitErr error, stdout, stderr string, elapsed time.Duration) Outcome {
	out := CleanOutput(stdout)
	errOut := CleanOutput(stderr)

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			// Asynchronous process-level error distinct from a non-zero exit,
			// e.g. the binary was removed mid-run or the streams broke.
			r.logger.Error().Err(waitErr).Str("command", req.Command).Msg("Process runtime error")
			return Outcome{
				Success:    false,
				Output:     fmt.Sprintf("%s failed: %v", req.Command, waitErr),
				ExitCode:   nil,
				Duration:   elapsed,
				DurationMs: elapsed.Milliseconds(),
				State:      StateRuntimeError,
			}
		}
		exitCode = exitErr.ExitCode()
	}

	r.logger.Debug().
		Str("command", req.Command).
		Int("exit_code", exitCode).
		Dur("duration", elapsed).
		Msg("Process exited")

	if exitCode == 0 {
		return Outcome{
			Success:    true,
			Output:     out,
			ExitCode:   &exitCode,
			Duration:   elapsed,
			DurationMs: elapsed.Milliseconds(),
			State:      StateClosedOK,
		}
	}

	// Output-tolerant success policy: the assistant CLIs are known to exit
	// non-zero while still having produced a usable answer on stdout.
	if out != "" {
		return Outcome{
			Success:    true,
			Output:     out,
			ExitCode:   &exitCode,
			Duration:   elapsed,
			DurationMs: elapsed.Milliseconds(),
			State:      StateClosedNonzero,
		}
	}

	diagnostic := errOut
	if diagnostic == "" {
		diagnostic = out
	}
	if diagnostic == "" {
		diagnostic = fmt.Sprintf("exit code %d", exitCode)
	}
	return Outcome{
		Success:    false,
		Output:     diagnostic,
		ExitCode:   &exitCode,
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
		State:      StateClosedNonzero,
	}
}

// terminate escalates from a graceful signal to a forceful kill. The Outcome
// has already been resolved by the caller.
func (r *Runner) terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) {
	if cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
		return
	}

	select {
	case <-waitCh:
		return
	case <-time.After(grace):
		r.logger.Warn().Int("pid", cmd.Process.Pid).Msg("Process ignored SIGTERM, killing")
		_ = cmd.Process.Kill()
	}
}
