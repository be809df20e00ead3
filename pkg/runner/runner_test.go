package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shCommand(script string) Request {
	return Request{
		Command: "/bin/sh",
		Args:    []string{"-c", script},
		Timeout: 10 * time.Second,
		Grace:   time.Second,
	}
}

func TestRunner_CleanExit(t *testing.T) {
	r := New()

	outcome := r.Run(context.Background(), shCommand("echo hello"))

	assert.True(t, outcome.Success)
	assert.Equal(t, "hello", outcome.Output)
	require.NotNil(t, outcome.ExitCode)
	assert.Equal(t, 0, *outcome.ExitCode)
	assert.Equal(t, StateClosedOK, outcome.State)
}

func TestRunner_NonzeroExitWithOutputIsSuccess(t *testing.T) {
	r := New()

	outcome := r.Run(context.Background(), shCommand("echo usable answer; exit 1"))

	assert.True(t, outcome.Success)
	assert.Equal(t, "usable answer", outcome.Output)
	require.NotNil(t, outcome.ExitCode)
	assert.Equal(t, 1, *outcome.ExitCode)
	assert.Equal(t, StateClosedNonzero, outcome.State)
}

func TestRunner_NonzeroExitWithoutOutputIsFailure(t *testing.T) {
	r := New()

	outcome := r.Run(context.Background(), shCommand("echo broken >&2; exit 3"))

	assert.False(t, outcome.Success)
	assert.Equal(t, "broken", outcome.Output)
	require.NotNil(t, outcome.ExitCode)
	assert.Equal(t, 3, *outcome.ExitCode)
}

func TestRunner_NonzeroExitFallsBackToExitCodeMessage(t *testing.T) {
	r := New()

	outcome := r.Run(context.Background(), shCommand("exit 7"))

	assert.False(t, outcome.Success)
	assert.Equal(t, "exit code 7", outcome.Output)
}

func TestRunner_Timeout(t *testing.T) {
	r := New()

	req := shCommand("echo partial; sleep 30")
	req.Timeout = 500 * time.Millisecond
	req.Grace = 200 * time.Millisecond

	start := time.Now()
	outcome := r.Run(context.Background(), req)

	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.ExitCode)
	assert.Equal(t, StateTimedOut, outcome.State)
	assert.Contains(t, outcome.Output, "timed out")
	assert.Contains(t, outcome.Output, "partial")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunner_SpawnFailure(t *testing.T) {
	r := New()

	outcome := r.Run(context.Background(), Request{
		Command: "definitely-not-a-real-binary-xyz",
		Timeout: time.Second,
	})

	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.ExitCode)
	assert.Equal(t, StateSpawnFailed, outcome.State)
	assert.Contains(t, outcome.Output, "installed and on PATH")
}

func TestRunner_ContextCancellation(t *testing.T) {
	r := New()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	req := shCommand("sleep 30")
	req.Grace = 200 * time.Millisecond
	outcome := r.Run(ctx, req)

	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.ExitCode)
}

func TestRunner_WorkingDirectory(t *testing.T) {
	r := New()
	dir := t.TempDir()

	req := shCommand("pwd")
	req.Dir = dir
	outcome := r.Run(context.Background(), req)

	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Output, dir)
}

func TestRunner_SeparateStreams(t *testing.T) {
	r := New()

	outcome := r.Run(context.Background(), shCommand("echo out; echo err >&2"))

	// stderr must not leak into the captured output on success
	assert.True(t, outcome.Success)
	assert.Equal(t, "out", outcome.Output)
}
