// Package audit appends one structured line per delegation to a fixed
// per-user log file. Audit writes are strictly best effort: a failure here
// never affects the delegation's outcome.
package audit

import (
	"os"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event is one audit log entry.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Direction   string    `json:"direction"` // e.g. "claude->codex"
	Continued   bool      `json:"continued"`
	SessionID   string    `json:"session_id,omitempty"`
	Instruction string    `json:"instruction"`
	Status      string    `json:"status"` // "success" or "failure"
}

// Logger records audit events. A zero-value Logger and a nil Logger are
// both safe no-ops, so callers never have to guard delegation paths.
type Logger struct {
	mu     sync.Mutex
	logger zerolog.Logger
	file   *os.File
	ready  bool
}

// New opens (or creates) the audit log at path. On failure a no-op logger
// is returned and the reason is logged once; the bridge stays usable.
func New(path string) *Logger {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Audit log unavailable, delegations will not be audited")
		return &Logger{}
	}
	return &Logger{
		logger: zerolog.New(file).With().Timestamp().Logger(),
		file:   file,
		ready:  true,
	}
}

// Record appends one event. Missing fields are defaulted; write failures
// are swallowed.
func (a *Logger) Record(event Event) {
	if a == nil || !a.ready {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		if id, err := gonanoid.New(); err == nil {
			event.ID = id
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Log().
		Str("id", event.ID).
		Str("direction", event.Direction).
		Bool("continued", event.Continued).
		Str("session_id", event.SessionID).
		Str("status", event.Status).
		Str("instruction", event.Instruction).
		Msg("")
}

// RecordDelegation is the common-case helper used by the executors.
func (a *Logger) RecordDelegation(direction string, continued bool, sessionID, instruction string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	a.Record(Event{
		Direction:   direction,
		Continued:   continued,
		SessionID:   sessionID,
		Instruction: instruction,
		Status:      status,
	})
}

// Close closes the underlying file handle.
func (a *Logger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}
