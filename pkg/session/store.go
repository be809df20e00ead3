package session

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Record is the persisted continuation state for one working directory.
// Exactly one record exists per (assistant, directory key); it is
// overwritten whole on every successful execution, never merged.
type Record struct {
	WorkingDir string    `json:"workingDir"`
	SessionID  string    `json:"sessionId,omitempty"` // claude only; codex resumes by recency
	LastUsed   time.Time `json:"lastUsed"`
	TaskCount  int       `json:"taskCount"`
}

// Store maps working directories to Records, one JSON file per record,
// scoped to one assistant.
type Store struct {
	dir       string
	assistant string
	logger    zerolog.Logger
}

// NewStore creates a Store for one assistant. Directory creation is best
// effort: a failure is logged and every subsequent Save degrades silently.
func NewStore(dir, assistant string) *Store {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".duet", "sessions")
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to create sessions directory, continuity disabled")
	}
	return &Store{
		dir:       dir,
		assistant: assistant,
		logger:    log.With().Str("component", "session").Str("assistant", assistant).Logger(),
	}
}

// Assistant returns the assistant this store is scoped to.
func (s *Store) Assistant() string {
	return s.assistant
}

// DirKey derives the stable, case-insensitive identifier for a filesystem
// path: absolute, cleaned, lowercased, then md5-hashed and truncated to
// eight hex characters.
func DirKey(workingDir string) string {
	abs, err := filepath.Abs(workingDir)
	if err != nil {
		abs = workingDir
	}
	normalized := strings.ToLower(filepath.Clean(abs))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])[:8]
}

func (s *Store) path(workingDir string) string {
	return filepath.Join(s.dir, s.assistant+"-"+DirKey(workingDir)+".json")
}

// Load returns the record for a working directory. Any I/O or parse
// failure is treated as "absent".
func (s *Store) Load(workingDir string) (Record, bool) {
	data, err := os.ReadFile(s.path(workingDir))
	if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn().Err(err).Str("dir", workingDir).Msg("Corrupt session record, treating as absent")
		return Record{}, false
	}
	return rec, true
}

// Save overwrites the record for a working directory via temp file and
// rename. Failure is swallowed: losing a session degrades continuity,
// nothing else.
func (s *Store) Save(workingDir string, rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn().Err(err).Str("dir", workingDir).Msg("Failed to marshal session record")
		return
	}

	path := s.path(workingDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		s.logger.Warn().Err(err).Str("dir", workingDir).Msg("Failed to write session record")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		s.logger.Warn().Err(err).Str("dir", workingDir).Msg("Failed to replace session record")
		return
	}

	s.logger.Debug().
		Str("dir", workingDir).
		Str("session_id", rec.SessionID).
		Int("task_count", rec.TaskCount).
		Msg("Session record saved")
}

// Clear removes the record for a working directory. Returns true if a
// record existed and was removed; never raises.
func (s *Store) Clear(workingDir string) bool {
	err := os.Remove(s.path(workingDir))
	if err != nil {
		return false
	}
	s.logger.Info().Str("dir", workingDir).Msg("Session record cleared")
	return true
}

// List enumerates all records for this assistant. Corrupt or unreadable
// entries are skipped.
func (s *Store) List() []Record {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var records []Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, s.assistant+"-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			s.logger.Warn().Str("file", name).Err(err).Msg("Skipping corrupt session record")
			continue
		}
		records = append(records, rec)
	}
	return records
}
