package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirKey_Deterministic(t *testing.T) {
	k1 := DirKey("/home/user/project")
	k2 := DirKey("/home/user/project")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 8)
}

func TestDirKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, DirKey("/Home/User/Project"), DirKey("/home/user/project"))
}

func TestDirKey_DistinctPaths(t *testing.T) {
	assert.NotEqual(t, DirKey("/home/user/alpha"), DirKey("/home/user/beta"))
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	store := NewStore(t.TempDir(), "claude")

	rec := Record{
		WorkingDir: "/tmp/project",
		SessionID:  "abc-123",
		LastUsed:   time.Now().UTC(),
		TaskCount:  2,
	}
	store.Save("/tmp/project", rec)

	loaded, ok := store.Load("/tmp/project")
	require.True(t, ok)
	assert.Equal(t, rec.SessionID, loaded.SessionID)
	assert.Equal(t, rec.TaskCount, loaded.TaskCount)
	assert.Equal(t, rec.WorkingDir, loaded.WorkingDir)
}

func TestStore_LoadAbsent(t *testing.T) {
	store := NewStore(t.TempDir(), "claude")

	_, ok := store.Load("/nowhere/special")
	assert.False(t, ok)
}

func TestStore_LoadCorruptIsAbsent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "claude")

	path := filepath.Join(dir, "claude-"+DirKey("/tmp/project")+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, ok := store.Load("/tmp/project")
	assert.False(t, ok)
}

func TestStore_ClearOnce(t *testing.T) {
	store := NewStore(t.TempDir(), "codex")

	store.Save("/tmp/project", Record{WorkingDir: "/tmp/project", TaskCount: 1, LastUsed: time.Now()})

	assert.True(t, store.Clear("/tmp/project"))
	assert.False(t, store.Clear("/tmp/project"))
}

func TestStore_ListSkipsCorruptAndForeign(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "claude")

	store.Save("/tmp/alpha", Record{WorkingDir: "/tmp/alpha", SessionID: "a", TaskCount: 1, LastUsed: time.Now()})
	store.Save("/tmp/beta", Record{WorkingDir: "/tmp/beta", SessionID: "b", TaskCount: 3, LastUsed: time.Now()})

	// Corrupt entry and a record belonging to the other assistant.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claude-deadbeef.json"), []byte("???"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codex-cafebabe.json"), []byte(`{"workingDir":"/x","taskCount":1}`), 0600))

	records := store.List()
	assert.Len(t, records, 2)
}

func TestStore_IndependentWorkingDirectories(t *testing.T) {
	store := NewStore(t.TempDir(), "claude")

	store.Save("/tmp/alpha", Record{WorkingDir: "/tmp/alpha", SessionID: "a", TaskCount: 1, LastUsed: time.Now()})
	store.Save("/tmp/beta", Record{WorkingDir: "/tmp/beta", SessionID: "b", TaskCount: 5, LastUsed: time.Now()})

	a, ok := store.Load("/tmp/alpha")
	require.True(t, ok)
	b, ok := store.Load("/tmp/beta")
	require.True(t, ok)

	assert.Equal(t, "a", a.SessionID)
	assert.Equal(t, "b", b.SessionID)
	assert.Equal(t, 5, b.TaskCount)
}

func TestStore_UnwritableDirectoryDegradesSilently(t *testing.T) {
	// Point the store at a path that is a file, so every write fails.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store := NewStore(filepath.Join(blocker, "sessions"), "claude")

	assert.NotPanics(t, func() {
		store.Save("/tmp/project", Record{WorkingDir: "/tmp/project", TaskCount: 1})
		_, ok := store.Load("/tmp/project")
		assert.False(t, ok)
		assert.False(t, store.Clear("/tmp/project"))
		assert.Nil(t, store.List())
	})
}
