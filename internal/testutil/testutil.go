// Package testutil provides shared test helpers for stores and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/pagebot/internal/history"
	"github.com/starford/pagebot/internal/state"
	"github.com/starford/pagebot/internal/storage"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary history database that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pagebot-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a store persisted to a state file in a temp directory.
func TestStore(t *testing.T) (string, *state.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	backend, err := storage.NewFS(path)
	if err != nil {
		t.Fatal(err)
	}
	return path, state.New(backend, Logger())
}

// TestStoreAt opens a second store on an existing state file.
func TestStoreAt(path string) (*state.Store, error) {
	backend, err := storage.NewFS(path)
	if err != nil {
		return nil, err
	}
	return state.New(backend, Logger()), nil
}

// MemoryStore creates a store backed by an in-memory provider.
func MemoryStore(t *testing.T) (*storage.Memory, *state.Store) {
	t.Helper()
	backend := storage.NewMemory()
	return backend, state.New(backend, Logger())
}
