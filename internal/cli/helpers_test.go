package cli

import (
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/dbjohnson/polestar-log-viewer/internal/config"
	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
)

// captureOutput redirects stdout for the duration of fn and returns what
// was printed.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = old

	out, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(out), runErr
}

// testConfig creates a config backed by a file in a temp dir, with storage
// pointed at the same dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg, err := config.LoadOrCreateAt(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	cfg.Storage.Path = dir
	require.NoError(t, cfg.Save())

	return cfg
}

// testStore opens a migrated in-memory store.
func testStore(t *testing.T) storage.Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}
