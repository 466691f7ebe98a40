package register

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrydb/pantry/pkg/types"
)

func registerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "connections.yaml")
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	r, err := Load(registerPath(t))
	require.NoError(t, err)
	assert.Empty(t, r.List())
}

func TestAddSaveLoadRoundTrip(t *testing.T) {
	path := registerPath(t)

	r, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, r.Add("main", Connection{Backend: types.BackendSQLite, DSN: "pantry.db"}))
	require.NoError(t, r.Add("reports", Connection{Backend: types.BackendPostgres, DSN: "postgres://localhost/reports"}))
	require.NoError(t, r.Save())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "reports"}, again.List())

	c, err := again.Get("reports")
	require.NoError(t, err)
	assert.Equal(t, types.BackendPostgres, c.Backend)
	assert.Equal(t, "postgres://localhost/reports", c.DSN)
}

func TestAdd_Validation(t *testing.T) {
	r, err := Load(registerPath(t))
	require.NoError(t, err)

	assert.ErrorIs(t, r.Add("", Connection{Backend: types.BackendSQLite, DSN: "x"}), ErrNameEmpty)
	assert.ErrorIs(t, r.Add("bad", Connection{DSN: "x"}), types.ErrBackendEmpty)
	assert.ErrorIs(t, r.Add("bad", Connection{Backend: "oracle", DSN: "x"}), types.ErrBackendUnknown)
	assert.ErrorIs(t, r.Add("bad", Connection{Backend: types.BackendSQLite}), types.ErrDSNEmpty)

	require.NoError(t, r.Add("main", Connection{Backend: types.BackendSQLite, DSN: "x"}))
	assert.ErrorIs(t, r.Add("main", Connection{Backend: types.BackendSQLite, DSN: "y"}), ErrConnectionExists)
}

func TestRemove(t *testing.T) {
	path := registerPath(t)
	r, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, r.Add("main", Connection{Backend: types.BackendSQLite, DSN: "x"}))

	assert.ErrorIs(t, r.Remove("other"), ErrConnectionUnknown)
	require.NoError(t, r.Remove("main"))
	assert.Empty(t, r.List())
}

func TestConfig(t *testing.T) {
	r, err := Load(registerPath(t))
	require.NoError(t, err)
	require.NoError(t, r.Add("main", Connection{Backend: types.BackendSQLite, DSN: ":memory:"}))

	cfg, err := r.Config("main")
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, ":memory:", cfg.DSN)

	_, err = r.Config("ghost")
	assert.ErrorIs(t, err, ErrConnectionUnknown)
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "connections.yaml")
	r, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, r.Add("main", Connection{Backend: types.BackendSQLite, DSN: "x"}))
	require.NoError(t, r.Save())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
