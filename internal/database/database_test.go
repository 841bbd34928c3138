package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	assert.Equal(t, Memory, ResolvePath("", Memory))
	assert.Equal(t, Memory, ResolvePath(Memory, "app"))
	assert.Equal(t, "app.db", ResolvePath("", "app"))
	assert.Equal(t, "app.DB", ResolvePath("", "app.DB"))
	assert.Equal(t, filepath.Join("data", "app.db"), ResolvePath("data", "app"))
}

func TestOpen(t *testing.T) {
	t.Run("path is required", func(t *testing.T) {
		_, err := Open(Config{})
		assert.Error(t, err)
	})

	t.Run("file store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "app.db")
		db, err := Open(Config{Path: path, WALMode: true})
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, path, db.Path())
		assert.NoError(t, db.HealthCheck(context.Background()))
		assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	})

	t.Run("read-only leaves a missing store alone", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent", "app.db")
		_, err := Open(Config{Path: path, ReadOnly: true})
		require.ErrorIs(t, err, ErrNoStore)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.NoDirExists(t, filepath.Dir(path))
	})

	t.Run("read-only rejects writes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.db")
		rw, err := Open(Config{Path: path})
		require.NoError(t, err)
		_, err = rw.Exec("CREATE TABLE t (x integer)")
		require.NoError(t, err)
		require.NoError(t, rw.Close())

		ro, err := Open(Config{Path: path, ReadOnly: true})
		require.NoError(t, err)
		defer ro.Close()

		ok, err := TableExists(context.Background(), ro, "t")
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = ro.Exec("INSERT INTO t (x) VALUES (1)")
		assert.Error(t, err)
	})

	t.Run("memory store survives between statements", func(t *testing.T) {
		db, err := Open(Config{Path: Memory})
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		_, err = db.ExecContext(ctx, "CREATE TABLE t (x integer)")
		require.NoError(t, err)

		ok, err := TableExists(ctx, db, "T")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = TableExists(ctx, db, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestUserVersion(t *testing.T) {
	db, err := Open(Config{Path: Memory})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	v, err := UserVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, SetUserVersion(ctx, db, 3))
	v, err = UserVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
