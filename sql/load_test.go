package sql

import (
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Initialize database extensions", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		var exists bool
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgvector extension should be created")
	})

	t.Run("Initialize database extensions is idempotent", func(t *testing.T) {
		assert.NoError(t, Init(db.Instance))
		assert.NoError(t, Init(db.Instance))
	})
}

func TestLoadSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	loaders := []struct {
		name      string
		load      func(force bool) error
		functions []string
	}{
		{"indexes", func(force bool) error { return LoadIndexesSql(db.Instance, force) }, IndexesFunctions},
		{"chunks", func(force bool) error { return LoadChunksSql(db.Instance, force) }, ChunksFunctions},
		{"documents", func(force bool) error { return LoadDocumentsSql(db.Instance, force) }, DocumentsFunctions},
	}

	for _, l := range loaders {
		t.Run("Load "+l.name+" SQL functions", func(t *testing.T) {
			err := l.load(false)
			assert.NoError(t, err)

			for _, funcName := range l.functions {
				var exists bool
				err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
				require.NoError(t, err)
				assert.True(t, exists, "Function %s should exist", funcName)
			}
		})

		t.Run("Load "+l.name+" SQL is idempotent without force", func(t *testing.T) {
			assert.NoError(t, l.load(false))
		})

		t.Run("Load "+l.name+" SQL with force reloads", func(t *testing.T) {
			assert.NoError(t, l.load(true))
		})
	}
}

func TestLoadAllSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Load all SQL functions", func(t *testing.T) {
		err := LoadAllSql(db.Instance, false)
		assert.NoError(t, err)

		all := append(append(append([]string{}, IndexesFunctions...), ChunksFunctions...), DocumentsFunctions...)
		exists, err := checkFunctions(db.Instance, all)
		require.NoError(t, err)
		assert.True(t, exists, "All functions should exist")
	})

	t.Run("Load all SQL with force reloads", func(t *testing.T) {
		assert.NoError(t, LoadAllSql(db.Instance, true))
	})
}

func TestCheckFunctions(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Check functions returns false when functions don't exist", func(t *testing.T) {
		exists, err := checkFunctions(db.Instance, []string{"nonexistent_function"})
		assert.NoError(t, err)
		assert.False(t, exists, "Should return false for nonexistent function")
	})

	t.Run("Check functions returns false when some functions don't exist", func(t *testing.T) {
		require.NoError(t, LoadIndexesSql(db.Instance, false))

		exists, err := checkFunctions(db.Instance, []string{"init_embedding_indexes", "nonexistent_function"})
		assert.NoError(t, err)
		assert.False(t, exists, "Should return false when some functions don't exist")
	})

	t.Run("Check functions with empty list", func(t *testing.T) {
		exists, err := checkFunctions(db.Instance, []string{})
		assert.NoError(t, err)
		assert.False(t, exists, "Should return false for empty function list")
	})
}

func TestEmbeddedSQL(t *testing.T) {
	t.Run("Init SQL is embedded", func(t *testing.T) {
		assert.Contains(t, initSQL, "CREATE EXTENSION IF NOT EXISTS vector")
	})

	t.Run("Table SQL is embedded", func(t *testing.T) {
		for name, content := range map[string]string{"indexes": indexesSQL, "chunks": chunksSQL, "documents": documentsSQL} {
			assert.Contains(t, content, "CREATE OR REPLACE FUNCTION", "%s SQL should define functions", name)
		}
	})

	t.Run("Every listed function is defined", func(t *testing.T) {
		for _, f := range IndexesFunctions {
			assert.Contains(t, indexesSQL, "FUNCTION "+f+"(")
		}
		for _, f := range ChunksFunctions {
			assert.Contains(t, chunksSQL, "FUNCTION "+f+"(")
		}
		for _, f := range DocumentsFunctions {
			assert.Contains(t, documentsSQL, "FUNCTION "+f+"(")
		}
	})
}
