package database

import (
	"path/filepath"
	"testing"

	"errortrail/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	db, err := Open(Config{DBFile: MemoryMarker, GormLogLevel: 1})
	require.NoError(t, err)

	require.NoError(t, Seed(db))
	require.NoError(t, db.Create(&model.ErrorRecord{Kind: "ValueError", Message: "bad input"}).Error)

	// A second seed must keep existing rows.
	require.NoError(t, Seed(db))

	var count int64
	require.NoError(t, db.Model(&model.ErrorRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	for _, column := range []string{"id", "timestamp", "kind", "message", "stackTrace", "handlerCalls"} {
		assert.True(t, db.Migrator().HasColumn(&model.ErrorRecord{}, column), "missing column %s", column)
	}
}

func TestOpenFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.db")
	cfg := Config{DBFile: path, BusyTimeoutMS: 1000, GormLogLevel: 1}

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Seed(db))
	require.NoError(t, db.Create(&model.ErrorRecord{Kind: "Hello", Message: "World"}).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Seed(reopened))

	var rec model.ErrorRecord
	require.NoError(t, reopened.First(&rec).Error)
	assert.Equal(t, "Hello", rec.Kind)
	assert.Equal(t, model.HandlerCalls{}, rec.HandlerCalls)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, MemoryMarker, dsn(MemoryMarker, 10))
	assert.Equal(t, "file:/tmp/e.db?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", dsn("/tmp/e.db", 0))
}
