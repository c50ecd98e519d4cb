package database

import (
	"fmt"
	"strings"

	"errortrail/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MainDB is the error store connection shared by the process.
var MainDB *gorm.DB

// InitMainDB opens the configured store, seeds the errors table and assigns MainDB.
// This should be called once at application startup (e.g. in main()).
func InitMainDB() error {
	db, err := Open(GetConfig())
	if err != nil {
		return err
	}

	if err := Seed(db); err != nil {
		return err
	}

	// Assign to the global variable only after a successful connection.
	MainDB = db

	return nil
}

// Open connects to the sqlite store described by config without touching the schema.
func Open(config Config) (*gorm.DB, error) {
	path := strings.TrimSpace(config.DBFile)
	if path == "" {
		path = MemoryMarker
	}

	db, err := gorm.Open(sqlite.Open(dsn(path, config.BusyTimeoutMS)),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open error store %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from GORM: %w", err)
	}

	if path == MemoryMarker {
		// Every new connection to :memory: is a brand new database, so the
		// pool must never grow past, or recycle, its single connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(8)
		sqlDB.SetMaxIdleConns(4)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping error store %q: %w", path, err)
	}

	logrus.WithField("path", path).Info("[database] error store connection established")

	return db, nil
}

func dsn(path string, busyTimeoutMS int) string {
	if path == MemoryMarker {
		return path
	}
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 5000
	}
	// WAL lets readers proceed while a capture is writing; immediate
	// transactions take the write lock up front so read-modify-write
	// updates fail fast with SQLITE_BUSY instead of deadlocking.
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_txlock=immediate", path, busyTimeoutMS)
}

// Seed creates the errors table when it is missing. It never alters an
// existing table: a schema change requires a fresh store.
func Seed(db *gorm.DB) error {
	if db.Migrator().HasTable(&model.ErrorRecord{}) {
		return nil
	}

	if err := db.Migrator().CreateTable(&model.ErrorRecord{}); err != nil {
		return fmt.Errorf("failed to create errors table: %w", err)
	}

	logrus.Info("[database] errors table created")

	return nil
}
