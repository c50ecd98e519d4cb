package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// MemoryMarker selects a process-local in-memory store instead of a file.
const MemoryMarker = ":memory:"

type Config struct {
	DBFile        string `envconfig:"ERRORS_DB_FILE" default:"errors.db"` // file path or ":memory:"
	BusyTimeoutMS int    `envconfig:"ERRORS_DB_BUSY_TIMEOUT_MS" default:"5000"`
	GormLogLevel  int    `envconfig:"GORM_LOG_LEVEL" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
