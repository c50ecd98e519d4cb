package capture

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Records older than this are removed on every capture. Zero disables retention.
	Retention time.Duration `envconfig:"ERRORS_RETENTION" default:"168h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
