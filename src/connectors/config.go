package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config points the CLI at a running errortrail server.
type Config struct {
	BaseURL  string        `envconfig:"ERRORS_REMOTE_URL" default:"http://localhost:9898"`
	Route    string        `envconfig:"ERRORS_ROUTE" default:"/errors"`
	User     string        `envconfig:"ERRORS_REMOTE_USER"`
	Password string        `envconfig:"ERRORS_REMOTE_PASSWORD"`
	Timeout  time.Duration `envconfig:"ERRORS_REMOTE_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
