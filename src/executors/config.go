package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// How often the sweeper prunes expired records. Zero (the default) leaves
	// expiry to the captures themselves.
	LoopPeriod time.Duration `envconfig:"ERRORS_PRUNE_PERIOD" default:"0s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
