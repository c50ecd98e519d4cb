package server

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"9898"`

	ErrorsRouteEnabled bool   `envconfig:"ERRORS_ROUTE_ENABLED" default:"true"`
	ErrorsRoute        string `envconfig:"ERRORS_ROUTE" default:"/errors"`
	ErrorsUIEnabled    bool   `envconfig:"ERRORS_UI_ENABLED" default:"true"`
	ErrorsStreamEnable bool   `envconfig:"ERRORS_STREAM_ENABLED" default:"false"`
	ErrorsMaxLimit     int    `envconfig:"ERRORS_MAX_LIMIT" default:"100"`
	MetricsEnabled     bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Route returns the normalized mount path of the error routes.
func (c *Config) Route() string {
	route := "/" + strings.Trim(strings.TrimSpace(c.ErrorsRoute), "/")
	if route == "/" {
		return "/errors"
	}
	return route
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
