package auth

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config protects the error routes with HTTP basic auth when PasswordHash is set.
type Config struct {
	User         string `envconfig:"ERRORS_ADMIN_USER" default:"admin"`
	PasswordHash string `envconfig:"ERRORS_ADMIN_PASSWORD_HASH"` // bcrypt hash; empty disables auth
}

func (c Config) Enabled() bool { return c.PasswordHash != "" }

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
