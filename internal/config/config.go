package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings, populated from the environment.
// Empty NATSURL / RedisAddr disable event publishing / the highest-bid
// cache respectively.
type Config struct {
	Env                 string        `envconfig:"ENV" default:"development"`
	Debug               bool          `envconfig:"DEBUG"`
	Port                string        `envconfig:"PORT" default:"8080"`
	DatabasePath        string        `envconfig:"DATABASE_PATH" default:"auctions.db"`
	JWTSecret           string        `envconfig:"JWT_SECRET" default:"medibid-secret-key"`
	NATSURL             string        `envconfig:"NATS_URL"`
	RedisAddr           string        `envconfig:"REDIS_ADDR"`
	ExpirySweepInterval time.Duration `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"1m"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
