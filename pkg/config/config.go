// Package config holds the replay server configuration, acquired from
// the environment with flag overrides applied by the caller.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the replay server configuration surface.
type Config struct {
	// SourcePath is the recorded feed; a ".gz" suffix selects gzip.
	SourcePath string `env:"REPLAY_SOURCE"`
	// Port is the TCP listen port for raw-feed subscribers.
	Port int `env:"REPLAY_PORT" envDefault:"9999"`
	// Speed divides historical inter-message deltas; 0 disables pacing.
	Speed float64 `env:"REPLAY_SPEED" envDefault:"1.0"`

	MaxSubscribers int           `env:"REPLAY_MAX_SUBSCRIBERS" envDefault:"32"`
	WriteTimeout   time.Duration `env:"REPLAY_WRITE_TIMEOUT" envDefault:"5s"`
	// StartupGrace is the pause before replay begins so early
	// subscribers catch the start of the feed.
	StartupGrace time.Duration `env:"REPLAY_STARTUP_GRACE" envDefault:"2s"`

	// Optional surfaces, each disabled at its zero value.
	MetricsPort int    `env:"REPLAY_METRICS_PORT"`
	WSPort      int    `env:"REPLAY_WS_PORT"`
	NATSURL     string `env:"REPLAY_NATS_URL"`
	NATSSubject string `env:"REPLAY_NATS_SUBJECT" envDefault:"replay.itch"`
	ZMQEndpoint string `env:"REPLAY_ZMQ_ENDPOINT"`

	LogLevel string `env:"REPLAY_LOG_LEVEL" envDefault:"info"`
}

// FromEnv loads configuration from REPLAY_* environment variables.
func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return c, nil
}

// Validate rejects configurations the engine must never see.
func (c Config) Validate() error {
	if c.SourcePath == "" {
		return errors.New("config: source path is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid listen port %d", c.Port)
	}
	// Negative speed would produce nonsensical pacing arithmetic; it is
	// an input error, not a replay mode.
	if c.Speed < 0 {
		return fmt.Errorf("config: negative speed multiplier %v", c.Speed)
	}
	if c.MaxSubscribers < 1 {
		return fmt.Errorf("config: invalid subscriber capacity %d", c.MaxSubscribers)
	}
	return nil
}
