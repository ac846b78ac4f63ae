package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings are the runtime knobs read from the environment
type Settings struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"8080"`

	// Snake overrides the strategy named by the profile
	Snake   string `env:"BATTLESNAKE_SNAKE"`
	Profile string `env:"BATTLESNAKE_PROFILE" envDefault:"default"`

	ProfileDir string `env:"BATTLESNAKE_PROFILE_DIR" envDefault:"profiles"`
	ArchiveDir string `env:"BATTLESNAKE_ARCHIVE_DIR"`

	// ArchiveLimit caps the in-memory archive used without ArchiveDir
	ArchiveLimit int `env:"BATTLESNAKE_ARCHIVE_LIMIT" envDefault:"1000"`

	Verbose      bool   `env:"BATTLESNAKE_VERBOSE"`
	Debug        bool   `env:"BATTLESNAKE_DEBUG"`
	FallbackMove string `env:"BATTLESNAKE_FALLBACK_MOVE"`

	// SessionMaxIdle evicts sessions that never saw an end callback
	SessionMaxIdle  time.Duration `env:"BATTLESNAKE_SESSION_MAX_IDLE" envDefault:"30m"`
	CleanupInterval time.Duration `env:"BATTLESNAKE_CLEANUP_INTERVAL" envDefault:"1m"`

	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
	NgrokEnabled   bool   `env:"BATTLESNAKE_NGROK"`
}

// Addr is the listen address
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadSettings parses Settings from the environment
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
