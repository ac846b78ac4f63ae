package config

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/strategy"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("invalid profile")
)

//go:embed defaults/default.yaml
var defaultProfileYAML []byte

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Profile is a named snake: the strategy it runs and how it presents itself
type Profile struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Snake       string            `json:"snake" yaml:"snake"`
	Identity    strategy.Identity `json:"identity" yaml:"identity"`

	// FallbackMove replaces failed moves; empty means the safest move
	FallbackMove string `json:"fallback_move,omitempty" yaml:"fallback_move,omitempty"`
}

// Fallback parses FallbackMove. An empty value yields the zero Direction.
func (p *Profile) Fallback() (protocol.Direction, error) {
	if p.FallbackMove == "" {
		return 0, nil
	}
	return protocol.ParseDirection(p.FallbackMove)
}

// ValidateProfile checks a profile for obvious mistakes
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.Snake) == "" {
		return fmt.Errorf("%w: snake is required", ErrInvalidProfile)
	}
	if c := p.Identity.Color; c != "" && !colorPattern.MatchString(c) {
		return fmt.Errorf("%w: color %q is not #rrggbb", ErrInvalidProfile, c)
	}
	if _, err := p.Fallback(); err != nil {
		return fmt.Errorf("%w: fallback_move: %v", ErrInvalidProfile, err)
	}
	return nil
}

// DefaultProfile returns the embedded profile
func DefaultProfile() *Profile {
	var p Profile
	if err := yaml.Unmarshal(defaultProfileYAML, &p); err != nil {
		return &Profile{Name: "default", Snake: "default"}
	}
	return &p
}
