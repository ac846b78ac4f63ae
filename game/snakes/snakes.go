package snakes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/game/strategy"
)

var ErrUnknownSnake = errors.New("unknown snake")

// Constructor builds a strategy presenting itself as id
type Constructor func(id strategy.Identity, logger *zap.Logger) strategy.Strategy

var constructors = map[string]Constructor{
	"default": func(id strategy.Identity, _ *zap.Logger) strategy.Strategy {
		return strategy.Default(id)
	},
	"example":   NewExample,
	"down":      NewDown,
	"perimeter": NewPerimeter,
}

// New returns the strategy registered under name (case-insensitive)
func New(name string, id strategy.Identity, logger *zap.Logger) (strategy.Strategy, error) {
	ctor, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownSnake, name, strings.Join(Names(), ", "))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return ctor(id, logger), nil
}

// Names lists the registered strategy names, sorted
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
