package dispatcher

import (
	"time"

	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
)

// TurnEvent describes one handled callback
type TurnEvent struct {
	Kind     protocol.Kind
	Key      session.Key
	Turn     int
	Response protocol.Response
	Duration time.Duration
	At       time.Time

	// Err is the rejection or strategy failure, if any. When Fallback is
	// true the agent still answered with Response.
	Err      error
	Fallback bool

	// State is the request board, nil for describe and rejected payloads
	State *protocol.GameState
}

// Observer is notified after every callback. Observers run on the request
// goroutine outside the session lock and must not block.
type Observer interface {
	ObserveTurn(TurnEvent)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(TurnEvent)

func (f ObserverFunc) ObserveTurn(e TurnEvent) { f(e) }
