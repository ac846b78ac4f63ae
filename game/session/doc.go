// Package session provides per-game session management for the snake agent.
//
// The session package implements:
//   - A composite key of game id and snake id
//   - The per-game Context handed to strategies
//   - A concurrency-safe Registry with create-on-start, lookup-on-move and
//     delete-on-end semantics
//   - Per-key mutual exclusion for callbacks on the same game
//   - An optional archive of finished-game summaries
//
// Core Types:
//
// Registry owns every active Context. Context carries the game and snake
// identifiers, move statistics and strategy-owned extension data.
//
// Keys:
//
// A session is keyed by the pair (game id, snake id) so that one agent can
// play in many games at once, and even occupy several snake slots in the
// same game, without sessions colliding.
//
// Concurrency:
//
// Entries live in a sync.Map, so creating session A never waits on removing
// session B. Each entry carries its own mutex; callbacks for the same key run
// one at a time and observe each other's writes in order. A Context is
// created at most once per key lifetime even when many start callbacks race.
//
// Usage:
//
//	registry := session.NewRegistry()
//	key := session.NewKey("game-1", "snake-1")
//
//	// start: create the session, or join the existing one
//	err := registry.Open(key, nil, func(c *session.Context, created bool) error {
//		c.SetData(myState{})
//		return nil
//	})
//
//	// move: ErrOrphanSession when start never happened
//	err = registry.Do(key, func(c *session.Context) error {
//		state, _ := session.DataAs[myState](c)
//		return nil
//	})
//
//	// end: remove the session after fn returns
//	existed, err := registry.Terminate(key, func(c *session.Context) error {
//		return nil
//	})
//
// Extension Data:
//
// Data written with SetData during a callback is staged. The dispatcher
// commits it when the strategy call succeeds and discards it otherwise, so a
// failed or interrupted strategy call never leaves half-applied state.
package session
