package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/battlesnake-agent/game/protocol"
)

// Key identifies one snake in one game.
type Key struct {
	GameID  string `json:"game_id"`
	SnakeID string `json:"snake_id"`
}

// NewKey builds a Key from its parts.
func NewKey(gameID, snakeID string) Key {
	return Key{GameID: gameID, SnakeID: snakeID}
}

// KeyOf derives the session key of a request.
func KeyOf(state *protocol.GameState) Key {
	return Key{GameID: state.GameID(), SnakeID: state.SnakeID()}
}

func (k Key) String() string {
	return k.GameID + "/" + k.SnakeID
}

// Context is the mutable state of one session. Strategies read and write
// extension data through Data and SetData; the statistics are maintained by
// the dispatcher.
type Context struct {
	key       Key
	startedAt time.Time

	// stats are read by inspection endpoints without taking the session lock
	statsMu      sync.RWMutex
	lastAccessed time.Time
	moveCount    int64
	computeTime  time.Duration
	lastTurn     int

	started       bool
	startResponse protocol.StartResponse

	data   any
	staged any
	dirty  bool
}

// NewContext returns a fresh Context for key, started at now.
func NewContext(key Key, now time.Time) *Context {
	return &Context{
		key:          key,
		startedAt:    now,
		lastAccessed: now,
	}
}

func (c *Context) Key() Key             { return c.key }
func (c *Context) GameID() string       { return c.key.GameID }
func (c *Context) SnakeID() string      { return c.key.SnakeID }
func (c *Context) StartedAt() time.Time { return c.startedAt }

// MoveCount returns how many move callbacks the session has answered.
func (c *Context) MoveCount() int64 {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.moveCount
}

// ComputeTime returns the total time spent inside the strategy's Move.
func (c *Context) ComputeTime() time.Duration {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.computeTime
}

// AverageMoveTime returns ComputeTime divided by MoveCount.
func (c *Context) AverageMoveTime() time.Duration {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	if c.moveCount == 0 {
		return 0
	}
	return c.computeTime / time.Duration(c.moveCount)
}

// LastTurn returns the turn number of the most recent move.
func (c *Context) LastTurn() int {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.lastTurn
}

// LastAccessed returns when the session last handled a callback.
func (c *Context) LastAccessed() time.Time {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.lastAccessed
}

// Touch records activity at now.
func (c *Context) Touch(now time.Time) {
	c.statsMu.Lock()
	c.lastAccessed = now
	c.statsMu.Unlock()
}

// RecordMove adds one answered move to the statistics.
func (c *Context) RecordMove(turn int, compute time.Duration, now time.Time) {
	c.statsMu.Lock()
	c.moveCount++
	c.computeTime += compute
	c.lastTurn = turn
	c.lastAccessed = now
	c.statsMu.Unlock()
}

// MarkStarted caches the start response of the session.
func (c *Context) MarkStarted(resp protocol.StartResponse) {
	c.started = true
	c.startResponse = resp
}

// StartResponse returns the cached start response, if start has completed.
func (c *Context) StartResponse() (protocol.StartResponse, bool) {
	return c.startResponse, c.started
}

// Data returns the strategy's extension data, including any value staged
// during the current callback.
func (c *Context) Data() any {
	if c.dirty {
		return c.staged
	}
	return c.data
}

// SetData stages v as the new extension data. It becomes visible to later
// callbacks only if the current strategy call succeeds. Values reached
// through pointers are not copied, so strategies that need rollback should
// store values rather than mutate shared pointers in place.
func (c *Context) SetData(v any) {
	c.staged = v
	c.dirty = true
}

// Commit makes staged extension data permanent.
func (c *Context) Commit() {
	if c.dirty {
		c.data = c.staged
	}
	c.staged = nil
	c.dirty = false
}

// Rollback discards staged extension data.
func (c *Context) Rollback() {
	c.staged = nil
	c.dirty = false
}

// DataAs returns the extension data of c as a T.
func DataAs[T any](c *Context) (T, bool) {
	v, ok := c.Data().(T)
	return v, ok
}

// Info is a point-in-time view of a session for inspection endpoints.
type Info struct {
	Key             Key           `json:"key"`
	StartedAt       time.Time     `json:"started_at"`
	LastAccessedAt  time.Time     `json:"last_accessed_at"`
	MoveCount       int64         `json:"move_count"`
	LastTurn        int           `json:"last_turn"`
	ComputeTime     time.Duration `json:"compute_time_ns"`
	AverageMoveTime time.Duration `json:"average_move_time_ns"`
}

// Info returns a snapshot of the session statistics.
func (c *Context) Info() Info {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	info := Info{
		Key:            c.key,
		StartedAt:      c.startedAt,
		LastAccessedAt: c.lastAccessed,
		MoveCount:      c.moveCount,
		LastTurn:       c.lastTurn,
		ComputeTime:    c.computeTime,
	}
	if c.moveCount > 0 {
		info.AverageMoveTime = c.computeTime / time.Duration(c.moveCount)
	}
	return info
}

func (c *Context) String() string {
	return fmt.Sprintf("session %s (moves=%d)", c.key, c.MoveCount())
}
