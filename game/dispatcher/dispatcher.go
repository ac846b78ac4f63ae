package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
	"github.com/wricardo/battlesnake-agent/game/strategy"
)

// Options configures a Dispatcher. The zero value is usable.
type Options struct {
	Logger *zap.Logger

	// Verbose logs every callback with its duration
	Verbose bool

	// Identity answers start when the strategy fails
	Identity strategy.Identity

	// FallbackMove replaces a failed move. When unset, SafeMove is used.
	FallbackMove protocol.Direction

	// NewData seeds the extension data of new sessions
	NewData func() any

	Observers []Observer

	// Archive receives a summary of every ended session
	Archive session.GameArchive

	// Registry is created when nil
	Registry *session.Registry

	Clock func() time.Time
}

// Dispatcher routes callbacks to a strategy and owns the session registry
type Dispatcher struct {
	strategy  strategy.Strategy
	registry  *session.Registry
	logger    *zap.Logger
	verbose   bool
	identity  strategy.Identity
	fallback  protocol.Direction
	newData   func() any
	observers []Observer
	archive   session.GameArchive
	now       func() time.Time

	startedAt time.Time
	counters  counters
}

// New creates a dispatcher for s
func New(s strategy.Strategy, opts Options) *Dispatcher {
	if s == nil {
		s = strategy.Default(opts.Identity)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Registry == nil {
		opts.Registry = session.NewRegistryWithClock(opts.Clock)
	}

	return &Dispatcher{
		strategy:  s,
		registry:  opts.Registry,
		logger:    opts.Logger,
		verbose:   opts.Verbose,
		identity:  opts.Identity,
		fallback:  opts.FallbackMove,
		newData:   opts.NewData,
		observers: opts.Observers,
		archive:   opts.Archive,
		now:       opts.Clock,
		startedAt: opts.Clock(),
	}
}

// Sessions returns the session registry
func (d *Dispatcher) Sessions() *session.Registry {
	return d.registry
}

// Archive returns the game archive, which may be nil
func (d *Dispatcher) Archive() session.GameArchive {
	return d.archive
}

// Stats returns the current counters
func (d *Dispatcher) Stats() Stats {
	return d.counters.snapshot(d.startedAt, d.registry.Len())
}

// AddObserver registers o for future callbacks. It is not safe to call
// while callbacks are being served.
func (d *Dispatcher) AddObserver(o Observer) {
	d.observers = append(d.observers, o)
}

// newContext seeds a session. A failing NewData leaves the data unset.
func (d *Dispatcher) newContext(key session.Key) *session.Context {
	c := session.NewContext(key, d.now())
	if d.newData == nil {
		return c
	}
	data, err := invoke(protocol.KindStart, func() (any, error) {
		return d.newData(), nil
	})
	if err != nil {
		d.strategyFailed(protocol.KindStart, key, err)
		return c
	}
	c.SetData(data)
	c.Commit()
	return c
}

// Describe answers the describe callback. It never fails: a strategy error
// is answered with the configured identity.
func (d *Dispatcher) Describe(ctx context.Context) (protocol.DescribeResponse, error) {
	began := time.Now()
	d.counters.describes.Add(1)

	resp, err := invoke(protocol.KindDescribe, func() (protocol.DescribeResponse, error) {
		return d.strategy.Describe(context.WithoutCancel(ctx))
	})
	fallback := false
	if err != nil {
		d.strategyFailed(protocol.KindDescribe, session.Key{}, err)
		resp = d.identity.DescribeResponse()
		fallback = true
	}
	if resp.APIVersion == "" {
		resp.APIVersion = protocol.APIVersion
	}

	d.notify(TurnEvent{
		Kind:     protocol.KindDescribe,
		Response: resp,
		Duration: time.Since(began),
		Err:      err,
		Fallback: fallback,
	})
	return resp, nil
}

// Start answers the start callback, creating the session. A repeated start
// for an active session returns the first response without calling the
// strategy again.
func (d *Dispatcher) Start(ctx context.Context, req *protocol.StartRequest) (protocol.StartResponse, error) {
	if err := req.Validate(); err != nil {
		d.Reject(protocol.KindStart, err)
		return protocol.StartResponse{}, err
	}
	began := time.Now()
	d.counters.starts.Add(1)
	key := session.KeyOf(&req.GameState)

	var (
		resp      protocol.StartResponse
		failure   error
		duplicate bool
	)
	err := d.registry.Open(key, d.newContext, func(sc *session.Context, _ bool) error {
		sc.Touch(d.now())
		if cached, ok := sc.StartResponse(); ok {
			duplicate = true
			resp = cached
			return nil
		}

		r, err := invoke(protocol.KindStart, func() (protocol.StartResponse, error) {
			return d.strategy.Start(context.WithoutCancel(ctx), sc, req)
		})
		if err != nil {
			sc.Rollback()
			failure = err
			r = d.identity.StartResponse()
		} else {
			sc.Commit()
		}
		sc.MarkStarted(r)
		resp = r
		return nil
	})
	if errors.Is(err, session.ErrSessionInit) {
		err = fmt.Errorf("%w: %w", strategy.ErrStrategyFailure, err)
		d.strategyFailed(protocol.KindStart, key, err)
		d.notify(TurnEvent{
			Kind:     protocol.KindStart,
			Key:      key,
			Turn:     req.Turn,
			Duration: time.Since(began),
			Err:      err,
			State:    &req.GameState,
		})
		return protocol.StartResponse{}, err
	}
	if err != nil {
		// only an invalid key, which Validate already rules out
		d.Reject(protocol.KindStart, err)
		return protocol.StartResponse{}, fmt.Errorf("%w: %w", protocol.ErrMalformedPayload, err)
	}

	if duplicate {
		d.counters.duplicateStarts.Add(1)
		d.logger.Warn("duplicate start for active session", zap.String("session", key.String()))
	}
	if failure != nil {
		d.strategyFailed(protocol.KindStart, key, failure)
	}

	d.notify(TurnEvent{
		Kind:     protocol.KindStart,
		Key:      key,
		Turn:     req.Turn,
		Response: resp,
		Duration: time.Since(began),
		Err:      failure,
		Fallback: failure != nil,
		State:    &req.GameState,
	})
	return resp, nil
}

// Move answers the move callback for an active session. It returns
// session.ErrOrphanSession when no start was seen for the request's key.
func (d *Dispatcher) Move(ctx context.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error) {
	if err := req.Validate(); err != nil {
		d.Reject(protocol.KindMove, err)
		return protocol.MoveResponse{}, err
	}
	began := time.Now()
	key := session.KeyOf(&req.GameState)

	var (
		resp    protocol.MoveResponse
		failure error
	)
	err := d.registry.Do(key, func(sc *session.Context) error {
		computeStart := time.Now()
		r, err := invoke(protocol.KindMove, func() (protocol.MoveResponse, error) {
			return d.strategy.Move(context.WithoutCancel(ctx), sc, req)
		})
		if err == nil && !r.Move.Valid() {
			err = fmt.Errorf("%w: move returned %w", strategy.ErrStrategyFailure, protocol.ErrInvalidDirection)
		}
		if err != nil {
			sc.Rollback()
			failure = err
			r = protocol.MoveResponse{Move: d.fallbackMove(req)}
		} else {
			sc.Commit()
		}
		sc.RecordMove(req.Turn, time.Since(computeStart), d.now())
		resp = r
		return nil
	})
	if err != nil {
		d.orphan(protocol.KindMove, key, req.Turn)
		d.notify(TurnEvent{
			Kind:     protocol.KindMove,
			Key:      key,
			Turn:     req.Turn,
			Duration: time.Since(began),
			Err:      err,
			State:    &req.GameState,
		})
		return protocol.MoveResponse{}, err
	}

	d.counters.moves.Add(1)
	if failure != nil {
		d.strategyFailed(protocol.KindMove, key, failure)
	}

	d.notify(TurnEvent{
		Kind:     protocol.KindMove,
		Key:      key,
		Turn:     req.Turn,
		Response: resp,
		Duration: time.Since(began),
		Err:      failure,
		Fallback: failure != nil,
		State:    &req.GameState,
	})
	return resp, nil
}

// End answers the end callback and removes the session, even when the
// strategy fails. It returns session.ErrOrphanSession when no session exists.
func (d *Dispatcher) End(ctx context.Context, req *protocol.EndRequest) (protocol.EndResponse, error) {
	if err := req.Validate(); err != nil {
		d.Reject(protocol.KindEnd, err)
		return protocol.EndResponse{}, err
	}
	began := time.Now()
	key := session.KeyOf(&req.GameState)

	var summary session.GameSummary
	existed, failure := d.registry.Terminate(key, func(sc *session.Context) error {
		err := invokeErr(protocol.KindEnd, func() error {
			return d.strategy.End(context.WithoutCancel(ctx), sc, req)
		})
		if err != nil {
			sc.Rollback()
		} else {
			sc.Commit()
		}
		sc.Touch(d.now())
		summary = session.Summarize(sc, req.Game.Ruleset.Name, req.Alive(), d.now())
		if req.Turn > summary.Turns {
			summary.Turns = req.Turn
		}
		return err
	})
	if !existed {
		d.orphan(protocol.KindEnd, key, req.Turn)
		d.notify(TurnEvent{
			Kind:     protocol.KindEnd,
			Key:      key,
			Turn:     req.Turn,
			Duration: time.Since(began),
			Err:      session.ErrOrphanSession,
			State:    &req.GameState,
		})
		return protocol.EndResponse{}, session.ErrOrphanSession
	}

	d.counters.ends.Add(1)
	if failure != nil {
		d.strategyFailed(protocol.KindEnd, key, failure)
	}

	d.logger.Info("game ended",
		zap.String("game_id", key.GameID),
		zap.String("snake_id", key.SnakeID),
		zap.Int("turns", summary.Turns),
		zap.Int64("moves", summary.MoveCount),
		zap.Duration("compute_time", summary.ComputeTime),
		zap.Duration("avg_move_time", summary.AverageMoveTime),
		zap.Duration("game_time", summary.EndedAt.Sub(summary.StartedAt)),
		zap.Bool("survived", summary.Survived),
	)

	if d.archive != nil {
		if err := d.archive.Save(summary); err != nil {
			d.logger.Warn("failed to archive game", zap.String("session", key.String()), zap.Error(err))
		}
	}

	d.notify(TurnEvent{
		Kind:     protocol.KindEnd,
		Key:      key,
		Turn:     req.Turn,
		Response: protocol.EndResponse{},
		Duration: time.Since(began),
		Err:      failure,
		Fallback: failure != nil,
		State:    &req.GameState,
	})
	return protocol.EndResponse{}, nil
}

// Reject records a callback whose payload could not be decoded. The
// transport calls it for decode failures; the typed methods call it for
// invalid requests.
func (d *Dispatcher) Reject(kind protocol.Kind, err error) {
	d.counters.malformed.Add(1)
	d.logger.Warn("malformed payload", zap.String("kind", string(kind)), zap.Error(err))
	d.notify(TurnEvent{Kind: kind, Err: err})
}

// EncodingFailed records a response that could not be serialized
func (d *Dispatcher) EncodingFailed(kind protocol.Kind, err error) {
	d.counters.encodingErrors.Add(1)
	d.logger.Error("failed to encode response", zap.String("kind", string(kind)), zap.Error(err))
}

// CleanupIdle removes sessions idle for longer than maxAge, typically
// games whose end callback never arrived.
func (d *Dispatcher) CleanupIdle(maxAge time.Duration) int {
	removed := d.registry.CleanupIdle(maxAge)
	if removed > 0 {
		d.logger.Info("removed idle sessions", zap.Int("count", removed), zap.Duration("max_age", maxAge))
	}
	return removed
}

func (d *Dispatcher) fallbackMove(req *protocol.MoveRequest) protocol.Direction {
	if d.fallback.Valid() {
		return d.fallback
	}
	return strategy.SafeMove(req)
}

func (d *Dispatcher) orphan(kind protocol.Kind, key session.Key, turn int) {
	d.counters.orphans.Add(1)
	d.logger.Warn("callback for unknown session",
		zap.String("kind", string(kind)),
		zap.String("game_id", key.GameID),
		zap.String("snake_id", key.SnakeID),
		zap.Int("turn", turn),
	)
}

func (d *Dispatcher) strategyFailed(kind protocol.Kind, key session.Key, err error) {
	d.counters.strategyFailures.Add(1)
	d.logger.Error("strategy failed, using fallback",
		zap.String("kind", string(kind)),
		zap.String("session", key.String()),
		zap.Error(err),
	)
}

func (d *Dispatcher) notify(e TurnEvent) {
	if e.At.IsZero() {
		e.At = d.now()
	}
	if d.verbose {
		fields := []zap.Field{
			zap.String("kind", string(e.Kind)),
			zap.Duration("duration", e.Duration),
		}
		if e.Key.GameID != "" {
			fields = append(fields, zap.String("session", e.Key.String()), zap.Int("turn", e.Turn))
		}
		if m, ok := e.Response.(protocol.MoveResponse); ok {
			fields = append(fields, zap.Stringer("move", m.Move))
		}
		if e.Err != nil {
			fields = append(fields, zap.Error(e.Err))
		}
		d.logger.Info("callback handled", fields...)
	}
	for _, o := range d.observers {
		o.ObserveTurn(e)
	}
}

// invoke calls fn and converts errors and panics into strategy failures
func invoke[T any](kind protocol.Kind, fn func() (T, error)) (resp T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			resp = zero
			err = fmt.Errorf("%w: %s panicked: %v", strategy.ErrStrategyFailure, kind, r)
		}
	}()

	resp, err = fn()
	if err != nil && !errors.Is(err, strategy.ErrStrategyFailure) {
		err = fmt.Errorf("%w: %s: %w", strategy.ErrStrategyFailure, kind, err)
	}
	return resp, err
}

func invokeErr(kind protocol.Kind, fn func() error) error {
	_, err := invoke(kind, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}
