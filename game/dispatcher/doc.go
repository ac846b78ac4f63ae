// Package dispatcher routes tournament callbacks to a Strategy.
//
// The dispatcher implements:
//   - The per-session state machine NONE -> ACTIVE -> TERMINATED
//   - Session creation on start, lookup on move and removal on end
//   - Recovery from strategy errors and panics with safe defaults
//   - After-turn observers used for logging, metrics and spectators
//   - Counters for every callback kind and error class
//
// Error Handling:
//
// Typed requests are validated again before use and rejected with
// protocol.ErrMalformedPayload. A move or end without an active session
// returns session.ErrOrphanSession and never creates one. Strategy failures,
// including panics and invalid directions, are wrapped in
// strategy.ErrStrategyFailure, reported to observers and answered with a
// fallback: the identity's start response, SafeMove or the configured
// fallback direction. A failing end is logged and the session is still
// removed.
//
// Usage:
//
//	d := dispatcher.New(strategy.Default(identity), dispatcher.Options{
//		Logger:  logger,
//		Verbose: true,
//	})
//
//	resp, err := d.Move(ctx, req)
//	if errors.Is(err, session.ErrOrphanSession) {
//		// reply with a client error
//	}
package dispatcher
