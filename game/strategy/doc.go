// Package strategy defines the decision-making capability of the agent.
//
// A Strategy answers the four callbacks of a game: describe, start, move and
// end. The dispatcher owns sessions and protocol handling; a Strategy only
// sees typed requests and the per-session Context it may keep state in.
//
// Composition:
//
// Funcs builds a Strategy from closures. Any callback left nil is answered by
// a fallback strategy, Default unless another one is set, so a leaf strategy
// only implements what it changes:
//
//	s := strategy.Funcs{
//		Fallback: strategy.Default(identity),
//		MoveFunc: func(ctx context.Context, c *session.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error) {
//			return protocol.MoveResponse{Move: protocol.Up}, nil
//		},
//	}
//
// SafeMove is the baseline move used by Default and by the dispatcher when a
// strategy fails.
package strategy
