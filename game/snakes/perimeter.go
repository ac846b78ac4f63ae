package snakes

import (
	"context"

	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
	"github.com/wricardo/battlesnake-agent/game/strategy"
)

// PerimeterState is the session data of the perimeter strategy
type PerimeterState struct {
	Width, Height int

	// moves left on the way to the origin
	Downs, Lefts int

	AtOrigin bool
	Step     int
}

// Next returns the move for a snake whose head is at head, and the state
// after that move.
func (s PerimeterState) Next(head protocol.Position) (protocol.Direction, PerimeterState) {
	if head == protocol.Origin {
		s.AtOrigin = true
	}
	if !s.AtOrigin {
		switch {
		case s.Downs > 0:
			s.Downs--
			return protocol.Down, s
		case s.Lefts > 0:
			s.Lefts--
			return protocol.Left, s
		}
		s.AtOrigin = true
	}

	d := perimeterStep(s.Width, s.Height, s.Step)
	s.Step++
	return d, s
}

// perimeterStep walks up the left edge, right along the top, down the right
// edge and left along the bottom.
func perimeterStep(width, height, step int) protocol.Direction {
	up, across := height-1, width-1
	cycle := 2*up + 2*across
	if cycle <= 0 {
		return strategy.NoSafeMove
	}
	i := step % cycle
	switch {
	case i < up:
		return protocol.Up
	case i < up+across:
		return protocol.Right
	case i < 2*up+across:
		return protocol.Down
	default:
		return protocol.Left
	}
}

// NewPerimeter returns a strategy that goes to the origin and then follows
// the board edge forever.
func NewPerimeter(id strategy.Identity, logger *zap.Logger) strategy.Strategy {
	return strategy.Funcs{
		Fallback: strategy.Default(id),
		StartFunc: func(_ context.Context, sc *session.Context, req *protocol.StartRequest) (protocol.StartResponse, error) {
			logStart(logger, req)
			head := req.HeadPosition()
			sc.SetData(PerimeterState{
				Width:  req.Board.Width,
				Height: req.Board.Height,
				Downs:  head.Y,
				Lefts:  head.X,
			})
			return id.StartResponse(), nil
		},
		MoveFunc: func(_ context.Context, sc *session.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error) {
			state, ok := session.DataAs[PerimeterState](sc)
			if !ok {
				head := req.HeadPosition()
				state = PerimeterState{Width: req.Board.Width, Height: req.Board.Height, Downs: head.Y, Lefts: head.X}
			}
			d, next := state.Next(req.HeadPosition())
			sc.SetData(next)
			if next.AtOrigin && !state.AtOrigin {
				logger.Debug("reached origin, following perimeter", zap.String("session", sc.Key().String()))
			}
			return protocol.MoveResponse{Move: d}, nil
		},
	}
}
