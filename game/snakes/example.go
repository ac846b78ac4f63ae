package snakes

import (
	"context"

	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
	"github.com/wricardo/battlesnake-agent/game/strategy"
)

// NewExample returns a strategy that always moves right
func NewExample(id strategy.Identity, _ *zap.Logger) strategy.Strategy {
	return strategy.Funcs{
		Fallback: strategy.Default(id),
		MoveFunc: func(context.Context, *session.Context, *protocol.MoveRequest) (protocol.MoveResponse, error) {
			return protocol.MoveResponse{Move: protocol.Right}, nil
		},
	}
}

// NewDown returns a strategy that heads for the bottom row and then turns left
func NewDown(id strategy.Identity, logger *zap.Logger) strategy.Strategy {
	return strategy.Funcs{
		Fallback: strategy.Default(id),
		StartFunc: func(_ context.Context, _ *session.Context, req *protocol.StartRequest) (protocol.StartResponse, error) {
			logStart(logger, req)
			return id.StartResponse(), nil
		},
		MoveFunc: func(_ context.Context, _ *session.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error) {
			if req.HeadPosition().Y > 0 {
				return protocol.MoveResponse{Move: protocol.Down, Shout: "Going down"}, nil
			}
			return protocol.MoveResponse{Move: protocol.Left, Shout: "Going left"}, nil
		},
	}
}

func logStart(logger *zap.Logger, req *protocol.StartRequest) {
	head := req.HeadPosition()
	logger.Info("snake starting",
		zap.String("game_id", req.GameID()),
		zap.Int("x", head.X),
		zap.Int("y", head.Y),
		zap.Int("width", req.Board.Width),
		zap.Int("height", req.Board.Height),
	)
}
