package strategy

import (
	"context"
	"errors"

	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
)

// ErrStrategyFailure marks an error or panic raised by a strategy callback
var ErrStrategyFailure = errors.New("strategy failure")

// Strategy decides how the snake looks and moves
type Strategy interface {
	Describe(ctx context.Context) (protocol.DescribeResponse, error)
	Start(ctx context.Context, sc *session.Context, req *protocol.StartRequest) (protocol.StartResponse, error)
	Move(ctx context.Context, sc *session.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error)
	End(ctx context.Context, sc *session.Context, req *protocol.EndRequest) error
}

// Identity is how the snake presents itself
type Identity struct {
	Name    string `json:"name" yaml:"name"`
	Author  string `json:"author" yaml:"author"`
	Color   string `json:"color" yaml:"color"`
	Head    string `json:"head" yaml:"head"`
	Tail    string `json:"tail" yaml:"tail"`
	Version string `json:"version" yaml:"version"`
}

// DescribeResponse returns the identity as a describe payload, filling
// defaults for empty fields.
func (id Identity) DescribeResponse() protocol.DescribeResponse {
	resp := protocol.DefaultDescribeResponse()
	resp.Author = id.Author
	resp.Version = id.Version
	if id.Color != "" {
		resp.Color = id.Color
	}
	if id.Head != "" {
		resp.Head = id.Head
	}
	if id.Tail != "" {
		resp.Tail = id.Tail
	}
	return resp
}

// StartResponse returns the identity as a start payload
func (id Identity) StartResponse() protocol.StartResponse {
	d := id.DescribeResponse()
	return protocol.StartResponse{
		Color:    d.Color,
		HeadType: d.Head,
		TailType: d.Tail,
		Name:     id.Name,
		Author:   id.Author,
	}
}

type defaultStrategy struct {
	id Identity
}

// Default returns the baseline strategy: it describes itself with id, starts
// with id's appearance, plays SafeMove and ignores end.
func Default(id Identity) Strategy {
	return defaultStrategy{id: id}
}

func (s defaultStrategy) Describe(context.Context) (protocol.DescribeResponse, error) {
	return s.id.DescribeResponse(), nil
}

func (s defaultStrategy) Start(context.Context, *session.Context, *protocol.StartRequest) (protocol.StartResponse, error) {
	return s.id.StartResponse(), nil
}

func (s defaultStrategy) Move(_ context.Context, _ *session.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error) {
	return protocol.MoveResponse{Move: SafeMove(req)}, nil
}

func (s defaultStrategy) End(context.Context, *session.Context, *protocol.EndRequest) error {
	return nil
}

// Funcs adapts plain functions to the Strategy interface
type Funcs struct {
	Fallback Strategy

	DescribeFunc func(ctx context.Context) (protocol.DescribeResponse, error)
	StartFunc    func(ctx context.Context, sc *session.Context, req *protocol.StartRequest) (protocol.StartResponse, error)
	MoveFunc     func(ctx context.Context, sc *session.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error)
	EndFunc      func(ctx context.Context, sc *session.Context, req *protocol.EndRequest) error
}

func (f Funcs) fallback() Strategy {
	if f.Fallback != nil {
		return f.Fallback
	}
	return Default(Identity{})
}

func (f Funcs) Describe(ctx context.Context) (protocol.DescribeResponse, error) {
	if f.DescribeFunc != nil {
		return f.DescribeFunc(ctx)
	}
	return f.fallback().Describe(ctx)
}

func (f Funcs) Start(ctx context.Context, sc *session.Context, req *protocol.StartRequest) (protocol.StartResponse, error) {
	if f.StartFunc != nil {
		return f.StartFunc(ctx, sc, req)
	}
	return f.fallback().Start(ctx, sc, req)
}

func (f Funcs) Move(ctx context.Context, sc *session.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error) {
	if f.MoveFunc != nil {
		return f.MoveFunc(ctx, sc, req)
	}
	return f.fallback().Move(ctx, sc, req)
}

func (f Funcs) End(ctx context.Context, sc *session.Context, req *protocol.EndRequest) error {
	if f.EndFunc != nil {
		return f.EndFunc(ctx, sc, req)
	}
	return f.fallback().End(ctx, sc, req)
}
