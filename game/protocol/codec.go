package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// envelope distinguishes absent fields from zero values while decoding.
type envelope struct {
	Game  *Game  `json:"game"`
	Turn  *int   `json:"turn"`
	Board *Board `json:"board"`
	You   *Snake `json:"you"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

// DecodeDescribeRequest accepts an empty body or any JSON document.
func DecodeDescribeRequest(r io.Reader) error {
	if r == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return malformed("read body: %v", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if !json.Valid(data) {
		return malformed("body is not valid JSON")
	}
	return nil
}

// DecodeStartRequest decodes and validates a start payload.
func DecodeStartRequest(r io.Reader) (*StartRequest, error) {
	state, err := decodeState(r, KindStart)
	if err != nil {
		return nil, err
	}
	return &StartRequest{GameState: state}, nil
}

// DecodeMoveRequest decodes and validates a move payload.
func DecodeMoveRequest(r io.Reader) (*MoveRequest, error) {
	state, err := decodeState(r, KindMove)
	if err != nil {
		return nil, err
	}
	return &MoveRequest{GameState: state}, nil
}

// DecodeEndRequest decodes and validates an end payload. Only the game and
// snake identifiers are required.
func DecodeEndRequest(r io.Reader) (*EndRequest, error) {
	state, err := decodeState(r, KindEnd)
	if err != nil {
		return nil, err
	}
	return &EndRequest{GameState: state}, nil
}

func decodeState(r io.Reader, kind Kind) (GameState, error) {
	if r == nil {
		return GameState{}, malformed("empty body")
	}

	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		if err == io.EOF {
			return GameState{}, malformed("empty body")
		}
		return GameState{}, malformed("invalid JSON: %v", err)
	}

	if env.Game == nil || env.Game.ID == "" {
		return GameState{}, malformed("missing game.id")
	}
	if env.You == nil || env.You.ID == "" {
		return GameState{}, malformed("missing you.id")
	}
	if kind == KindMove && env.Turn == nil {
		return GameState{}, malformed("missing turn")
	}
	if kind != KindEnd && env.Board == nil {
		return GameState{}, malformed("missing board")
	}

	state := GameState{Game: *env.Game, You: *env.You}
	if env.Turn != nil {
		state.Turn = *env.Turn
	}
	if env.Board != nil {
		state.Board = *env.Board
	}

	if err := state.validate(kind); err != nil {
		return GameState{}, err
	}
	return state, nil
}

// validate checks the required fields that survive decoding into a value.
func (s *GameState) validate(kind Kind) error {
	if s.Game.ID == "" {
		return malformed("missing game.id")
	}
	if s.You.ID == "" {
		return malformed("missing you.id")
	}
	if kind == KindEnd {
		return nil
	}
	if s.Board.Width <= 0 || s.Board.Height <= 0 {
		return malformed("invalid board dimensions %dx%d", s.Board.Width, s.Board.Height)
	}
	if s.Board.Snakes == nil {
		return malformed("missing board.snakes")
	}
	if s.Turn < 0 {
		return malformed("negative turn %d", s.Turn)
	}
	return nil
}

// Validate reports ErrMalformedPayload when required start fields are missing.
func (r *StartRequest) Validate() error {
	if r == nil {
		return malformed("nil start request")
	}
	return r.validate(KindStart)
}

// Validate reports ErrMalformedPayload when required move fields are missing.
func (r *MoveRequest) Validate() error {
	if r == nil {
		return malformed("nil move request")
	}
	return r.validate(KindMove)
}

// Validate reports ErrMalformedPayload when required end fields are missing.
func (r *EndRequest) Validate() error {
	if r == nil {
		return malformed("nil end request")
	}
	return r.validate(KindEnd)
}

// EncodeResponse writes resp as JSON. Nothing is written unless the whole
// response serializes.
func EncodeResponse(w io.Writer, resp Response) error {
	if resp == nil {
		return fmt.Errorf("%w: nil response", ErrEncoding)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("%w: %s response: %v", ErrEncoding, resp.Kind(), err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: write %s response: %v", ErrEncoding, resp.Kind(), err)
	}
	return nil
}
