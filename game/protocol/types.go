package protocol

import (
	"encoding/json"
	"strconv"
)

// APIVersion is the protocol version reported by describe.
const APIVersion = "1"

// Kind identifies one of the four callbacks.
type Kind string

const (
	KindDescribe Kind = "describe"
	KindStart    Kind = "start"
	KindMove     Kind = "move"
	KindEnd      Kind = "end"
)

// Position is a board coordinate. (0,0) is the bottom-left cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Manhattan distance between p and o.
func (p Position) Distance(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Ruleset describes the rules the game is played under.
type Ruleset struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// Game identifies the game and its limits.
type Game struct {
	ID      string  `json:"id"`
	Ruleset Ruleset `json:"ruleset"`
	Map     string  `json:"map,omitempty"`
	Timeout int     `json:"timeout"` // milliseconds allowed per move
	Source  string  `json:"source,omitempty"`
}

// Customizations are a snake's visual settings as seen by other players.
type Customizations struct {
	Color string `json:"color"`
	Head  string `json:"head"`
	Tail  string `json:"tail"`
}

// Latency is the previous response time of a snake in milliseconds.
// The tournament server sends it as a string; plain numbers are accepted too.
type Latency string

func (l *Latency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Latency(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Latency(n.String())
	return nil
}

// Millis returns the latency as an integer, or 0 when it is not numeric.
func (l Latency) Millis() int {
	v, err := strconv.Atoi(string(l))
	if err != nil {
		return 0
	}
	return v
}

// Snake is one snake on the board.
type Snake struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Health         int            `json:"health"`
	Body           []Position     `json:"body"`
	Head           Position       `json:"head"`
	Length         int            `json:"length"`
	Latency        Latency        `json:"latency"`
	Shout          string         `json:"shout"`
	Squad          string         `json:"squad,omitempty"`
	Customizations Customizations `json:"customizations"`
}

// HeadPosition returns the first body segment, falling back to Head when the
// body is empty.
func (s Snake) HeadPosition() Position {
	if len(s.Body) > 0 {
		return s.Body[0]
	}
	return s.Head
}

// BodyLength counts distinct body cells; stacked segments after eating count once.
func (s Snake) BodyLength() int {
	seen := make(map[Position]struct{}, len(s.Body))
	for _, p := range s.Body {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// Board is the playing field at the current turn.
type Board struct {
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Food    []Position `json:"food"`
	Hazards []Position `json:"hazards"`
	Snakes  []Snake    `json:"snakes"`
}

// GameState is the snapshot shared by start, move and end requests.
type GameState struct {
	Game  Game  `json:"game"`
	Turn  int   `json:"turn"`
	Board Board `json:"board"`
	You   Snake `json:"you"`
}

// GameID returns the game identifier.
func (s *GameState) GameID() string { return s.Game.ID }

// SnakeID returns the identifier of this agent's snake.
func (s *GameState) SnakeID() string { return s.You.ID }

// HeadPosition returns the head of this agent's snake.
func (s *GameState) HeadPosition() Position { return s.You.HeadPosition() }

// IsAtOrigin reports whether this agent's head sits on the origin cell.
func (s *GameState) IsAtOrigin() bool { return s.HeadPosition() == Origin }

// IsAtCenter reports whether this agent's head sits on the board center.
func (s *GameState) IsAtCenter() bool { return s.HeadPosition() == s.Board.Center() }

// IsFoodAvailable reports whether any food is on the board.
func (s *GameState) IsFoodAvailable() bool { return len(s.Board.Food) > 0 }

// Alive reports whether this agent's snake is still on the board.
func (s *GameState) Alive() bool {
	for _, snake := range s.Board.Snakes {
		if snake.ID == s.You.ID {
			return true
		}
	}
	return false
}

// StartRequest is the payload of the start callback.
type StartRequest struct{ GameState }

// MoveRequest is the payload of the move callback.
type MoveRequest struct{ GameState }

// EndRequest is the payload of the end callback.
type EndRequest struct{ GameState }

// Response is implemented by the four callback responses.
type Response interface {
	Kind() Kind
}

// DescribeResponse is the static identity of the snake.
type DescribeResponse struct {
	APIVersion string `json:"apiversion"`
	Author     string `json:"author,omitempty"`
	Color      string `json:"color,omitempty"`
	Head       string `json:"head,omitempty"`
	Tail       string `json:"tail,omitempty"`
	Version    string `json:"version,omitempty"`
}

func (DescribeResponse) Kind() Kind { return KindDescribe }

// DefaultDescribeResponse is returned when a strategy supplies no identity.
func DefaultDescribeResponse() DescribeResponse {
	return DescribeResponse{
		APIVersion: APIVersion,
		Color:      "#888888",
		Head:       "default",
		Tail:       "default",
	}
}

// StartResponse declares the snake's look for one game. Name and Author are
// only sent by agents speaking the older protocol variant.
type StartResponse struct {
	Color    string `json:"color"`
	HeadType string `json:"headType"`
	TailType string `json:"tailType"`
	Name     string `json:"name,omitempty"`
	Author   string `json:"author,omitempty"`
}

func (StartResponse) Kind() Kind { return KindStart }

// DefaultStartResponse mirrors DefaultDescribeResponse.
func DefaultStartResponse() StartResponse {
	return StartResponse{Color: "#888888", HeadType: "default", TailType: "default"}
}

// MoveResponse is the direction chosen for one turn.
type MoveResponse struct {
	Move  Direction `json:"move"`
	Shout string    `json:"shout,omitempty"`
}

func (MoveResponse) Kind() Kind { return KindMove }

func (m MoveResponse) String() string { return m.Move.String() }

// EndResponse is the empty acknowledgement of the end callback.
type EndResponse struct{}

func (EndResponse) Kind() Kind { return KindEnd }
