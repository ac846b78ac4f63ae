package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/game/dispatcher"
	"github.com/wricardo/battlesnake-agent/game/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Turn events buffered before the hub starts dropping them
	broadcastBuffer = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one turn as seen by spectators
type Message struct {
	GameID   string          `json:"game_id"`
	SnakeID  string          `json:"snake_id,omitempty"`
	Event    string          `json:"event"`
	Turn     int             `json:"turn"`
	Move     string          `json:"move,omitempty"`
	Shout    string          `json:"shout,omitempty"`
	Board    *protocol.Board `json:"board,omitempty"`
	Error    string          `json:"error,omitempty"`
	Fallback bool            `json:"fallback,omitempty"`
	Duration time.Duration   `json:"duration_ns"`
}

// Client represents a WebSocket spectator of one game
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

// Hub fans turn events out to the spectators of each game
type Hub struct {
	logger *zap.Logger

	// Registered clients by game ID
	games map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	count      chan chan int

	// done is closed when Run returns
	done chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		games:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns when ctx is done. A hub runs
// once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.games {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case reply := <-h.count:
			n := 0
			for _, clients := range h.games {
				n += len(clients)
			}
			reply <- n
		}
	}
}

// Clients returns the number of connected spectators, zero once the hub
// has stopped. It blocks until Run is started.
func (h *Hub) Clients() int {
	reply := make(chan int)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// ServeWS upgrades the request and subscribes the connection to gameID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		gameID: gameID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// ObserveTurn queues e for the spectators of its game. Describe and rejected
// callbacks carry no game and are ignored. The call never blocks; events are
// dropped when the hub falls behind.
func (h *Hub) ObserveTurn(e dispatcher.TurnEvent) {
	if e.Key.GameID == "" {
		return
	}
	message := &Message{
		GameID:   e.Key.GameID,
		SnakeID:  e.Key.SnakeID,
		Event:    string(e.Kind),
		Turn:     e.Turn,
		Fallback: e.Fallback,
		Duration: e.Duration,
	}
	if e.State != nil && e.Kind != protocol.KindEnd {
		board := e.State.Board
		message.Board = &board
	}
	if m, ok := e.Response.(protocol.MoveResponse); ok {
		message.Move = m.Move.String()
		message.Shout = m.Shout
	}
	if e.Err != nil {
		message.Error = e.Err.Error()
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Debug("spectator queue full, dropping turn", zap.String("game_id", e.Key.GameID))
	}
}

// registerClient adds a client to a game
func (h *Hub) registerClient(client *Client) {
	if h.games[client.gameID] == nil {
		h.games[client.gameID] = make(map[*Client]bool)
	}
	h.games[client.gameID][client] = true

	h.logger.Debug("spectator registered",
		zap.String("game_id", client.gameID),
		zap.Int("clients", len(h.games[client.gameID])))
}

// unregisterClient removes a client from a game
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.games[client.gameID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty games
			if len(clients) == 0 {
				delete(h.games, client.gameID)
			}

			h.logger.Debug("spectator unregistered",
				zap.String("game_id", client.gameID),
				zap.Int("clients", len(clients)))
		}
	}
}

// broadcastMessage sends a message to all clients of a game
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.games[message.GameID]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal spectator message", zap.Error(err))
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.unregisterClient(client)
		}
	}
}

// readPump drains the connection so pongs and close frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
