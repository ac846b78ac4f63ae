package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/game/dispatcher"
	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
	"github.com/wricardo/battlesnake-agent/transport/websocket"
)

// maxBodyBytes bounds callback payloads; a full 25x25 board is far below it
const maxBodyBytes = 1 << 20

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-ID"

// Agent is what the server needs from the dispatcher
type Agent interface {
	Describe(ctx context.Context) (protocol.DescribeResponse, error)
	Start(ctx context.Context, req *protocol.StartRequest) (protocol.StartResponse, error)
	Move(ctx context.Context, req *protocol.MoveRequest) (protocol.MoveResponse, error)
	End(ctx context.Context, req *protocol.EndRequest) (protocol.EndResponse, error)

	Reject(kind protocol.Kind, err error)
	EncodingFailed(kind protocol.Kind, err error)

	Stats() dispatcher.Stats
	Sessions() *session.Registry
	Archive() session.GameArchive
}

// Server binds the agent to HTTP
type Server struct {
	agent  Agent
	hub    *websocket.Hub
	router *mux.Router
	logger *zap.Logger
}

// NewServer creates a new API server. hub may be nil to disable spectators.
func NewServer(agent Agent, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		agent:  agent,
		hub:    hub,
		router: mux.NewRouter(),
		logger: logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestID)

	// Tournament callbacks
	s.router.HandleFunc("/", s.handleDescribe).Methods("GET", "POST")
	s.router.HandleFunc("/start", s.handleStart).Methods("POST")
	s.router.HandleFunc("/move", s.handleMove).Methods("POST")
	s.router.HandleFunc("/end", s.handleEnd).Methods("POST")
	s.router.HandleFunc("/ping", s.handlePing).Methods("GET", "POST")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Inspection
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{game}/{snake}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
}

// Mount serves h at path, for endpoints owned by other packages such as
// /metrics and /mcp.
func (s *Server) Mount(path string, h http.Handler) {
	s.router.Handle(path, h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestID tags the request and response with an id and logs slow or
// failed requests at debug level.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		began := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(began)),
		)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ErrorResponse is the body of every failed callback
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	CodeMalformedPayload = "malformed_payload"
	CodeOrphanSession    = "orphan_session"
	CodeEncodingError    = "encoding_error"
	CodeInternal         = "internal_error"
)

// StatusOf maps an agent error to its HTTP status and error code
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, protocol.ErrMalformedPayload):
		return http.StatusBadRequest, CodeMalformedPayload
	case errors.Is(err, session.ErrOrphanSession):
		return http.StatusNotFound, CodeOrphanSession
	case errors.Is(err, protocol.ErrEncoding):
		return http.StatusInternalServerError, CodeEncodingError
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondAgentError(w http.ResponseWriter, err error) {
	status, code := StatusOf(err)
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

// respondCallback encodes resp fully before writing anything
func (s *Server) respondCallback(w http.ResponseWriter, resp protocol.Response) {
	var buf bytes.Buffer
	if err := protocol.EncodeResponse(&buf, resp); err != nil {
		kind := protocol.Kind("unknown")
		if resp != nil {
			kind = resp.Kind()
		}
		s.agent.EncodingFailed(kind, err)
		respondAgentError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Callback Handlers

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		if err := protocol.DecodeDescribeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
			s.agent.Reject(protocol.KindDescribe, err)
			respondAgentError(w, err)
			return
		}
	}

	resp, err := s.agent.Describe(r.Context())
	if err != nil {
		respondAgentError(w, err)
		return
	}
	s.respondCallback(w, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, err := protocol.DecodeStartRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.agent.Reject(protocol.KindStart, err)
		respondAgentError(w, err)
		return
	}

	resp, err := s.agent.Start(r.Context(), req)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	s.respondCallback(w, resp)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	req, err := protocol.DecodeMoveRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.agent.Reject(protocol.KindMove, err)
		respondAgentError(w, err)
		return
	}

	resp, err := s.agent.Move(r.Context(), req)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	s.respondCallback(w, resp)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	req, err := protocol.DecodeEndRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.agent.Reject(protocol.KindEnd, err)
		respondAgentError(w, err)
		return
	}

	resp, err := s.agent.End(r.Context(), req)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	s.respondCallback(w, resp)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, struct{}{})
}

// infoPage tells a human visitor which URL to register with the game server
const infoPage = `<!DOCTYPE html>
<html>
<head><title>Battlesnake</title></head>
<body>
<br>
<h2>You have reached a <a href="https://docs.battlesnake.com">Battlesnake</a> server!</h2>
<h3>Use this value as your snake URL: <span id="url"></span></h3>
<script>document.getElementById("url").textContent = window.location.origin + "/";</script>
</body>
</html>
`

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(infoPage))
}

// Inspection Handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.agent.Sessions().Snapshot()

	if gameID := r.URL.Query().Get("game"); gameID != "" {
		filtered := sessions[:0]
		for _, info := range sessions {
			if info.Key.GameID == gameID {
				filtered = append(filtered, info)
			}
		}
		sessions = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	key := session.NewKey(vars["game"], vars["snake"])

	sc, err := s.agent.Sessions().Lookup(key)
	if err != nil {
		respondError(w, http.StatusNotFound, "session "+key.String()+" not found")
		return
	}

	respondJSON(w, http.StatusOK, sc.Info())
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games := []session.GameSummary{}
	if archive := s.agent.Archive(); archive != nil {
		all, err := archive.List()
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		games = all
	}
	total := len(games)

	// Apply limit if specified
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(games) {
			games = games[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"total": total,
		"games": games,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.agent.Stats())
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotFound, "spectating is disabled")
		return
	}
	gameID := r.URL.Query().Get("game")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, "game parameter required")
		return
	}

	s.hub.ServeWS(w, r, gameID)
}
