// Package api binds the snake agent to HTTP.
//
// The api package implements:
//   - The four tournament callbacks and the legacy ping route
//   - Byte-level decoding and encoding of callback payloads
//   - Mapping of agent errors to HTTP status codes
//   - Read-only inspection endpoints for sessions, games and counters
//   - WebSocket upgrade for spectators
//
// Endpoints:
//
// Callbacks:
//   - GET, POST / - Describe the snake
//   - POST /start - A game begins
//   - POST /move - Choose the next move
//   - POST /end - A game is over
//   - GET, POST /ping - Legacy health check, answers {}
//   - GET /info - HTML page showing the URL to register the snake with
//
// Inspection:
//   - GET /api/sessions[?game=<id>] - Active sessions
//   - GET /api/sessions/{game}/{snake} - One active session
//   - GET /api/games[?limit=N] - Archived finished games, newest first
//   - GET /api/stats - Dispatcher counters
//
// WebSocket:
//   - GET /ws?game=<id> - Stream the turns of one game
//
// Other packages mount /metrics and /mcp with Server.Mount.
//
// Status Codes:
//
// Callback failures answer with {"error": "...", "code": "..."}:
//   - 400 malformed_payload - Required fields missing or invalid JSON
//   - 404 orphan_session - Move or end without a preceding start
//   - 500 encoding_error - The response could not be serialized
//   - 500 internal_error - A start whose session could not be created
//
// Every response carries an X-Request-ID header, echoed from the request
// when present.
package api
