// Package mcp exposes the agent's inspection API as Model Context Protocol
// tools.
//
// The Client is a thin proxy: every tool calls the agent's REST API and
// formats the answer as text. It never drives a game, the tournament server
// does that through the callbacks.
//
// MCP Tools:
//   - describe_snake: identity reported by the describe callback
//   - list_sessions: games in progress, optionally filtered by game id
//   - get_session: statistics of one (game_id, snake_id) session
//   - list_games: finished games, most recent first
//   - agent_stats: callback and error counters
//
// Usage:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode, served by the agent at /mcp
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
