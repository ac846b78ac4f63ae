package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/battlesnake-agent/game/dispatcher"
	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
)

// Client is a thin MCP client that proxies to the agent's REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Battlesnake Agent",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Battlesnake Agent - MCP Interface

This is a thin client that proxies all requests to the agent's REST API.
The agent plays Battlesnake games; the tournament server drives it through
the start, move and end callbacks. These tools only inspect it.

AVAILABLE TOOLS:
- describe_snake: The identity the snake reports (author, color, head, tail)
- list_sessions: Games currently in progress, optionally for one game id
- get_session: Statistics of one (game_id, snake_id) session
- list_games: Finished games, most recent first
- agent_stats: Callback counters, including malformed payloads, orphan
  callbacks and strategy failures`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_snake",
		Description: "Get the identity the snake reports to the tournament server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleDescribeSnake)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List the games in progress",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Only list sessions of this game (optional)",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the statistics of one session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID",
				},
				"snake_id": map[string]interface{}{
					"type":        "string",
					"description": "Snake ID",
				},
			},
			Required: []string{"game_id", "snake_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List finished games, most recent first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of games to return (optional)",
				},
			},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "agent_stats",
		Description: "Get the agent's callback counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleAgentStats)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleDescribeSnake(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var describe protocol.DescribeResponse
	if err := c.apiCall(ctx, "GET", "/", nil, &describe); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDescribe(&describe)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, _ := arguments(request)["game_id"].(string)

	path := "/api/sessions"
	if gameID != "" {
		path += "?game=" + url.QueryEscape(gameID)
	}

	var resp struct {
		Count    int            `json:"count"`
		Sessions []session.Info `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Sessions) == 0 {
		return mcp.NewToolResultText("No games in progress"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active sessions (%d):\n", resp.Count)
	for i := range resp.Sessions {
		b.WriteString("- ")
		b.WriteString(formatSessionLine(&resp.Sessions[i]))
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	snakeID, _ := args["snake_id"].(string)
	if gameID == "" || snakeID == "" {
		return mcp.NewToolResultError("game_id and snake_id are required"), nil
	}

	var info session.Info
	path := fmt.Sprintf("/api/sessions/%s/%s", url.PathEscape(gameID), url.PathEscape(snakeID))
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/games"
	switch limit := arguments(request)["limit"].(type) {
	case float64:
		if limit > 0 {
			path += "?limit=" + strconv.Itoa(int(limit))
		}
	case string:
		if limit != "" {
			path += "?limit=" + url.QueryEscape(limit)
		}
	}

	var resp struct {
		Count int                   `json:"count"`
		Total int                   `json:"total"`
		Games []session.GameSummary `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Games) == 0 {
		return mcp.NewToolResultText("No finished games"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Finished games (showing %d of %d):\n", resp.Count, resp.Total)
	for i := range resp.Games {
		b.WriteString("- ")
		b.WriteString(formatGameLine(&resp.Games[i]))
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleAgentStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats dispatcher.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStats(&stats)), nil
}

// Formatting helpers

func formatDescribe(d *protocol.DescribeResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "API version: %s\n", d.APIVersion)
	if d.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", d.Author)
	}
	fmt.Fprintf(&b, "Color: %s\n", d.Color)
	fmt.Fprintf(&b, "Head: %s\n", d.Head)
	fmt.Fprintf(&b, "Tail: %s\n", d.Tail)
	if d.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", d.Version)
	}
	return b.String()
}

func formatSessionLine(info *session.Info) string {
	return fmt.Sprintf("game=%s snake=%s turn=%d moves=%d avg=%s",
		info.Key.GameID, info.Key.SnakeID, info.LastTurn, info.MoveCount, info.AverageMoveTime)
}

func formatSessionInfo(info *session.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game: %s\n", info.Key.GameID)
	fmt.Fprintf(&b, "Snake: %s\n", info.Key.SnakeID)
	fmt.Fprintf(&b, "Started: %s\n", info.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Last turn: %d\n", info.LastTurn)
	fmt.Fprintf(&b, "Moves: %d\n", info.MoveCount)
	fmt.Fprintf(&b, "Compute time: %s (avg %s per move)\n", info.ComputeTime, info.AverageMoveTime)
	return b.String()
}

func formatGameLine(g *session.GameSummary) string {
	result := "eliminated"
	if g.Survived {
		result = "survived"
	}
	line := fmt.Sprintf("game=%s snake=%s turns=%d %s avg=%s",
		g.GameID, g.SnakeID, g.Turns, result, g.AverageMoveTime)
	if g.Ruleset != "" {
		line += " ruleset=" + g.Ruleset
	}
	return line
}

func formatStats(s *dispatcher.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Up since: %s\n", s.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Active sessions: %d\n", s.ActiveSessions)
	fmt.Fprintf(&b, "Callbacks: describe=%d start=%d (duplicate %d) move=%d end=%d\n",
		s.Describes, s.Starts, s.DuplicateStarts, s.Moves, s.Ends)
	fmt.Fprintf(&b, "Errors: malformed=%d orphan=%d strategy=%d encoding=%d\n",
		s.Malformed, s.Orphans, s.StrategyFailures, s.EncodingErrors)
	return b.String()
}
