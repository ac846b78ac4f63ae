package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/game/config"
	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/transport/mcp"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	return config.Settings{
		Port:           8080,
		Profile:        "default",
		ProfileDir:     t.TempDir(),
		SessionMaxIdle: time.Minute,
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Battlesnake Agent" {
		t.Errorf("Expected app name Battlesnake Agent, got %s", AppName)
	}
}

func TestFlagsOverrideSettings(t *testing.T) {
	base := testSettings(t)
	base.Snake = "example"

	var got config.Settings
	app := newApp(base)
	app.Action = func(_ context.Context, cmd *cli.Command) error {
		got = settingsFrom(cmd)
		return nil
	}

	err := app.Run(context.Background(), []string{"battlesnake-agent", "--port", "9001", "--snake", "down", "--verbose"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got.Port != 9001 {
		t.Errorf("Expected port 9001, got %d", got.Port)
	}
	if got.Snake != "down" {
		t.Errorf("Expected snake down, got %s", got.Snake)
	}
	if !got.Verbose {
		t.Error("Expected verbose to be set")
	}
	if got.ProfileDir != base.ProfileDir {
		t.Errorf("Expected profile dir default %s, got %s", base.ProfileDir, got.ProfileDir)
	}
	if got.SessionMaxIdle != time.Minute {
		t.Errorf("Expected session max idle 1m, got %v", got.SessionMaxIdle)
	}
}

func TestNewAgent(t *testing.T) {
	t.Run("embedded default profile", func(t *testing.T) {
		a, err := newAgent(testSettings(t), zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create agent: %v", err)
		}
		if a.profile.Snake != "default" {
			t.Errorf("Expected default snake, got %s", a.profile.Snake)
		}
	})

	t.Run("profile from directory", func(t *testing.T) {
		s := testSettings(t)
		s.Profile = "walker"
		profile := "name: Walker\nsnake: perimeter\nfallback_move: up\nidentity:\n  author: tester\n"
		if err := os.WriteFile(filepath.Join(s.ProfileDir, "walker.yaml"), []byte(profile), 0644); err != nil {
			t.Fatal(err)
		}

		a, err := newAgent(s, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create agent: %v", err)
		}
		resp, err := a.dispatcher.Describe(context.Background())
		if err != nil {
			t.Fatalf("Describe failed: %v", err)
		}
		if resp.Author != "tester" {
			t.Errorf("Expected author tester, got %s", resp.Author)
		}
	})

	t.Run("file archive", func(t *testing.T) {
		s := testSettings(t)
		s.ArchiveDir = filepath.Join(t.TempDir(), "games")
		if _, err := newAgent(s, zap.NewNop()); err != nil {
			t.Fatalf("Failed to create agent: %v", err)
		}
		if _, err := os.Stat(s.ArchiveDir); err != nil {
			t.Errorf("Expected archive directory to be created: %v", err)
		}
	})

	failures := []struct {
		name   string
		modify func(*config.Settings)
	}{
		{"unknown profile", func(s *config.Settings) { s.Profile = "missing" }},
		{"unknown snake", func(s *config.Settings) { s.Snake = "nobody" }},
		{"bad fallback", func(s *config.Settings) { s.FallbackMove = "north" }},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings(t)
			tt.modify(&s)
			if _, err := newAgent(s, zap.NewNop()); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestAgentServesGame(t *testing.T) {
	s := testSettings(t)
	s.Snake = "example"
	a, err := newAgent(s, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}
	srv := httptest.NewServer(a.server)
	defer srv.Close()
	a.mountMCP(srv.URL)

	state := `{"game":{"id":"g1"},"turn":%TURN%,"board":{"width":11,"height":11,"food":[],"snakes":[{"id":"s1","body":[{"x":1,"y":1}],"head":{"x":1,"y":1}}]},"you":{"id":"s1","body":[{"x":1,"y":1}],"head":{"x":1,"y":1}}}`
	post := func(path string, turn string) (int, string) {
		body := strings.ReplaceAll(state, "%TURN%", turn)
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(data)
	}

	if code, _ := post("/start", "0"); code != http.StatusOK {
		t.Fatalf("Expected start 200, got %d", code)
	}
	code, body := post("/move", "1")
	if code != http.StatusOK {
		t.Fatalf("Expected move 200, got %d", code)
	}
	if !strings.Contains(body, `"move":"right"`) {
		t.Errorf("Expected example snake to move right, got %s", body)
	}
	if code, _ := post("/end", "2"); code != http.StatusOK {
		t.Fatalf("Expected end 200, got %d", code)
	}
	if code, _ := post("/move", "3"); code != http.StatusNotFound {
		t.Errorf("Expected move after end to be 404, got %d", code)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	metrics, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(metrics), `battlesnake_callbacks_total{kind="move",outcome="ok"} 1`) {
		t.Errorf("Expected move counter in metrics output")
	}

	resp, err = http.Post(srv.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"agent_stats","arguments":{}}}`))
	if err != nil {
		t.Fatalf("POST /mcp failed: %v", err)
	}
	rpc, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(rpc), "start=1") {
		t.Errorf("Expected agent stats through MCP, got %s", rpc)
	}
}

func TestMCPHandlerRejectsGet(t *testing.T) {
	h := mcpHandler(mcp.NewClient("http://127.0.0.1:1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestLocalURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"", "http://127.0.0.1:8080"},
		{"0.0.0.0", "http://127.0.0.1:8080"},
		{"localhost", "http://localhost:8080"},
	}
	for _, tt := range tests {
		if got := localURL(config.Settings{Host: tt.host, Port: 8080}); got != tt.want {
			t.Errorf("localURL(%q): expected %s, got %s", tt.host, tt.want, got)
		}
	}
}

func TestParseFallback(t *testing.T) {
	d, err := parseFallback("Left")
	if err != nil || d != protocol.Left {
		t.Errorf("Expected left, got %v (%v)", d, err)
	}
	if _, err := parseFallback("diagonal"); err == nil {
		t.Error("Expected error for invalid direction")
	}
}

func TestReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	if !reachable(srv.URL) {
		t.Error("Expected test server to be reachable")
	}
	srv.Close()
	if reachable(srv.URL) {
		t.Error("Expected closed server to be unreachable")
	}
}

func TestCleanupLoop(t *testing.T) {
	a, err := newAgent(testSettings(t), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleanupLoop(ctx, a, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanupLoop did not stop on cancel")
	}

	// Disabled when interval is zero
	cleanupLoop(context.Background(), a, 0, time.Hour)
}
