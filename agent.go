package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/api"
	"github.com/wricardo/battlesnake-agent/game/config"
	"github.com/wricardo/battlesnake-agent/game/dispatcher"
	"github.com/wricardo/battlesnake-agent/game/session"
	"github.com/wricardo/battlesnake-agent/game/snakes"
	"github.com/wricardo/battlesnake-agent/monitor"
	"github.com/wricardo/battlesnake-agent/transport/mcp"
	"github.com/wricardo/battlesnake-agent/transport/websocket"
)

// agent is everything one running snake needs
type agent struct {
	profile    *config.Profile
	dispatcher *dispatcher.Dispatcher
	hub        *websocket.Hub
	metrics    *monitor.Metrics
	server     *api.Server
}

// newAgent wires the profile, strategy, dispatcher and HTTP surface
func newAgent(settings config.Settings, logger *zap.Logger) (*agent, error) {
	profiles, err := config.NewManager(settings.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile manager: %w", err)
	}

	profile, err := profiles.Load(settings.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %q: %w", settings.Profile, err)
	}

	snakeName := profile.Snake
	if settings.Snake != "" {
		snakeName = settings.Snake
	}
	strat, err := snakes.New(snakeName, profile.Identity, logger.Named("snake"))
	if err != nil {
		return nil, err
	}

	fallback, err := profile.Fallback()
	if err != nil {
		return nil, err
	}
	if settings.FallbackMove != "" {
		fallback, err = parseFallback(settings.FallbackMove)
		if err != nil {
			return nil, err
		}
	}

	var archive session.GameArchive = session.NewBoundedMemoryArchive(settings.ArchiveLimit)
	if settings.ArchiveDir != "" {
		archive, err = session.NewFileArchive(settings.ArchiveDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create game archive: %w", err)
		}
	}

	hub := websocket.NewHub(logger.Named("ws"))
	d := dispatcher.New(strat, dispatcher.Options{
		Logger:       logger.Named("dispatcher"),
		Verbose:      settings.Verbose,
		Identity:     profile.Identity,
		FallbackMove: fallback,
		Archive:      archive,
		Observers:    []dispatcher.Observer{hub},
	})

	metrics := monitor.NewMetrics("battlesnake", d.Sessions().Len)
	d.AddObserver(metrics)

	server := api.NewServer(d, hub, logger.Named("api"))
	server.Mount("/metrics", metrics.Handler())

	logger.Info("agent ready",
		zap.String("profile", profile.Name),
		zap.String("snake", snakeName),
		zap.String("author", profile.Identity.Author),
		zap.Bool("verbose", settings.Verbose),
	)

	return &agent{
		profile:    profile,
		dispatcher: d,
		hub:        hub,
		metrics:    metrics,
		server:     server,
	}, nil
}

// mountMCP serves MCP JSON-RPC at /mcp, proxying to baseURL
func (a *agent) mountMCP(baseURL string) {
	client := mcp.NewClient(baseURL)
	a.server.Mount("/mcp", mcpHandler(client))
}

func mcpHandler(client *mcp.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// localURL is the address the agent can reach itself on
func localURL(settings config.Settings) string {
	host := settings.Host
	if host == "" || host == "0.0.0.0" || strings.HasPrefix(host, "[::") {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, settings.Port)
}
