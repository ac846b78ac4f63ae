// Command battlesnake-agent runs a Battlesnake agent.
//
// It supports three commands:
//  1. "serve" (default) – answers the tournament callbacks over HTTP and
//     exposes the inspection API, spectator WebSocket, /metrics and /mcp
//  2. "mcp" – runs an MCP stdio server, starting an internal agent if none
//     is reachable
//  3. "profiles" – lists the snake profiles and registered strategies
//
// Flags default to the environment (PORT, HOST, BATTLESNAKE_*, NGROK_*); a
// .env file in the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/battlesnake-agent/game/config"
	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/snakes"
	"github.com/wricardo/battlesnake-agent/transport/mcp"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Battlesnake Agent"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read settings: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", envErr)
	}

	if err := newApp(settings).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Flag defaults come from settings and are
// inherited by every subcommand.
func newApp(settings config.Settings) *cli.Command {
	return &cli.Command{
		Name:    "battlesnake-agent",
		Usage:   "play Battlesnake",
		Version: Version,
		Flags:   globalFlags(settings),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "answer tournament callbacks over HTTP (default)",
				Action: serveAction,
			},
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server for inspecting the agent",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "api-url",
						Value: localURL(settings),
						Usage: "agent to inspect; an internal one is started when unreachable",
					},
				},
				Action: mcpAction,
			},
			{
				Name:   "profiles",
				Usage:  "list snake profiles and strategies",
				Action: profilesAction,
			},
		},
	}
}

func globalFlags(s config.Settings) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{Name: "host", Value: s.Host, Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Value: s.Port, Usage: "HTTP server port"},
		&cli.StringFlag{Name: "profile", Value: s.Profile, Usage: "snake profile to play"},
		&cli.StringFlag{Name: "profile-dir", Value: s.ProfileDir, Usage: "directory containing snake profiles"},
		&cli.StringFlag{Name: "snake", Value: s.Snake, Usage: "strategy overriding the profile's"},
		&cli.StringFlag{Name: "fallback-move", Value: s.FallbackMove, Usage: "move answered when the strategy fails (default: safest move)"},
		&cli.BoolFlag{Name: "verbose", Value: s.Verbose, Usage: "log every callback"},
		&cli.BoolFlag{Name: "debug", Value: s.Debug, Usage: "enable debug logging"},
	}, serveFlags(s)...)
}

func serveFlags(s config.Settings) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "archive-dir", Value: s.ArchiveDir, Usage: "directory for finished game summaries (default: in memory)"},
		&cli.IntFlag{Name: "archive-limit", Value: s.ArchiveLimit, Usage: "finished games kept by the in-memory archive (0 keeps all)"},
		&cli.DurationFlag{Name: "session-max-idle", Value: s.SessionMaxIdle, Usage: "evict sessions idle for this long"},
		&cli.DurationFlag{Name: "cleanup-interval", Value: s.CleanupInterval, Usage: "how often idle sessions are evicted"},
		&cli.BoolFlag{Name: "ngrok", Value: s.NgrokEnabled, Usage: "expose the agent through an ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-authtoken", Value: s.NgrokAuthToken, Usage: "ngrok auth token"},
		&cli.StringFlag{Name: "ngrok-domain", Value: s.NgrokDomain, Usage: "custom ngrok domain (optional)"},
	}
}

// settingsFrom applies the command's flags over the environment settings
func settingsFrom(cmd *cli.Command) config.Settings {
	s := config.Settings{
		Host:           cmd.String("host"),
		Port:           cmd.Int("port"),
		Profile:        cmd.String("profile"),
		ProfileDir:     cmd.String("profile-dir"),
		Snake:          cmd.String("snake"),
		FallbackMove:   cmd.String("fallback-move"),
		Verbose:        cmd.Bool("verbose"),
		Debug:          cmd.Bool("debug"),
		ArchiveDir:     cmd.String("archive-dir"),
		ArchiveLimit:   cmd.Int("archive-limit"),
		SessionMaxIdle: cmd.Duration("session-max-idle"),
		NgrokEnabled:   cmd.Bool("ngrok"),
		NgrokAuthToken: cmd.String("ngrok-authtoken"),
		NgrokDomain:    cmd.String("ngrok-domain"),

		CleanupInterval: cmd.Duration("cleanup-interval"),
	}
	return s
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func parseFallback(s string) (protocol.Direction, error) {
	d, err := protocol.ParseDirection(s)
	if err != nil {
		return 0, fmt.Errorf("invalid fallback move: %w", err)
	}
	return d, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	settings := settingsFrom(cmd)
	logger, err := newLogger(settings.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version))

	a, err := newAgent(settings, logger)
	if err != nil {
		return err
	}
	a.mountMCP(localURL(settings))

	return runServer(ctx, a, settings, logger)
}

// runServer serves the agent until ctx is cancelled
func runServer(ctx context.Context, a *agent, settings config.Settings, logger *zap.Logger) error {
	addr := settings.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      a.server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", listener.Addr().String()),
			zap.String("metrics", "/metrics"),
			zap.String("mcp", "/mcp"),
			zap.String("spectate", "/ws?game=<game_id>"),
		)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		cleanupLoop(ctx, a, settings.CleanupInterval, settings.SessionMaxIdle)
		return nil
	})

	if settings.NgrokEnabled {
		g.Go(func() error {
			return runTunnel(ctx, a.server, settings, logger)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped", zap.Int("active_sessions", a.dispatcher.Sessions().Len()))
	return err
}

// cleanupLoop evicts sessions whose end callback never arrived
func cleanupLoop(ctx context.Context, a *agent, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.dispatcher.CleanupIdle(maxIdle)
		}
	}
}

// runTunnel serves handler through ngrok. A missing token or a failed
// tunnel is logged and leaves the local server running.
func runTunnel(ctx context.Context, handler http.Handler, settings config.Settings, logger *zap.Logger) error {
	if settings.NgrokAuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-authtoken or NGROK_AUTHTOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokAuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return nil
	}

	logger.Info("ngrok tunnel established", zap.String("url", tun.URL()))

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// mcpAction runs an MCP stdio server. It reuses the agent at --api-url when
// one answers there, otherwise it starts an internal agent on a loopback port.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	settings := settingsFrom(cmd)

	// stdout belongs to the MCP protocol
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if settings.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := cmd.String("api-url")
	if !reachable(baseURL) {
		logger.Info("no agent found, starting internal HTTP server", zap.String("checked", baseURL))

		a, err := newAgent(settings, logger)
		if err != nil {
			return err
		}
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		go a.hub.Run(ctx)
		internal := &http.Server{Handler: a.server}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer internal.Close()
	}

	logger.Info("MCP stdio server ready", zap.String("api", baseURL))
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

// reachable reports whether an agent answers ping at baseURL
func reachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/ping")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

func profilesAction(ctx context.Context, cmd *cli.Command) error {
	manager, err := config.NewManager(cmd.String("profile-dir"))
	if err != nil {
		return err
	}

	infos, err := manager.List()
	if err != nil {
		return err
	}

	def := manager.Default()
	fmt.Printf("Default profile: %s (snake: %s)\n", def.Name, def.Snake)
	if len(infos) == 0 {
		fmt.Printf("No profiles in %s\n", manager.Dir())
	}
	for _, info := range infos {
		fmt.Printf("  %-20s snake=%-10s %s\n", info.ProfileID, info.Snake, info.Description)
	}

	fmt.Println("Strategies:")
	for _, name := range snakes.Names() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
