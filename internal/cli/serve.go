package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/charliek/eventlook/internal/api"
	"github.com/charliek/eventlook/internal/config"
	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/daemon"
	"github.com/charliek/eventlook/internal/live"
)

// eventlookDir returns the user directory (~/.eventlook)
func eventlookDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".eventlook"
	}
	return filepath.Join(home, ".eventlook")
}

// tokenPath returns the path to the token file
func tokenPath() string {
	return filepath.Join(eventlookDir(), "token")
}

// generateToken generates a cryptographically secure random token
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// saveToken saves the token to ~/.eventlook/token
func saveToken(token string) error {
	if err := os.MkdirAll(eventlookDir(), 0700); err != nil {
		return fmt.Errorf("creating eventlook directory: %w", err)
	}
	if err := os.WriteFile(tokenPath(), []byte(token), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// loadToken loads the token from ~/.eventlook/token
func loadToken() (string, error) {
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// isLocalhost checks if the host is a localhost address
func isLocalhost(host string) bool {
	return host == "" || host == "127.0.0.1" || host == "localhost" || host == "::1"
}

// isAuthRequired determines if authentication should be enabled based on config
func isAuthRequired(cfg *config.Config) bool {
	if cfg.API.Auth != nil {
		return *cfg.API.Auth
	}
	// Auth is required unless binding to localhost only
	return !isLocalhost(cfg.API.Host)
}

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		port   int
		host   string
		detach bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API over the log root: historical reads, batch and live
event streams. With --detach the server runs in the background and its
address is recorded in .eventlook/ for the status, stop and --remote commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.API.Port = port
			}
			if host != "" {
				cfg.API.Host = host
			}
			if cfg.API.Port == 0 {
				if cfg.API.Port, err = daemon.FindAvailablePort(cfg.API.Host); err != nil {
					return err
				}
			}

			d := daemon.StateDir("")
			if detach && !daemon.IsChild() {
				return spawnServer(cmd.OutOrStdout(), d, cfg.API.Port)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			level := slog.LevelInfo
			if g.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return runServer(ctx, cfg, path, d, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "API port (0 = any free port; default: api.port)")
	cmd.Flags().StringVar(&host, "host", "", "API host (default: api.host)")
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "Run in the background")
	return cmd
}

// spawnServer starts the server in the background and waits until it has
// recorded its state
func spawnServer(out io.Writer, d daemon.Dir, port int) error {
	if err := daemon.CleanupStale(d); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("eventlook is already running here (see 'eventlook status')")
		}
		return err
	}

	// The child gets the resolved port so the state matches what it binds
	args := append(withoutFlag(os.Args[1:], "-d", "--detach"), "--port", fmt.Sprint(port))
	pid, err := daemon.Spawn(d, args)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if state, err := daemon.Running(d); err == nil && state.PID == pid {
			fmt.Fprintf(out, "eventlook started (PID %d) on %s\n", pid, state.Addr())
			fmt.Fprintf(out, "Logs: %s\n", d.LogPath())
			return nil
		}
		if !daemon.ProcessExists(pid) {
			return fmt.Errorf("background server exited, see %s", d.LogPath())
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("background server (PID %d) did not start in time, see %s", pid, d.LogPath())
}

// withoutFlag returns args without the given boolean flags
func withoutFlag(args []string, names ...string) []string {
	out := make([]string, 0, len(args))
next:
	for _, arg := range args {
		for _, name := range names {
			if arg == name || strings.HasPrefix(arg, name+"=") {
				continue next
			}
		}
		out = append(out, arg)
	}
	return out
}

// runServer serves the API until ctx is done or a client requests shutdown
func runServer(ctx context.Context, cfg *config.Config, configPath string, d daemon.Dir, out io.Writer, logger *slog.Logger) error {
	if err := daemon.CleanupStale(d); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("eventlook is already running here (see 'eventlook status')")
		}
		return err
	}
	if err := d.Ensure(); err != nil {
		return err
	}
	pidFile := daemon.NewPIDFile(d.PIDPath())
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer func() {
		_ = pidFile.Release()
		_ = d.Cleanup()
	}()

	authEnabled := isAuthRequired(cfg)
	token := cfg.API.Token
	if authEnabled {
		if token == "" {
			var err error
			if token, err = generateToken(); err != nil {
				return fmt.Errorf("generating auth token: %w", err)
			}
		}
		if err := saveToken(token); err != nil {
			return err
		}
	} else if !isLocalhost(cfg.API.Host) {
		fmt.Fprintf(out, "WARNING: Auth disabled while binding to %s\n", cfg.API.Host)
		fmt.Fprintf(out, "         Any network client can read these logs.\n")
	}

	store := newStore(cfg, logger)
	hubs := live.NewManager(store, cfg.HubConfig(), logger)
	defer hubs.Close()

	shutdownCh := make(chan struct{})
	var shutdownOnce sync.Once
	shutdownFn := func() {
		shutdownOnce.Do(func() { close(shutdownCh) })
	}

	handlers := api.NewHandlers(store, hubs, api.ReadDefaults{
		Range:       cfg.ReadRange(),
		NewestFirst: cfg.NewestFirst(),
		MaxEvents:   cfg.Read.MaxEvents,
	}, configPath, shutdownFn, logger)
	server := api.NewServer(api.ServerConfig{
		Host:        cfg.API.Host,
		Port:        cfg.API.Port,
		AuthEnabled: authEnabled,
		Token:       token,
	}, handlers, logger)

	state := &daemon.State{
		PID:        os.Getpid(),
		Host:       cfg.API.Host,
		Port:       cfg.API.Port,
		Auth:       authEnabled,
		LogRoot:    store.Root(),
		ConfigFile: configPath,
		StartedAt:  time.Now(),
	}
	if err := state.Write(d); err != nil {
		return err
	}

	access := "local only"
	if !isLocalhost(cfg.API.Host) {
		access = "network accessible"
	}
	auth := "no auth"
	if authEnabled {
		auth = "auth enabled"
	}
	fmt.Fprintf(out, "Serving %s\n", store.Root())
	fmt.Fprintf(out, "API server: http://%s (%s, %s)\n", server.Addr(), access, auth)
	if authEnabled {
		fmt.Fprintf(out, "Auth token saved to: %s\n", tokenPath())
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		select {
		case <-gctx.Done():
			if ctx.Err() != nil {
				fmt.Fprintln(out, "\nShutting down...")
			}
		case <-shutdownCh:
			fmt.Fprintln(out, "\nShutdown requested via API...")
		}

		// Shutdown waits for open requests; closing the hubs ends live streams
		hubs.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := group.Wait()
	fmt.Fprintln(out, "Shutdown complete")
	return err
}
