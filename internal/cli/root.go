package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/charliek/eventlook/internal/config"
	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/daemon"
	"github.com/charliek/eventlook/internal/eventlog"
)

// Version is set during build
var Version = "dev"

// globalOptions holds the persistent flags
type globalOptions struct {
	configPath string
	logRoot    string
	apiAddr    string
	verbose    bool
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "eventlook",
		Short: "Read, filter and follow event logs",
		Long: `eventlook reads event log channels and archive files. It supports:
  - Batched historical reads that can be cancelled with Ctrl+C
  - Message filters with "|" alternatives and quoted phrases
  - Level, provider and event id filters
  - Live events appended to a channel
  - An interactive viewer and an HTTP API`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default: "+constants.DefaultConfigFile+" if present)")
	root.PersistentFlags().StringVar(&g.logRoot, "root", "", "Channel directory (overrides log_root)")
	root.PersistentFlags().StringVar(&g.apiAddr, "addr", "", "API address for remote commands (default: discovered)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	root.SetVersionTemplate("eventlook version {{.Version}}\n")

	root.AddCommand(
		newReadCmd(g),
		newTailCmd(g),
		newViewCmd(g),
		newChannelsCmd(g),
		newCheckCmd(g),
		newComputerCmd(g),
		newExportCmd(g),
		newWriteCmd(g),
		newServeCmd(g),
		newStatusCmd(g),
		newStopCmd(g),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eventlook version %s\n", Version)
		},
	}
}

// loadConfig reads the config file, applies env overrides and the --root flag.
// Without --config a config file in the working directory is optional.
func (g *globalOptions) loadConfig() (*config.Config, string, error) {
	path := g.configPath
	if path == "" {
		if found, err := config.FindConfigFile(); err == nil {
			path = found
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, "", err
		}
	}

	if err := config.ApplyEnv(cfg, configDir(path)); err != nil {
		return nil, "", err
	}
	if g.logRoot != "" {
		cfg.LogRoot = g.logRoot
	}
	return cfg, path, nil
}

// configDir returns the absolute directory of the config file
func configDir(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Dir(abs)
	}
	return filepath.Dir(path)
}

// logger returns a text logger on w, at debug level with --verbose
func (g *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newStore(cfg *config.Config, logger *slog.Logger) *eventlog.Store {
	return eventlog.NewStore(eventlog.StoreConfig{
		Root:        cfg.LogRoot,
		WatchBuffer: cfg.Live.WatchBuffer,
	}, logger)
}

// apiAddress returns the API address for remote commands.
// Priority:
// 1. --addr flag
// 2. State file (.eventlook/eventlook.state) of a running server
// 3. Config file api section
// 4. Default address
func (g *globalOptions) apiAddress() string {
	if g.apiAddr != "" {
		return g.apiAddr
	}
	if state, err := daemon.Running(daemon.StateDir("")); err == nil {
		return state.Addr()
	}
	if cfg, _, err := g.loadConfig(); err == nil {
		return fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port)
	}
	return fmt.Sprintf("http://%s:%d", constants.DefaultAPIHost, constants.DefaultAPIPort)
}
