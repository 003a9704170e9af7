package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/rezlab/oplog/internal/cmd/client"
	serverrun "github.com/rezlab/oplog/internal/cmd/server"
	cfgpkg "github.com/rezlab/oplog/internal/config"
	pebblestore "github.com/rezlab/oplog/internal/storage/pebble"
	logpkg "github.com/rezlab/oplog/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect OPLOG_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("OPLOG_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "oplog",
		Short: "oplog runtime CLI",
		Long:  "oplog is a durable invocation-journal runtime. This CLI manages the server and inspects recorded instances.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the oplog server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			store, _ := cmd.Flags().GetString("store")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			replayMode, _ := cmd.Flags().GetString("replay-mode")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)

			// Flags take precedence over file and env.
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}
			if store != "" {
				cfg.Store = store
			}
			if fsyncMode != "" {
				cfg.Fsync = fsyncMode
			}
			if cmd.Flags().Changed("fsync-interval-ms") {
				cfg.FsyncIntervalMs = fsyncIntervalMs
			}
			if replayMode != "" {
				cfg.ReplayMode = replayMode
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}

			mode, err := pebblestore.ParseFsyncMode(cfg.Fsync)
			if err != nil {
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       cfg.DataDir,
				HTTPAddr:      cfg.HTTPAddr,
				Backend:       cfg.Store,
				Fsync:         mode,
				FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Config file (JSON or YAML)")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (defaults to OS-specific application data directory)")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	serverStartCmd.Flags().String("store", "", "Store backend: pebble|memory (default pebble)")
	serverStartCmd.Flags().String("fsync", "", "Fsync mode: always|interval|never (default always)")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	serverStartCmd.Flags().String("replay-mode", "", "Replay mismatch policy for new instances: strict|best-effort")
	serverStartCmd.Flags().String("log-level", os.Getenv("OPLOG_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("OPLOG_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewInstanceCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewLogCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("OPLOG_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
