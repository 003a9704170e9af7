package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/rezlab/oplog/internal/config"
	"github.com/rezlab/oplog/internal/metrics"
	"github.com/rezlab/oplog/internal/runtime"
	httpserver "github.com/rezlab/oplog/internal/server/http"
	pebblestore "github.com/rezlab/oplog/internal/storage/pebble"
	logpkg "github.com/rezlab/oplog/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir       string
	HTTPAddr      string
	Backend       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts the inspection HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers that
	// don't pass a signal-aware context still get clean shutdown.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	storeDir := filepath.Join(opts.DataDir, "store")

	cfg := &logpkg.Config{
		Level:  getenvDefault("OPLOG_LOG_LEVEL", opts.Config.Log.Level),
		Format: getenvDefault("OPLOG_LOG_FORMAT", opts.Config.Log.Format),
	}
	procLogger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	m := metrics.New()
	rt, err := runtime.Open(runtime.Options{
		DataDir:        storeDir,
		Backend:        opts.Backend,
		Fsync:          opts.Fsync,
		FsyncInterval:  opts.FsyncInterval,
		Config:         opts.Config,
		Logger:         procLogger,
		StorageMetrics: m,
		CallMetrics:    m,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting oplog server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("replay_mode", opts.Config.ReplayMode),
		logpkg.Str("level", cfg.Level),
		logpkg.Str("format", cfg.Format),
	)

	hsrv := httpserver.New(rt, m.Handler())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http error", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Shut the server down before closing the runtime/DB to avoid races.
	hsrv.Close()
	wg.Wait()
	return nil
}
