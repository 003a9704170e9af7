package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	cfgpkg "github.com/rezlab/oplog/internal/config"
	"github.com/rezlab/oplog/internal/instance"
	"github.com/rezlab/oplog/internal/journal"
	"github.com/rezlab/oplog/internal/storage"
	memstore "github.com/rezlab/oplog/internal/storage/memory"
	pebblestore "github.com/rezlab/oplog/internal/storage/pebble"
	"github.com/rezlab/oplog/pkg/durable"
	"github.com/rezlab/oplog/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	// Backend selects the store: "pebble" (default) or "memory". The memory
	// backend provides no durability across restarts; development and
	// testing only.
	Backend       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        log.Logger
	// StorageMetrics observes store latencies when the pebble backend is used.
	StorageMetrics pebblestore.MetricsHook
	// CallMetrics observes wrapped calls on wrappers built via Wrapper.
	CallMetrics durable.Metrics
}

// Runtime wires storage, config, and per-instance replay state for a
// single-node host. It implements durable.Host.
type Runtime struct {
	store       storage.Store
	config      cfgpkg.Config
	logger      log.Logger
	callMetrics durable.Metrics

	mu       sync.Mutex
	journals map[string]*journal.Journal
	cursors  map[string]uint64
}

var _ durable.Host = (*Runtime)(nil)

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithLevel(log.InfoLevel))
	}
	logger = logger.WithComponent("runtime")

	var store storage.Store
	switch opts.Backend {
	case "", "pebble":
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir:       opts.DataDir,
			Fsync:         opts.Fsync,
			FsyncInterval: opts.FsyncInterval,
			Metrics:       opts.StorageMetrics,
		})
		if err != nil {
			return nil, err
		}
		store = db
	case "memory":
		logger.Warn("using in-memory store: no durability across restarts")
		store = memstore.Open()
	default:
		return nil, errors.New("runtime: invalid backend; use pebble|memory")
	}

	return &Runtime{
		store:       store,
		config:      opts.Config,
		logger:      logger,
		callMetrics: opts.CallMetrics,
		journals:    make(map[string]*journal.Journal),
		cursors:     make(map[string]uint64),
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// CheckHealth performs a simple storage round trip.
func (r *Runtime) CheckHealth(_ context.Context) error {
	if r.store == nil {
		return errors.New("store not open")
	}
	_, _, err := r.store.Get([]byte("healthz"))
	return err
}

// Store exposes the underlying store (internal use only).
func (r *Runtime) Store() storage.Store { return r.store }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// EnsureInstance creates an instance record if absent.
func (r *Runtime) EnsureInstance(id string) (instance.Meta, error) {
	return instance.Ensure(r.store, id, r.config.ReplayMode)
}

// ListInstances returns all known instances.
func (r *Runtime) ListInstances() ([]instance.Meta, error) {
	return instance.List(r.store)
}

// Journal opens (or returns the cached) journal for an instance.
func (r *Runtime) Journal(id string) (*journal.Journal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.journalLocked(id)
}

func (r *Runtime) journalLocked(id string) (*journal.Journal, error) {
	if j, ok := r.journals[id]; ok {
		return j, nil
	}
	j, err := journal.Open(r.store, id)
	if err != nil {
		return nil, err
	}
	r.journals[id] = j
	return j, nil
}

// Wrapper ensures the instance exists and binds a durable wrapper to it,
// honoring the instance's recorded replay mode.
func (r *Runtime) Wrapper(id string, opts ...durable.Option) (*durable.Wrapper, error) {
	meta, err := r.EnsureInstance(id)
	if err != nil {
		return nil, err
	}
	mode, err := durable.ParseReplayMode(meta.ReplayMode)
	if err != nil {
		mode = durable.ReplayStrict
	}
	base := []durable.Option{durable.WithReplayMode(mode), durable.WithLogger(r.logger)}
	if r.callMetrics != nil {
		base = append(base, durable.WithMetrics(r.callMetrics))
	}
	return durable.NewWrapper(r, id, append(base, opts...)...), nil
}

// PurgeInstance removes an instance's journal and metadata. The instance
// must not be executing; purging destroys its ability to replay.
func (r *Runtime) PurgeInstance(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	j, err := r.journalLocked(id)
	if err != nil {
		r.mu.Unlock()
		return 0, err
	}
	delete(r.journals, id)
	delete(r.cursors, id)
	r.mu.Unlock()

	n, err := j.Purge(ctx, 1024)
	if err != nil {
		return n, err
	}
	if err := instance.Delete(r.store, id); err != nil {
		return n, err
	}
	r.logger.Info("instance purged", log.Str("instance", id), log.Int("records", n))
	return n, nil
}

// IsLive reports whether the instance's cursor has moved past its recorded
// history.
func (r *Runtime) IsLive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.journalLocked(id)
	if err != nil {
		return false
	}
	return r.cursors[id] >= j.Count()
}

// CurrentOrdinal returns the instance's cursor position.
func (r *Runtime) CurrentOrdinal(id string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursors[id]
}

// Persist appends one invocation record and advances the cursor. Identical
// re-persists are no-ops; a differing record at a recorded ordinal or an
// ordinal gap surfaces the journal's consistency error to the wrapper.
func (r *Runtime) Persist(id string, ordinal uint64, operation string, inputDigest string, outcome []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.journalLocked(id)
	if err != nil {
		return err
	}
	header := journal.Header{
		Operation:    operation,
		InputDigest:  inputDigest,
		CapturedAtMs: time.Now().UnixMilli(),
	}
	if err := j.Append(context.Background(), ordinal, header, outcome); err != nil {
		return err
	}
	if ordinal == r.cursors[id] {
		r.cursors[id] = ordinal + 1
	}
	return nil
}

// GetRecord returns the record at the given ordinal, advancing the cursor
// when the read consumes it (replay consumption).
func (r *Runtime) GetRecord(id string, ordinal uint64) (durable.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.journalLocked(id)
	if err != nil {
		return durable.Record{}, false, err
	}
	ent, ok, err := j.Get(ordinal)
	if err != nil || !ok {
		return durable.Record{}, false, err
	}
	if ordinal == r.cursors[id] {
		r.cursors[id] = ordinal + 1
	}
	return durable.Record{
		Ordinal:     ent.Ordinal,
		Operation:   ent.Header.Operation,
		InputDigest: ent.Header.InputDigest,
		Outcome:     ent.Payload,
	}, true, nil
}
