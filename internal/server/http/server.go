package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rezlab/oplog/internal/inspect"
	"github.com/rezlab/oplog/internal/journal"
	"github.com/rezlab/oplog/internal/runtime"
)

// Server is the read-only inspection API. It never mutates journals except
// through the explicit purge endpoint; replay correctness depends on the
// journal being append-only for everything else.
type Server struct {
	rt  *runtime.Runtime
	srv *http.Server
	lis net.Listener
}

// New builds the server. metricsHandler may be nil to disable /metrics.
func New(rt *runtime.Runtime, metricsHandler http.Handler) *Server {
	mux := http.NewServeMux()
	s := &Server{rt: rt, srv: &http.Server{Handler: cors(mux)}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/instances", s.handleInstances)
	mux.HandleFunc("/v1/instances/create", s.handleCreate)
	mux.HandleFunc("/v1/records", s.handleRecords)
	mux.HandleFunc("/v1/instances/purge", s.handlePurge)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// Addr returns the bound listen address, valid after ListenAndServe.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	metas, err := s.rt.ListInstances()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	type item struct {
		ID         string `json:"id"`
		CreatedAt  int64  `json:"createdAtMs"`
		ReplayMode string `json:"replayMode"`
		Records    uint64 `json:"records"`
	}
	items := make([]item, 0, len(metas))
	for _, m := range metas {
		it := item{ID: m.ID, CreatedAt: m.CreatedAtMs, ReplayMode: m.ReplayMode}
		if j, err := s.rt.Journal(m.ID); err == nil {
			it.Records = j.Count()
		}
		items = append(items, it)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"instances": items})
}

// recordView is the wire shape of one journal entry.
type recordView struct {
	Ordinal     uint64          `json:"ordinal"`
	Operation   string          `json:"operation"`
	InputDigest string          `json:"digest"`
	CapturedAt  int64           `json:"tsMs"`
	Outcome     json.RawMessage `json:"outcome"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	instID := q.Get("instance")
	if instID == "" {
		http.Error(w, "missing instance", http.StatusBadRequest)
		return
	}
	var from uint64
	if v := q.Get("from"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "bad from", http.StatusBadRequest)
			return
		}
		from = n
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	filter, err := inspect.NewFilter(q.Get("filter"))
	if err != nil {
		http.Error(w, "bad filter: "+err.Error(), http.StatusBadRequest)
		return
	}

	j, err := s.rt.Journal(instID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	entries, err := j.Read(journal.ReadOptions{From: from, Limit: limit})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	out := make([]recordView, 0, len(entries))
	for _, ent := range entries {
		if !filter.Eval(ent) {
			continue
		}
		out = append(out, recordView{
			Ordinal:     ent.Ordinal,
			Operation:   ent.Header.Operation,
			InputDigest: ent.Header.InputDigest,
			CapturedAt:  ent.Header.CapturedAtMs,
			Outcome:     json.RawMessage(ent.Payload),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"records": out})
}

type createReq struct {
	Instance string `json:"instance"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Instance == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	meta, err := s.rt.EnsureInstance(req.Instance)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(meta)
}

type purgeReq struct {
	Instance string `json:"instance"`
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req purgeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Instance == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	n, err := s.rt.PurgeInstance(r.Context(), req.Instance)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"purged": n})
}
