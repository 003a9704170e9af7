package durable

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezlab/oplog/pkg/fault"
)

// fakeHost is an in-memory Host with restartable cursors.
type fakeHost struct {
	mu          sync.Mutex
	records     map[string][]Record
	cursors     map[string]uint64
	failPersist bool
	// liveOverride forces IsLive, simulating a host whose journal claims
	// more history than it can produce.
	liveOverride *bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		records: make(map[string][]Record),
		cursors: make(map[string]uint64),
	}
}

// restart simulates a process restart: cursors reset, journal survives.
func (h *fakeHost) restart() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursors = make(map[string]uint64)
}

func (h *fakeHost) IsLive(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.liveOverride != nil {
		return *h.liveOverride
	}
	return h.cursors[id] >= uint64(len(h.records[id]))
}

func (h *fakeHost) CurrentOrdinal(id string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursors[id]
}

func (h *fakeHost) Persist(id string, ordinal uint64, operation, inputDigest string, outcome []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failPersist {
		return assert.AnError
	}
	if ordinal != uint64(len(h.records[id])) {
		return assert.AnError
	}
	h.records[id] = append(h.records[id], Record{
		Ordinal:     ordinal,
		Operation:   operation,
		InputDigest: inputDigest,
		Outcome:     outcome,
	})
	if ordinal == h.cursors[id] {
		h.cursors[id] = ordinal + 1
	}
	return nil
}

func (h *fakeHost) GetRecord(id string, ordinal uint64) (Record, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	recs := h.records[id]
	if ordinal >= uint64(len(recs)) {
		return Record{}, false, nil
	}
	if ordinal == h.cursors[id] {
		h.cursors[id] = ordinal + 1
	}
	return recs[ordinal], true, nil
}

type chatReply struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

func TestLiveExecutesAndPersists(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	calls := 0
	out := Wrap(context.Background(), w, "chat.send", map[string]string{"prompt": "hello"},
		func(ctx context.Context) (chatReply, *fault.Fault) {
			calls++
			return chatReply{Model: "m-1", Text: "hi"}, nil
		})

	require.NoError(t, out.Err())
	assert.Equal(t, "hi", out.Value.Text)
	assert.Equal(t, 1, calls)
	require.Len(t, host.records["wf-1"], 1)
	assert.Equal(t, "chat.send", host.records["wf-1"][0].Operation)
	assert.Equal(t, uint64(1), host.CurrentOrdinal("wf-1"))
}

func TestReplayReturnsRecordedWithoutExecuting(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	first := Wrap(context.Background(), w, "chat.send", "hello",
		func(ctx context.Context) (chatReply, *fault.Fault) {
			return chatReply{Model: "m-1", Text: "hi"}, nil
		})
	require.NoError(t, first.Err())

	host.restart()
	w2 := NewWrapper(host, "wf-1")
	require.False(t, w2.Live())

	calls := 0
	replayed := Wrap(context.Background(), w2, "chat.send", "hello",
		func(ctx context.Context) (chatReply, *fault.Fault) {
			calls++
			return chatReply{Model: "m-2", Text: "DIFFERENT"}, nil
		})

	require.NoError(t, replayed.Err())
	assert.Equal(t, first.Value, replayed.Value)
	assert.Zero(t, calls, "live function must not run during replay")
	assert.True(t, w2.Live(), "cursor past history after replay")
}

func TestFaultOutcomeReplaysIdentically(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	live := Wrap(context.Background(), w, "chat.send", "hello",
		func(ctx context.Context) (chatReply, *fault.Fault) {
			f := fault.New(fault.RateLimited, "slow down")
			f.RetryAfterMs = 30_000
			return chatReply{}, f
		})
	require.Error(t, live.Err())

	host.restart()
	w2 := NewWrapper(host, "wf-1")
	calls := 0
	replayed := Wrap(context.Background(), w2, "chat.send", "hello",
		func(ctx context.Context) (chatReply, *fault.Fault) {
			calls++
			return chatReply{Text: "fresh"}, nil
		})

	require.Error(t, replayed.Err())
	assert.Zero(t, calls)
	assert.Equal(t, fault.RateLimited, replayed.Fault.Kind)
	assert.Equal(t, int64(30_000), replayed.Fault.RetryAfterMs)
	assert.True(t, replayed.Fault.Retryable())
}

func TestExactlyOneOrdinalPerCall(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	for i := 0; i < 3; i++ {
		out := Wrap(context.Background(), w, "chat.send", i,
			func(ctx context.Context) (int, *fault.Fault) {
				if i == 1 {
					return 0, fault.New(fault.TransientProvider, "flaky")
				}
				return i * 10, nil
			})
		if i == 1 {
			require.Error(t, out.Err())
		} else {
			require.NoError(t, out.Err())
		}
	}
	assert.Equal(t, uint64(3), host.CurrentOrdinal("wf-1"))
	assert.Len(t, host.records["wf-1"], 3)
}

func TestUnserializableInputConsumesNoOrdinal(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	out := Wrap(context.Background(), w, "chat.send", make(chan int),
		func(ctx context.Context) (string, *fault.Fault) {
			t.Fatal("live function must not run")
			return "", nil
		})

	require.Error(t, out.Err())
	assert.Equal(t, fault.InvalidRequest, out.Fault.Kind)
	assert.Zero(t, host.CurrentOrdinal("wf-1"))
	assert.Empty(t, host.records["wf-1"])

	// The wrapper is not poisoned: the next call proceeds normally.
	next := Wrap(context.Background(), w, "chat.send", "ok",
		func(ctx context.Context) (string, *fault.Fault) { return "fine", nil })
	require.NoError(t, next.Err())
}

func TestPersistFailurePoisons(t *testing.T) {
	host := newFakeHost()
	host.failPersist = true
	w := NewWrapper(host, "wf-1")

	out := Wrap(context.Background(), w, "chat.send", "hello",
		func(ctx context.Context) (string, *fault.Fault) { return "hi", nil })
	require.Error(t, out.Err())
	assert.Equal(t, fault.ConsistencyViolation, out.Fault.Kind)
	assert.True(t, out.Fault.Kind.Fatal())

	// Every subsequent call fails the same way without running.
	host.failPersist = false
	next := Wrap(context.Background(), w, "chat.send", "again",
		func(ctx context.Context) (string, *fault.Fault) {
			t.Fatal("poisoned wrapper must not execute")
			return "", nil
		})
	require.Error(t, next.Err())
	assert.Equal(t, fault.ConsistencyViolation, next.Fault.Kind)
}

func TestMissingRecordFatalInEveryMode(t *testing.T) {
	for _, mode := range []ReplayMode{ReplayStrict, ReplayBestEffort} {
		t.Run(mode.String(), func(t *testing.T) {
			host := newFakeHost()
			notLive := false
			host.liveOverride = &notLive

			w := NewWrapper(host, "wf-1", WithReplayMode(mode))
			out := Wrap(context.Background(), w, "chat.send", "hello",
				func(ctx context.Context) (string, *fault.Fault) {
					t.Fatal("must not re-execute when history is missing")
					return "", nil
				})
			require.Error(t, out.Err())
			assert.Equal(t, fault.ConsistencyViolation, out.Fault.Kind)
		})
	}
}

func TestStrictMismatchPoisons(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")
	out := Wrap(context.Background(), w, "chat.send", "hello",
		func(ctx context.Context) (string, *fault.Fault) { return "hi", nil })
	require.NoError(t, out.Err())

	host.restart()
	w2 := NewWrapper(host, "wf-1", WithReplayMode(ReplayStrict))
	mismatch := Wrap(context.Background(), w2, "search.query", "hello",
		func(ctx context.Context) (string, *fault.Fault) { return "results", nil })

	require.Error(t, mismatch.Err())
	assert.Equal(t, fault.ConsistencyViolation, mismatch.Fault.Kind)

	// Poisoned: even a matching call now fails.
	again := Wrap(context.Background(), w2, "chat.send", "hello",
		func(ctx context.Context) (string, *fault.Fault) { return "hi", nil })
	require.Error(t, again.Err())
}

func TestBestEffortMismatchReExecutes(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")
	out := Wrap(context.Background(), w, "chat.send", "hello",
		func(ctx context.Context) (string, *fault.Fault) { return "hi", nil })
	require.NoError(t, out.Err())

	host.restart()
	w2 := NewWrapper(host, "wf-1", WithReplayMode(ReplayBestEffort))
	calls := 0
	fresh := Wrap(context.Background(), w2, "search.query", "hello",
		func(ctx context.Context) (string, *fault.Fault) {
			calls++
			return "results", nil
		})

	require.NoError(t, fresh.Err())
	assert.Equal(t, "results", fresh.Value)
	assert.Equal(t, 1, calls)

	// The journal is never rewritten: the recorded operation is unchanged.
	require.Len(t, host.records["wf-1"], 1)
	assert.Equal(t, "chat.send", host.records["wf-1"][0].Operation)
}

func TestDigestDistinguishesInputs(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")
	_ = Wrap(context.Background(), w, "chat.send", "hello",
		func(ctx context.Context) (string, *fault.Fault) { return "hi", nil })

	host.restart()
	w2 := NewWrapper(host, "wf-1", WithReplayMode(ReplayStrict))
	// Same operation, different input: a strict mismatch.
	out := Wrap(context.Background(), w2, "chat.send", "goodbye",
		func(ctx context.Context) (string, *fault.Fault) { return "bye", nil })
	require.Error(t, out.Err())
	assert.Equal(t, fault.ConsistencyViolation, out.Fault.Kind)
}

func TestCrashResumeContinuesLive(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")
	for i := 0; i < 2; i++ {
		out := Wrap(context.Background(), w, "chat.send", i,
			func(ctx context.Context) (int, *fault.Fault) { return i + 100, nil })
		require.NoError(t, out.Err())
	}

	host.restart()
	w2 := NewWrapper(host, "wf-1")
	for i := 0; i < 2; i++ {
		out := Wrap(context.Background(), w2, "chat.send", i,
			func(ctx context.Context) (int, *fault.Fault) {
				t.Fatal("replay must not execute")
				return 0, nil
			})
		require.NoError(t, out.Err())
		assert.Equal(t, i+100, out.Value)
	}

	// Past the recorded history: back to live execution.
	require.True(t, w2.Live())
	out := Wrap(context.Background(), w2, "chat.send", 2,
		func(ctx context.Context) (int, *fault.Fault) { return 102, nil })
	require.NoError(t, out.Err())
	assert.Equal(t, 102, out.Value)
	assert.Len(t, host.records["wf-1"], 3)
}

func TestInstancesAreIndependent(t *testing.T) {
	host := newFakeHost()
	wa := NewWrapper(host, "wf-a")
	wb := NewWrapper(host, "wf-b")

	outA := Wrap(context.Background(), wa, "chat.send", "a",
		func(ctx context.Context) (string, *fault.Fault) { return "from-a", nil })
	outB := Wrap(context.Background(), wb, "chat.send", "b",
		func(ctx context.Context) (string, *fault.Fault) { return "from-b", nil })

	require.NoError(t, outA.Err())
	require.NoError(t, outB.Err())
	assert.Len(t, host.records["wf-a"], 1)
	assert.Len(t, host.records["wf-b"], 1)
}
