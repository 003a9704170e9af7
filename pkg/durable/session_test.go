package durable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezlab/oplog/pkg/fault"
)

func TestOpenSessionAssignsArenaIDs(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	h0, flt := OpenSession(context.Background(), w, "search.open", "query-a",
		func(ctx context.Context) (string, *fault.Fault) { return "remote-a", nil })
	require.Nil(t, flt)
	h1, flt := OpenSession(context.Background(), w, "search.open", "query-b",
		func(ctx context.Context) (string, *fault.Fault) { return "remote-b", nil })
	require.Nil(t, flt)

	assert.Equal(t, uint32(0), h0.LocalID())
	assert.Equal(t, uint32(1), h1.LocalID())
	assert.Equal(t, "remote-a", h0.RemoteRef())
	assert.Equal(t, "remote-b", h1.RemoteRef())
	assert.Equal(t, SessionCreated, h0.State())
}

func TestSessionReplayReconnectsRemoteRef(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	h, flt := OpenSession(context.Background(), w, "search.open", "query",
		func(ctx context.Context) (string, *fault.Fault) { return "remote-original", nil })
	require.Nil(t, flt)
	require.Equal(t, "remote-original", h.RemoteRef())

	host.restart()
	w2 := NewWrapper(host, "wf-1")
	h2, flt := OpenSession(context.Background(), w2, "search.open", "query",
		func(ctx context.Context) (string, *fault.Fault) {
			t.Fatal("creation must not re-run during replay")
			return "", nil
		})
	require.Nil(t, flt)

	// Same deterministic local id, same remote resource.
	assert.Equal(t, h.LocalID(), h2.LocalID())
	assert.Equal(t, "remote-original", h2.RemoteRef())
}

func TestSessionCallClosesOverRemote(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	h, flt := OpenSession(context.Background(), w, "tts.open", "voice-1",
		func(ctx context.Context) (string, *fault.Fault) { return "stream-9", nil })
	require.Nil(t, flt)

	var seenRemote string
	out := SessionCall(context.Background(), w, h, "tts.send", "hello",
		func(ctx context.Context, remote string) (int, *fault.Fault) {
			seenRemote = remote
			return 42, nil
		})

	require.NoError(t, out.Err())
	assert.Equal(t, "stream-9", seenRemote)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, SessionActive, h.State())
}

func TestOpenSessionFaultReturnsNoHandle(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	h, flt := OpenSession(context.Background(), w, "search.open", "query",
		func(ctx context.Context) (string, *fault.Fault) {
			return "", fault.New(fault.AuthenticationFailed, "bad key")
		})
	require.NotNil(t, flt)
	assert.Nil(t, h)
	assert.Equal(t, fault.AuthenticationFailed, flt.Kind)
	// The failed creation still consumed an ordinal.
	assert.Equal(t, uint64(1), host.CurrentOrdinal("wf-1"))
}

func TestUnknownHandlePoisons(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	bogus := &SessionHandle{localID: 7}
	out := SessionCall(context.Background(), w, bogus, "tts.send", "x",
		func(ctx context.Context, remote string) (string, *fault.Fault) {
			t.Fatal("must not execute against an unknown handle")
			return "", nil
		})

	require.Error(t, out.Err())
	assert.Equal(t, fault.ConsistencyViolation, out.Fault.Kind)

	// Never a silent no-op: the whole wrapper is now failed.
	next := Wrap(context.Background(), w, "chat.send", "x",
		func(ctx context.Context) (string, *fault.Fault) { return "hi", nil })
	require.Error(t, next.Err())
	assert.Equal(t, fault.ConsistencyViolation, next.Fault.Kind)
}

func TestNilHandlePoisons(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	out := SessionCall(context.Background(), w, nil, "tts.send", "x",
		func(ctx context.Context, remote string) (string, *fault.Fault) { return "", nil })
	require.Error(t, out.Err())
	assert.Equal(t, fault.ConsistencyViolation, out.Fault.Kind)
}

func TestClosedSessionRejectedWithoutOrdinal(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	h, flt := OpenSession(context.Background(), w, "search.open", "q",
		func(ctx context.Context) (string, *fault.Fault) { return "remote", nil })
	require.Nil(t, flt)

	closed := CloseSession(context.Background(), w, h,
		func(ctx context.Context, remote string) *fault.Fault { return nil })
	require.NoError(t, closed.Err())
	assert.Equal(t, SessionClosed, h.State())

	before := host.CurrentOrdinal("wf-1")
	out := SessionCall(context.Background(), w, h, "search.next", "x",
		func(ctx context.Context, remote string) (string, *fault.Fault) {
			t.Fatal("closed session must not execute")
			return "", nil
		})
	require.Error(t, out.Err())
	assert.Equal(t, fault.ResourceClosed, out.Fault.Kind)
	assert.Equal(t, before, host.CurrentOrdinal("wf-1"), "terminal rejection must not consume an ordinal")

	// Double close is rejected the same way.
	again := CloseSession(context.Background(), w, h, nil)
	require.Error(t, again.Err())
	assert.Equal(t, fault.ResourceClosed, again.Fault.Kind)
}

func TestCloseSessionNilFuncRecordsLocalClose(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	h, flt := OpenSession(context.Background(), w, "search.open", "q",
		func(ctx context.Context) (string, *fault.Fault) { return "remote", nil })
	require.Nil(t, flt)

	out := CloseSession(context.Background(), w, h, nil)
	require.NoError(t, out.Err())
	assert.Equal(t, SessionClosed, h.State())
	// The close itself is journaled.
	assert.Equal(t, "session.close", host.records["wf-1"][1].Operation)
}

func TestSessionCallsReplayDeterministically(t *testing.T) {
	host := newFakeHost()
	w := NewWrapper(host, "wf-1")

	h, flt := OpenSession(context.Background(), w, "tts.open", "v",
		func(ctx context.Context) (string, *fault.Fault) { return "remote", nil })
	require.Nil(t, flt)
	live := SessionCall(context.Background(), w, h, "tts.send", "chunk-1",
		func(ctx context.Context, remote string) (string, *fault.Fault) { return "audio-1", nil })
	require.NoError(t, live.Err())

	host.restart()
	w2 := NewWrapper(host, "wf-1")
	h2, flt := OpenSession(context.Background(), w2, "tts.open", "v",
		func(ctx context.Context) (string, *fault.Fault) {
			t.Fatal("must not re-open")
			return "", nil
		})
	require.Nil(t, flt)

	replayed := SessionCall(context.Background(), w2, h2, "tts.send", "chunk-1",
		func(ctx context.Context, remote string) (string, *fault.Fault) {
			t.Fatal("must not re-send")
			return "", nil
		})
	require.NoError(t, replayed.Err())
	assert.Equal(t, "audio-1", replayed.Value)
}
