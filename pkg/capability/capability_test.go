package capability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezlab/oplog/pkg/capability"
	"github.com/rezlab/oplog/pkg/fault"
)

type stubProvider struct {
	closed bool
}

func (p *stubProvider) Info() capability.Info {
	return capability.Info{
		ID:           "stub",
		Vendor:       "example.test",
		Capabilities: []capability.Kind{capability.ChatCompletion, capability.WebSearch},
	}
}

func (p *stubProvider) Close(context.Context) error {
	p.closed = true
	return nil
}

func TestSupports(t *testing.T) {
	var p capability.Provider = &stubProvider{}
	info := p.Info()

	assert.True(t, info.Supports(capability.ChatCompletion))
	assert.True(t, info.Supports(capability.WebSearch))
	assert.False(t, info.Supports(capability.Synthesis))
	assert.False(t, info.Supports(capability.Kind("nonsense")))
}

func TestUnsupportedKindFault(t *testing.T) {
	// The conventional rejection for a kind outside Info().Capabilities.
	p := &stubProvider{}
	kind := capability.Synthesis
	require.False(t, p.Info().Supports(kind))

	f := fault.New(fault.UnsupportedOperation, "%s does not implement %s", p.Info().ID, kind)
	assert.Equal(t, fault.UnsupportedOperation, f.Kind)
	assert.False(t, f.Retryable())
}

func TestClose(t *testing.T) {
	p := &stubProvider{}
	require.NoError(t, p.Close(context.Background()))
	assert.True(t, p.closed)
}
