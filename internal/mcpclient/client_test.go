package mcpclient

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdioClientNotConnectedByDefault(t *testing.T) {
	c := NewStdioClient("echo", []string{"hi"}, nil, "/tmp")
	assert.Empty(t, c.Stderr())
	_, ok := c.ExitCode()
	assert.False(t, ok, "a client that was never started has no exit code")

	_, err := c.ListTools(context.Background())
	require.Error(t, err, "calls before Initialize must fail, not panic on a nil inner client")
}

func TestNewHTTPClientNotConnectedByDefault(t *testing.T) {
	c := NewHTTPClient("https://bridge.example/mcp", map[string]string{"Authorization": "Bearer x"})
	_, err := c.ListTools(context.Background())
	require.Error(t, err)

	err = c.Close()
	require.NoError(t, err, "closing a client that never connected is a no-op, not an error")
}

func TestWithDeadlinePreservesExistingDeadline(t *testing.T) {
	b := &base{}

	deadline := time.Now().Add(2 * time.Second)
	parent, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	ctx, cancel2 := b.withDeadline(parent)
	defer cancel2()

	got, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Equal(t, deadline, got, "a caller-supplied deadline must not be overridden")
}

func TestWithDeadlineAppliesDefaultWhenAbsent(t *testing.T) {
	b := &base{}

	ctx, cancel := b.withDeadline(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "a context with no deadline must get DefaultRequestTimeout applied")
	assert.WithinDuration(t, time.Now().Add(DefaultRequestTimeout), deadline, time.Second)
}

func TestMergedEnvironAppendsWithoutRemovingParentEnv(t *testing.T) {
	env := mergedEnviron(map[string]string{"EASY_MCP_SERVER_TEST": "1"})

	assert.Contains(t, env, "EASY_MCP_SERVER_TEST=1")
	assert.Equal(t, len(os.Environ())+1, len(env))
}

func TestStderrRingBufferTruncatesToLimit(t *testing.T) {
	r := newStderrRingBuffer()
	big := strings.Repeat("x", stderrRingBufferLimit+100)

	r.drain(strings.NewReader(big))

	assert.LessOrEqual(t, len(r.String()), stderrRingBufferLimit)
	assert.True(t, strings.HasSuffix(big, r.String()), "the ring buffer keeps the tail of the stream, not the head")
}

func TestStderrRingBufferEmptyByDefault(t *testing.T) {
	c := &StdioClient{}
	assert.Empty(t, c.Stderr(), "Stderr must be safe to call before the child process ever starts")
}
