package bridge

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

// fakeClient is a no-op Client used so supervisor tests never spawn a real
// process or dial a real HTTP endpoint, mirroring the fakeLoader pattern in
// internal/discovery/engine_test.go.
type fakeClient struct {
	initErr error
	tools   []mcp.Tool
	closed  bool
}

func (f *fakeClient) Initialize(ctx context.Context) error { return f.initErr }
func (f *fakeClient) Close() error                         { f.closed = true; return nil }
func (f *fakeClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return f.tools, nil
}
func (f *fakeClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{}, nil
}
func (f *fakeClient) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) { return nil, nil }
func (f *fakeClient) GetPrompt(ctx context.Context, name string, args map[string]interface{}) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{}, nil
}
func (f *fakeClient) ListResources(ctx context.Context) ([]mcp.Resource, error) { return nil, nil }
func (f *fakeClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{}, nil
}

func fakeFactory(byName map[string]*fakeClient) ClientFactory {
	return func(entry Entry, resolvedCwd string) Client {
		return byName[entry.Name]
	}
}

func TestSupervisorEnsureDedupesSameIdentifier(t *testing.T) {
	sv := NewSupervisor()
	clientA := &fakeClient{tools: []mcp.Tool{{Name: "t1"}}}
	sv.Factory = fakeFactory(map[string]*fakeClient{"a": clientA, "b": clientA})

	entryA := Entry{Name: "a", HTTP: &HTTPEntry{URL: "https://same.example/mcp"}}
	entryB := Entry{Name: "b", HTTP: &HTTPEntry{URL: "https://same.example/mcp"}}

	_, err := sv.Ensure(context.Background(), entryA)
	require.NoError(t, err)
	_, err = sv.Ensure(context.Background(), entryB)
	require.NoError(t, err)

	snap := sv.Snapshot()
	require.Len(t, snap.All(), 1, "expected exactly one live bridge for identical identifiers")

	_, ok := snap.ByName("a")
	require.True(t, ok)
	_, ok = snap.ByName("b")
	require.True(t, ok)
}

func TestSupervisorEnsureDistinctByURL(t *testing.T) {
	sv := NewSupervisor()
	sv.Factory = fakeFactory(map[string]*fakeClient{
		"a": {tools: []mcp.Tool{{Name: "t1"}}},
		"b": {tools: []mcp.Tool{{Name: "t2"}}},
	})

	_, err := sv.Ensure(context.Background(), Entry{Name: "a", HTTP: &HTTPEntry{URL: "https://one.example/mcp"}})
	require.NoError(t, err)
	_, err = sv.Ensure(context.Background(), Entry{Name: "b", HTTP: &HTTPEntry{URL: "https://two.example/mcp"}})
	require.NoError(t, err)

	require.Len(t, sv.Snapshot().All(), 2)
}

func TestSupervisorFailureIsStickyUntilReload(t *testing.T) {
	sv := NewSupervisor()
	failing := &fakeClient{initErr: context.DeadlineExceeded}
	sv.Factory = fakeFactory(map[string]*fakeClient{"bad": failing})

	entry := Entry{Name: "bad", HTTP: &HTTPEntry{URL: "https://bad.example/mcp"}}

	_, err := sv.Ensure(context.Background(), entry)
	require.Error(t, err)

	_, err = sv.Ensure(context.Background(), entry)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sticky-failed")

	m := &Manifest{Entries: map[string]Entry{"bad": entry}}
	failing.initErr = nil
	sv.ReloadManifest(context.Background(), m)

	snap := sv.Snapshot()
	b, ok := snap.ByName("bad")
	require.True(t, ok)
	require.Equal(t, StateReady, b.State)
}

func TestSupervisorCircularReferenceRefused(t *testing.T) {
	sv := NewSupervisor()
	sv.chain = []string{"http:https://self.example/mcp"}

	_, err := sv.Ensure(context.Background(), Entry{Name: "self", HTTP: &HTTPEntry{URL: "https://self.example/mcp"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "circular")
}
