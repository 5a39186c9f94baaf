package mux

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/easynet-world/easy-mcp-server/internal/adapter"
	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/bridge"
	"github.com/easynet-world/easy-mcp-server/internal/handler"
	"github.com/easynet-world/easy-mcp-server/internal/mcpcache"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
)

func testCache(t *testing.T) *mcpcache.Manager {
	t.Helper()
	return mcpcache.New(t.TempDir())
}

type fakeBridgeClient struct {
	tools []mcp.Tool
}

func (f *fakeBridgeClient) Initialize(ctx context.Context) error { return nil }
func (f *fakeBridgeClient) Close() error                         { return nil }
func (f *fakeBridgeClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return f.tools, nil
}
func (f *fakeBridgeClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	payload, _ := json.Marshal(args)
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(payload))}}, nil
}
func (f *fakeBridgeClient) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) { return nil, nil }
func (f *fakeBridgeClient) GetPrompt(ctx context.Context, name string, args map[string]interface{}) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{}, nil
}
func (f *fakeBridgeClient) ListResources(ctx context.Context) ([]mcp.Resource, error) { return nil, nil }
func (f *fakeBridgeClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{}, nil
}

func echoHandler() handler.Handler {
	return handler.HandlerFunc(func(ctx context.Context, req *handler.Request) (*handler.Response, error) {
		return &handler.Response{StatusCode: 200, Body: map[string]interface{}{"path": req.Path, "body": req.Body}}, nil
	})
}

func TestRefreshExposesLocalAndBridgeTools(t *testing.T) {
	reg := registry.New()
	reg.ReplaceAll([]api.Route{
		{
			Method:      api.MethodGet,
			URLTemplate: "/widgets/{id}",
			FilePath:    "widgets/[id]/get.so",
			Handler:     api.HandlerRef{Instance: echoHandler()},
			Schema: api.SchemaBundle{
				Path: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"id": map[string]interface{}{"type": "string"}},
					"required":   []string{"id"},
				},
			},
		},
	}, nil)

	sv := bridge.NewSupervisor()
	sv.Factory = func(entry bridge.Entry, resolvedCwd string) bridge.Client {
		return &fakeBridgeClient{tools: []mcp.Tool{{Name: "click"}}}
	}
	_, err := sv.Ensure(context.Background(), bridge.Entry{Name: "browser", HTTP: &bridge.HTTPEntry{URL: "https://browser.example/mcp"}})
	require.NoError(t, err)

	m := New("test", "1.0.0", reg, sv, adapter.New(), testCache(t))
	m.Refresh(context.Background())

	names := m.ToolNames()
	require.Contains(t, names, "api_widgets_{id}_get")
	require.Contains(t, names, "browser_click")
}

func TestExecuteLocalToolInvokesHandler(t *testing.T) {
	reg := registry.New()
	reg.ReplaceAll([]api.Route{
		{
			Method:      api.MethodGet,
			URLTemplate: "/widgets/{id}",
			FilePath:    "widgets/[id]/get.so",
			Handler:     api.HandlerRef{Instance: echoHandler()},
			Schema: api.SchemaBundle{
				Path: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"id": map[string]interface{}{"type": "string"}},
					"required":   []string{"id"},
				},
			},
		},
	}, nil)

	sv := bridge.NewSupervisor()
	m := New("test", "1.0.0", reg, sv, adapter.New(), testCache(t))
	m.Refresh(context.Background())

	result, err := m.Execute(context.Background(), "api_widgets_{id}_get", map[string]interface{}{"id": "42"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
}

func TestExecuteBridgeToolRunsAdapter(t *testing.T) {
	reg := registry.New()
	sv := bridge.NewSupervisor()
	sv.Factory = func(entry bridge.Entry, resolvedCwd string) bridge.Client {
		return &fakeBridgeClient{tools: []mcp.Tool{{Name: "click"}}}
	}
	_, err := sv.Ensure(context.Background(), bridge.Entry{Name: "browser", HTTP: &bridge.HTTPEntry{URL: "https://browser.example/mcp"}})
	require.NoError(t, err)

	m := New("test", "1.0.0", reg, sv, adapter.New(), testCache(t))
	m.Refresh(context.Background())

	result, err := m.Execute(context.Background(), "browser_click", map[string]interface{}{"element_id": "e1", "doubleClick": true})
	require.NoError(t, err)
	require.Contains(t, result.Content[0].(mcp.TextContent).Text, "uid")
}

func TestExecuteUnknownToolErrors(t *testing.T) {
	reg := registry.New()
	sv := bridge.NewSupervisor()
	m := New("test", "1.0.0", reg, sv, adapter.New(), testCache(t))
	_, err := m.Execute(context.Background(), "does_not_exist", nil)
	require.Error(t, err)
}

func writeCacheFile(t *testing.T, baseDir, rel, content string) {
	t.Helper()
	path := filepath.Join(baseDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRefreshRegistersPromptsFromCache(t *testing.T) {
	base := t.TempDir()
	writeCacheFile(t, base, "prompts/greet.md", "Hello {{name}}")

	reg := registry.New()
	sv := bridge.NewSupervisor()
	m := New("test", "1.0.0", reg, sv, adapter.New(), mcpcache.New(base))
	m.Refresh(context.Background())

	m.mu.RLock()
	_, ok := m.promptNames["greet"]
	m.mu.RUnlock()
	require.True(t, ok, "a cached prompt file must be registered by its base name")
}

func TestPromptHandlerRendersTemplateFromArguments(t *testing.T) {
	base := t.TempDir()
	writeCacheFile(t, base, "prompts/greet.md", "Hello {{name}}")

	reg := registry.New()
	sv := bridge.NewSupervisor()
	m := New("test", "1.0.0", reg, sv, adapter.New(), mcpcache.New(base))
	m.Refresh(context.Background())

	handler := m.promptHandler("greet.md")
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"name": "Ada"}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	text, ok := result.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, "Hello Ada", text.Text)
}

func TestPromptHandlerLeavesUnmatchedPlaceholderUntouched(t *testing.T) {
	base := t.TempDir()
	writeCacheFile(t, base, "prompts/greet.md", "Hello {{name}}, from {{place}}")

	m := New("test", "1.0.0", registry.New(), bridge.NewSupervisor(), adapter.New(), mcpcache.New(base))
	m.Refresh(context.Background())

	handler := m.promptHandler("greet.md")
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"name": "Ada"}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	text := result.Messages[0].Content.(mcp.TextContent)
	require.Equal(t, "Hello Ada, from {{place}}", text.Text)
}

func TestPromptHandlerUnknownRelativePathErrors(t *testing.T) {
	m := New("test", "1.0.0", registry.New(), bridge.NewSupervisor(), adapter.New(), testCache(t))
	handler := m.promptHandler("missing.md")
	_, err := handler(context.Background(), mcp.GetPromptRequest{})
	require.Error(t, err)
}

func TestRefreshRegistersResourcesFromCache(t *testing.T) {
	base := t.TempDir()
	writeCacheFile(t, base, "resources/data.json", `{"a":1}`)

	m := New("test", "1.0.0", registry.New(), bridge.NewSupervisor(), adapter.New(), mcpcache.New(base))
	m.Refresh(context.Background())

	m.mu.RLock()
	_, ok := m.resourceURIs["resource://data.json"]
	m.mu.RUnlock()
	require.True(t, ok)
}

func TestResourceHandlerReturnsCachedContent(t *testing.T) {
	base := t.TempDir()
	writeCacheFile(t, base, "resources/data.json", `{"a":1}`)

	m := New("test", "1.0.0", registry.New(), bridge.NewSupervisor(), adapter.New(), mcpcache.New(base))
	m.Refresh(context.Background())

	handler := m.resourceHandler("data.json", "resource://data.json")
	contents, err := handler(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	require.Equal(t, `{"a":1}`, text.Text)
	require.Equal(t, "application/json", text.MIMEType)
}

func TestRefreshRemovesStalePromptsAndResources(t *testing.T) {
	base := t.TempDir()
	writeCacheFile(t, base, "prompts/greet.md", "Hi")
	writeCacheFile(t, base, "resources/data.json", `{}`)

	m := New("test", "1.0.0", registry.New(), bridge.NewSupervisor(), adapter.New(), mcpcache.New(base))
	m.Refresh(context.Background())

	require.NoError(t, os.Remove(filepath.Join(base, "prompts/greet.md")))
	require.NoError(t, os.Remove(filepath.Join(base, "resources/data.json")))
	m.Refresh(context.Background())

	m.mu.RLock()
	_, promptStillThere := m.promptNames["greet"]
	_, resourceStillThere := m.resourceURIs["resource://data.json"]
	m.mu.RUnlock()
	require.False(t, promptStillThere)
	require.False(t, resourceStillThere)
}
