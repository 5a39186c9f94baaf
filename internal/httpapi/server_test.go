package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/easynet-world/easy-mcp-server/internal/adapter"
	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/bridge"
	"github.com/easynet-world/easy-mcp-server/internal/handler"
	"github.com/easynet-world/easy-mcp-server/internal/mcpcache"
	"github.com/easynet-world/easy-mcp-server/internal/metrics"
	"github.com/easynet-world/easy-mcp-server/internal/mux"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
)

func echoHandler() handler.Handler {
	return handler.HandlerFunc(func(ctx context.Context, req *handler.Request) (*handler.Response, error) {
		return &handler.Response{StatusCode: 200, Body: map[string]interface{}{"path": req.Path, "query": req.Query}}, nil
	})
}

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	reg.ReplaceAll([]api.Route{
		{
			Method:      api.MethodGet,
			URLTemplate: "/widgets/{id}",
			FilePath:    "widgets/[id]/get.so",
			Handler:     api.HandlerRef{Instance: echoHandler()},
			Schema: api.SchemaBundle{
				Summary: "Get a widget",
				Path: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"id": map[string]interface{}{"type": "string"}},
					"required":   []string{"id"},
				},
			},
		},
	}, nil)

	sv := bridge.NewSupervisor()
	m := mux.New("test", "1.0.0", reg, sv, adapter.New(), mcpcache.New(t.TempDir()))
	m.Refresh(context.Background())

	srv := New("test", "1.0.0", "http://localhost:8080", reg, sv, m, nil, adapter.New(), metrics.New(), nil)
	return srv, reg
}

func TestHealthReportsHealthyWithNoErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
}

func TestAPIInfoListsRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api-info", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "/widgets/{id}")
}

func TestOpenAPIDocumentIncludesPath(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "/widgets/{id}")
}

func TestDynamicRouteDispatchesToHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/widgets/42", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "42")
}

func TestDynamicRouteUnknownPathReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMCPExecuteLocalToolReturnsData(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(executeRequest{Path: map[string]interface{}{"id": "7"}})
	req := httptest.NewRequest(http.MethodPost, "/mcp/execute/api_widgets_{id}_get", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var out executeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.True(t, out.Success)
}

func TestMCPExecuteUnknownToolReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/mcp/execute/does_not_exist", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBridgeListToolsReportsTrackedBridges(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Sv.Factory = func(entry bridge.Entry, resolvedCwd string) bridge.Client { return nil }

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bridge/list-tools", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	srv, _ := newTestServer(t)
	// A fresh registry has no series until a request has been counted.
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "easy_mcp_server")
}
