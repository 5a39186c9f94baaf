package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/easynet-world/easy-mcp-server/internal/mcptools"
)

// handleMCPTools returns the local tool descriptors, the same projection
// C6 produces for the MCP transport, per spec.md §6.
func (s *Server) handleMCPTools(w http.ResponseWriter, r *http.Request) {
	tools := mcptools.Synthesize(s.Reg.Current())
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools})
}

type executeRequest struct {
	Body    map[string]interface{} `json:"body"`
	Query   map[string]interface{} `json:"query"`
	Headers map[string]interface{} `json:"headers"`
	Path    map[string]interface{} `json:"path"`
}

type executeResponse struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// handleMCPExecute implements POST /mcp/execute/{toolName}, per spec.md
// §6: a synthesized local invocation (or, for a bridge-owned tool name,
// a routed tools/call through the multiplexer), returning
// {success, statusCode, data}.
func (s *Server) handleMCPExecute(w http.ResponseWriter, r *http.Request) {
	toolName := strings.TrimPrefix(r.URL.Path, "/mcp/execute/")
	if toolName == "" {
		writeJSON(w, http.StatusBadRequest, executeResponse{Success: false, StatusCode: http.StatusBadRequest, Error: "missing tool name"})
		return
	}

	var in executeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, executeResponse{Success: false, StatusCode: http.StatusBadRequest, Error: err.Error()})
			return
		}
	}

	for _, entry := range mcptools.SynthesizeEntries(s.Reg.Current()) {
		if entry.Tool.Name != toolName {
			continue
		}
		resp, err := invokeLocalRoute(r, entry, in)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, executeResponse{Success: false, StatusCode: http.StatusInternalServerError, Error: err.Error()})
			return
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, http.StatusOK, executeResponse{Success: status < 400, StatusCode: status, Data: resp.Body})
		return
	}

	args := map[string]interface{}{}
	for k, v := range in.Path {
		args[k] = v
	}
	for k, v := range in.Query {
		args[k] = v
	}
	for k, v := range in.Body {
		args[k] = v
	}

	result, err := s.Mux.Execute(r.Context(), toolName, args)
	if err != nil {
		writeJSON(w, http.StatusNotFound, executeResponse{Success: false, StatusCode: http.StatusNotFound, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, executeResponse{Success: !result.IsError, StatusCode: http.StatusOK, Data: contentText(result)})
}

func contentText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(mcp.TextContent); ok {
		return tc.Text
	}
	return ""
}
