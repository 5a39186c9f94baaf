package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/easynet-world/easy-mcp-server/internal/bridge"
	"github.com/easynet-world/easy-mcp-server/internal/mux"
)

type bridgeListEntry struct {
	Name  string      `json:"name"`
	State string      `json:"state"`
	Tools interface{} `json:"tools,omitempty"`
	Error string      `json:"error,omitempty"`
}

// handleBridgeListTools reports every tracked bridge's state and, for
// ready bridges, its last-known tool list; failed/unready bridges report
// their BridgeStatus error instead, per spec.md §6.
func (s *Server) handleBridgeListTools(w http.ResponseWriter, r *http.Request) {
	snap := s.Sv.Snapshot()
	out := make([]bridgeListEntry, 0, len(snap.All()))
	for _, b := range snap.All() {
		entry := bridgeListEntry{Name: b.Name, State: string(b.State)}
		if b.State == bridge.StateReady {
			entry.Tools = b.ToolList
		}
		if errMsg, ok := s.Mux.BridgeStatus(b.Name); ok {
			entry.Error = errMsg
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bridges": out})
}

// handleBridgeStatus reports a single bridge's detail by name, complementing
// handleBridgeListTools with a focused view (state, identifier, last error,
// tool count) for a dashboard or CLI polling one bridge at a time.
func (s *Server) handleBridgeStatus(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/bridge/status/")
	b, ok := s.Sv.Snapshot().ByName(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": true, "message": "unknown bridge " + name})
		return
	}

	out := map[string]interface{}{
		"name":       b.Name,
		"identifier": b.Identifier,
		"state":      string(b.State),
		"transport":  string(b.Transport),
		"toolCount":  len(b.ToolList),
	}
	if b.LastError != nil {
		out["lastError"] = b.LastError.Message
	}
	writeJSON(w, http.StatusOK, out)
}

type callToolRequest struct {
	Bridge    string                 `json:"bridge"`
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
}

// handleBridgeCallTool routes a targeted call to a named bridge's tool,
// running the schema adapter (C9) on the arguments first, per spec.md §6.
func (s *Server) handleBridgeCallTool(w http.ResponseWriter, r *http.Request) {
	var in callToolRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": true, "message": err.Error()})
		return
	}

	client, ok := s.Sv.ClientFor(in.Bridge)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": true, "message": "bridge not ready: " + in.Bridge})
		return
	}

	adapted := s.Ad.Adapt(in.Tool, in.Arguments)
	ctx, cancel := context.WithTimeout(r.Context(), mux.BridgeCallToolTimeout)
	defer cancel()

	start := time.Now()
	result, err := client.CallTool(ctx, in.Tool, adapted)
	if s.Metrics != nil {
		s.Metrics.BridgeRPCDuration.WithLabelValues(in.Bridge, "tools/call").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": true, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"content": result.Content, "isError": result.IsError})
}
