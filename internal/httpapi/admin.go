package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

type retryRequest struct {
	API string `json:"api"`
}

// handleRetryInitialization re-attempts discovery for the handler file(s)
// backing a named route, per spec.md §6 ("re-attempt lifecycle for a
// named handler instance that supports retry"). "api" is matched against
// a route's urlTemplate or file path; every matching file is re-queued
// through the discovery engine exactly as a hot-reload event would.
func (s *Server) handleRetryInitialization(w http.ResponseWriter, r *http.Request) {
	var in retryRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.API == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": true, "message": "missing \"api\""})
		return
	}

	var paths []string
	for _, rt := range s.Reg.Current().Valid() {
		if rt.URLTemplate == in.API || rt.FilePath == in.API {
			paths = append(paths, rt.FilePath)
		}
	}
	for _, le := range s.Reg.Current().Errors() {
		if le.FilePath == in.API {
			paths = append(paths, le.FilePath)
		}
	}

	if len(paths) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": true, "message": "no handler matches " + in.API})
		return
	}

	if s.Engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": true, "message": "retry is not configured"})
		return
	}
	if err := s.Engine.ReloadPaths(paths); err != nil {
		logging.Warn("HTTPServer", "retry-initialization for %s failed: %v", in.API, err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": true, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "paths": paths})
}
