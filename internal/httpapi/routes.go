package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/handler"
)

type healthRoute struct {
	Method      string `json:"method"`
	URLTemplate string `json:"urlTemplate"`
	Status      string `json:"status"`
}

type healthResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds float64           `json:"uptimeSeconds"`
	Routes        []healthRoute     `json:"routes"`
	Errors        []api.LoaderError `json:"errors"`
}

// handleHealth reports overall status healthy|partial|unhealthy per
// spec.md §6, derived from whether the current snapshot has any routes
// and/or any recorded loader errors.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.Reg.Current()
	routes := snap.Valid()
	errs := snap.Errors()

	status := "healthy"
	switch {
	case len(routes) == 0 && len(errs) > 0:
		status = "unhealthy"
	case len(errs) > 0:
		status = "partial"
	}

	out := healthResponse{
		Status:        status,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Errors:        errs,
	}
	for _, rt := range routes {
		out.Routes = append(out.Routes, healthRoute{Method: string(rt.Method), URLTemplate: rt.URLTemplate, Status: "healthy"})
	}
	writeJSON(w, http.StatusOK, out)
}

type routeInfo struct {
	Method      string   `json:"method"`
	URLTemplate string   `json:"urlTemplate"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	FilePath    string   `json:"filePath"`
}

// handleAPIInfo returns the route table.
func (s *Server) handleAPIInfo(w http.ResponseWriter, r *http.Request) {
	routes := s.Reg.Current().Valid()
	out := make([]routeInfo, 0, len(routes))
	for _, rt := range routes {
		out = append(out, routeInfo{
			Method:      string(rt.Method),
			URLTemplate: rt.URLTemplate,
			Summary:     rt.Schema.Summary,
			Description: rt.Schema.Description,
			Tags:        rt.Schema.Tags,
			FilePath:    rt.FilePath,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"routes": out})
}

// handleOpenAPI serves the synthesized document (C5).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.synthesizeOpenAPI())
}

const docsHTML = `<!DOCTYPE html>
<html>
<head><title>API Docs</title></head>
<body>
<div id="swagger-ui"></div>
<script>window.openapiUrl = "/openapi.json";</script>
</body>
</html>`

// handleDocs serves a minimal HTML shell referencing /openapi.json, per
// spec.md §6 ("out of core scope" beyond this shell).
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsHTML))
}

// handleDynamicRoute matches r against the current registry snapshot's
// URL templates and, on a match, synthesizes a handler.Request and
// invokes the route's handler, per spec.md §2's HTTP adapter role.
func (s *Server) handleDynamicRoute(w http.ResponseWriter, r *http.Request) {
	reqSegs := splitPath(r.URL.Path)

	for _, rt := range s.Reg.Current().Valid() {
		if string(rt.Method) != r.Method {
			continue
		}
		params, ok := matchTemplate(rt.URLTemplate, reqSegs)
		if !ok {
			continue
		}

		hreq := &handler.Request{
			Method:  r.Method,
			Path:    params,
			Query:   flattenQuery(r.URL.Query()),
			Headers: flattenHeaders(r.Header),
			Body:    readJSONBody(r),
		}

		resp, err := rt.Handler.Instance.Process(r.Context(), hreq)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": true, "message": err.Error()})
			return
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, status, resp.Body)
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": true, "message": "no route matches " + r.Method + " " + r.URL.Path})
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// matchTemplate compares a route's {name}-templated segments against the
// request's literal segments, returning the extracted path parameters on
// a match.
func matchTemplate(template string, reqSegs []string) (map[string]string, bool) {
	tplSegs := splitPath(template)
	if len(tplSegs) != len(reqSegs) {
		return nil, false
	}
	params := make(map[string]string, len(tplSegs))
	for i, seg := range tplSegs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			params[seg[1:len(seg)-1]] = reqSegs[i]
			continue
		}
		if seg != reqSegs[i] {
			return nil, false
		}
	}
	return params, true
}

func flattenQuery(q map[string][]string) map[string]string {
	out := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func readJSONBody(r *http.Request) map[string]interface{} {
	if r.Body == nil || r.ContentLength == 0 {
		return map[string]interface{}{}
	}
	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		return map[string]interface{}{}
	}
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return map[string]interface{}{}
	}
	return body
}
