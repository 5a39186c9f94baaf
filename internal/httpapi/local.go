package httpapi

import (
	"fmt"
	"net/http"

	"github.com/easynet-world/easy-mcp-server/internal/handler"
	"github.com/easynet-world/easy-mcp-server/internal/mcptools"
)

// invokeLocalRoute synthesizes a handler.Request from the /mcp/execute
// request body's {body, query, headers, path} fields and invokes the
// owning route's handler directly, per spec.md §4.10's "synthesize a
// minimal request/response pair, invoke the handler" rule.
func invokeLocalRoute(r *http.Request, entry mcptools.Entry, in executeRequest) (*handler.Response, error) {
	hreq := &handler.Request{
		Method:  string(entry.Route.Method),
		Path:    toStringMap(in.Path),
		Query:   toStringMap(in.Query),
		Headers: toStringMap(in.Headers),
		Body:    in.Body,
	}
	if hreq.Body == nil {
		hreq.Body = map[string]interface{}{}
	}
	return entry.Route.Handler.Instance.Process(r.Context(), hreq)
}

func toStringMap(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}
