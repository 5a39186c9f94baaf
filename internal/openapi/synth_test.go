package openapi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
)

func route(method api.Method, template, file string) api.Route {
	return api.Route{
		Method:      method,
		URLTemplate: template,
		FilePath:    file,
		Schema: api.SchemaBundle{
			Summary:     api.DefaultSummary,
			Description: api.DefaultDescription,
			Tags:        api.DefaultTags(),
		},
	}
}

func TestSynthesizeBasicDocumentShape(t *testing.T) {
	r := registry.New()
	r.ReplaceAll([]api.Route{
		route(api.MethodGet, "/users", "users/get.so"),
		route(api.MethodGet, "/users/{id}", "users/[id]/get.so"),
	}, nil)

	doc := Synthesize(r.Current(), "Test API", "1.0.0", "http://localhost:8080")

	require.Equal(t, "3.0.0", doc.OpenAPI)
	require.Equal(t, "Test API", doc.Info.Title)
	require.Len(t, doc.Servers, 1)
	require.Contains(t, doc.Paths, "/users")
	require.Contains(t, doc.Paths, "/users/{id}")
	require.Contains(t, doc.Components.Schemas, "Error")
	require.Contains(t, doc.Components.Schemas, "Success")

	withID := doc.Paths["/users/{id}"]["get"]
	require.Len(t, withID.Parameters, 1)
	require.Equal(t, "id", withID.Parameters[0].Name)
	require.Equal(t, "path", withID.Parameters[0].In)
	require.True(t, withID.Parameters[0].Required)
}

func TestSynthesizePathParamsAreRequiredAndTyped(t *testing.T) {
	rt := route(api.MethodGet, "/users/{id}", "users/[id]/get.so")
	rt.Schema.Path = map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"id": map[string]interface{}{"type": "string"}},
		"required":   []string{"id"},
	}

	r := registry.New()
	r.ReplaceAll([]api.Route{rt}, nil)
	doc := Synthesize(r.Current(), "t", "1.0.0", "http://x")

	op := doc.Paths["/users/{id}"]["get"]
	require.Len(t, op.Parameters, 1)
	require.True(t, op.Parameters[0].Required)
	require.Equal(t, "string", op.Parameters[0].Schema["type"])
}

func TestSynthesizeOperationIDsAreUnique(t *testing.T) {
	a := route(api.MethodGet, "/widgets", "widgets/get.so")
	b := route(api.MethodPost, "/widgets", "widgets/post.so")

	r := registry.New()
	r.ReplaceAll([]api.Route{a, b}, nil)
	doc := Synthesize(r.Current(), "t", "1.0.0", "http://x")

	getID := doc.Paths["/widgets"]["get"].OperationID
	postID := doc.Paths["/widgets"]["post"].OperationID
	require.NotEqual(t, getID, postID)
	require.NotEmpty(t, getID)
	require.NotEmpty(t, postID)
}

func TestSynthesizeBodyOnlyForMethodsThatAllowIt(t *testing.T) {
	get := route(api.MethodGet, "/items", "items/get.so")
	get.Schema.Body = map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}},
	}

	post := route(api.MethodPost, "/items", "items/post.so")
	post.Schema.Body = map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}},
		"required":   []string{"name"},
	}

	r := registry.New()
	r.ReplaceAll([]api.Route{get, post}, nil)
	doc := Synthesize(r.Current(), "t", "1.0.0", "http://x")

	require.Nil(t, doc.Paths["/items"]["get"].RequestBody)
	postBody := doc.Paths["/items"]["post"].RequestBody
	require.NotNil(t, postBody)
	require.True(t, postBody.Required)
}

func TestSynthesizeArraysAlwaysCarryItems(t *testing.T) {
	rt := route(api.MethodGet, "/tags", "tags/get.so")
	rt.Schema.Response = map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"tags": map[string]interface{}{"type": "array"}},
	}

	r := registry.New()
	r.ReplaceAll([]api.Route{rt}, nil)
	doc := Synthesize(r.Current(), "t", "1.0.0", "http://x")

	schema := doc.Paths["/tags"]["get"].Responses["200"].Content["application/json"].Schema
	props := schema["properties"].(map[string]interface{})
	tags := props["tags"].(map[string]interface{})
	require.Contains(t, tags, "items")
}

func TestSynthesizeErrorResponsesCopiedByStatus(t *testing.T) {
	rt := route(api.MethodGet, "/risky", "risky/get.so")
	rt.Schema.Errors = map[int]map[string]interface{}{
		404: {"type": "object", "properties": map[string]interface{}{"message": map[string]interface{}{"type": "string"}}},
	}

	r := registry.New()
	r.ReplaceAll([]api.Route{rt}, nil)
	doc := Synthesize(r.Current(), "t", "1.0.0", "http://x")

	responses := doc.Paths["/risky"]["get"].Responses
	require.Contains(t, responses, "404")
	require.Contains(t, responses, "default")
}
