package mcptools

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

func TestSynthesizeToolNamesMatchConvention(t *testing.T) {
	r := registry.New()
	r.ReplaceAll([]api.Route{
		route(api.MethodGet, "/users", "users/get.so"),
		route(api.MethodGet, "/users/{id}", "users/[id]/get.so"),
	}, nil)

	tools := Synthesize(r.Current())
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	require.Contains(t, names, "api_users_get")
	require.Contains(t, names, "api_users_{id}_get")
}

func TestSynthesizeNameCollisionGetsDigitSuffix(t *testing.T) {
	used := map[string]bool{}
	first := uniqueName("api_users_get", used)
	second := uniqueName("api_users_get", used)
	require.Equal(t, "api_users_get", first)
	require.Equal(t, "api_users_get_2", second)
}

func TestBuildInputSchemaMergesPathAndFlattensBody(t *testing.T) {
	rt := route(api.MethodPost, "/users/{id}", "users/[id]/post.so")
	rt.Schema.Path = map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"id": map[string]interface{}{"type": "string"}},
		"required":   []string{"id"},
	}
	rt.Schema.Body = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"profile": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "string"},
				},
			},
			"tags": map[string]interface{}{"type": "array"},
		},
		"required": []string{"tags"},
	}

	schema := buildInputSchema(rt)
	require.Equal(t, "object", schema.Type)
	require.Contains(t, schema.Properties, "id")
	require.Contains(t, schema.Properties, "profile.name")
	require.Contains(t, schema.Properties, "tags")

	tagsSchema := schema.Properties["tags"].(map[string]interface{})
	require.Contains(t, tagsSchema, "items")

	require.Contains(t, schema.Required, "id")
	require.Contains(t, schema.Required, "tags")
}

func TestSynthesizeUsesGeneratedDescriptionWhenDefault(t *testing.T) {
	r := registry.New()
	r.ReplaceAll([]api.Route{route(api.MethodGet, "/widgets", "widgets/get.so")}, nil)

	tools := Synthesize(r.Current())
	require.Len(t, tools, 1)
	require.Equal(t, "Execute GET /widgets", tools[0].Description)
}
