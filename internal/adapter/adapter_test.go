package adapter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdaptKnownToolRenamesArguments(t *testing.T) {
	a := New()
	out := a.Adapt("click", map[string]interface{}{"element_id": "e1", "doubleClick": true})
	require.Equal(t, map[string]interface{}{"uid": "e1", "dblClick": true}, out)
}

func TestAdaptUnknownToolPassesThrough(t *testing.T) {
	a := New()
	in := map[string]interface{}{"foo": "bar"}
	out := a.Adapt("some_local_tool", in)
	require.Equal(t, in, out)
}

func TestRegisterOverridesRewrite(t *testing.T) {
	a := New()
	a.Register("click", func(args map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"overridden": true}
	})
	out := a.Adapt("click", map[string]interface{}{"element_id": "e1"})
	require.Equal(t, map[string]interface{}{"overridden": true}, out)
}
