package bridge

import "testing"

func TestIdentifierStdioSameInputsCoalesce(t *testing.T) {
	a := Entry{Name: "a", Stdio: &StdioEntry{Command: "npx", Args: []string{"-y", "mcp-x@1"}}}
	b := Entry{Name: "b", Stdio: &StdioEntry{Command: "npx", Args: []string{"-y", "mcp-x@1"}}}

	if Identifier(a, "/proj") != Identifier(b, "/proj") {
		t.Errorf("expected identical identifiers for identical stdio entries")
	}
}

func TestIdentifierStdioDistinctByCwd(t *testing.T) {
	a := Entry{Name: "a", Stdio: &StdioEntry{Command: "npx", Args: []string{"-y", "mcp-x@1"}}}
	b := Entry{Name: "b", Stdio: &StdioEntry{Command: "npx", Args: []string{"-y", "mcp-x@1"}}}

	if Identifier(a, "/proj1") == Identifier(b, "/proj2") {
		t.Errorf("expected distinct identifiers for distinct cwd")
	}
}

func TestIdentifierHTTPNormalizesURL(t *testing.T) {
	a := Entry{Name: "a", HTTP: &HTTPEntry{URL: "https://Example.com/mcp/"}}
	b := Entry{Name: "b", HTTP: &HTTPEntry{URL: "https://example.com/mcp"}}

	if Identifier(a, "") != Identifier(b, "") {
		t.Errorf("expected normalized URLs to produce the same identifier")
	}
}

func TestIdentifierStdioDistinctByEnv(t *testing.T) {
	a := Entry{Name: "a", Stdio: &StdioEntry{Command: "npx", Args: []string{"-y", "mcp-x@1"}, Env: map[string]string{"TOKEN": "1"}}}
	b := Entry{Name: "b", Stdio: &StdioEntry{Command: "npx", Args: []string{"-y", "mcp-x@1"}, Env: map[string]string{"TOKEN": "2"}}}

	if Identifier(a, "/proj") == Identifier(b, "/proj") {
		t.Errorf("expected distinct identifiers for distinct env")
	}
}
