package config

// ServerConfig holds the environment-driven settings recognized by this
// core, per spec.md §6 "CLI-facing environment variables". Fields map 1:1
// onto the documented variables; defaults are applied by Defaults().
type ServerConfig struct {
	// Port/Host serve the HTTP surface (§6).
	Port string
	Host string

	// MCPPort/MCPHost serve the MCP JSON-RPC surface when not in stdio mode.
	MCPPort string
	MCPHost string

	// APIPath is the discovery root the C2 discovery engine walks.
	APIPath string

	// MCPBasePath is the root of the templated prompts/resources tree the
	// C11 cache manager serves.
	MCPBasePath string

	// BridgeConfigPath is the path to the bridge manifest. An explicitly
	// empty value (as opposed to unset) disables bridging entirely,
	// per spec.md §4.7 "Manifest lookup".
	BridgeConfigPath string
	BridgeConfigSet  bool

	// StdioMode runs the MCP surface over stdio instead of a TCP listener.
	StdioMode bool
}

// Defaults returns the baseline configuration that LoadFromEnv then
// overrides from the environment.
func Defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Host:        "0.0.0.0",
		MCPPort:     "8081",
		MCPHost:     "0.0.0.0",
		APIPath:     "./api",
		MCPBasePath: "./mcp",
	}
}
