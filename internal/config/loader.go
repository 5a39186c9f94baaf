package config

import (
	"os"
	"strings"

	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// EnvBridgePrefix is the recognized prefix for bridge child-environment
// mapping, per spec.md §4.7 "Environment mapping" and §6. The spec notes the
// source mixes several prefixes and asks an implementer to pick one
// consistently (Open Question #3); this core uses EASY_MCP_SERVER.
const EnvBridgePrefix = "EASY_MCP_SERVER."

// LoadFromEnv reads the recognized environment variables on top of
// Defaults(), applying each only when the corresponding variable is set.
func LoadFromEnv() ServerConfig {
	cfg := Defaults()

	if v, ok := os.LookupEnv("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := os.LookupEnv("HOST"); ok {
		cfg.Host = v
	}
	if v, ok := os.LookupEnv("MCP_PORT"); ok {
		cfg.MCPPort = v
	}
	if v, ok := os.LookupEnv("MCP_HOST"); ok {
		cfg.MCPHost = v
	}
	if v, ok := os.LookupEnv("API_PATH"); ok {
		cfg.APIPath = v
	}
	if v, ok := os.LookupEnv("MCP_BASE_PATH"); ok {
		cfg.MCPBasePath = v
	}
	if v, ok := os.LookupEnv("BRIDGE_CONFIG_PATH"); ok {
		cfg.BridgeConfigPath = v
		cfg.BridgeConfigSet = true
		if v == "" {
			logging.Info("ConfigLoader", "BRIDGE_CONFIG_PATH set to empty string, bridging disabled")
		}
	}
	if v, ok := os.LookupEnv("STDIO_MODE"); ok {
		cfg.StdioMode = v == "1" || strings.EqualFold(v, "true")
	}

	logging.Info("ConfigLoader", "Loaded server configuration: apiPath=%s mcpBasePath=%s port=%s mcpPort=%s",
		cfg.APIPath, cfg.MCPBasePath, cfg.Port, cfg.MCPPort)

	return cfg
}

// BridgeChildEnv translates a manifest-declared bridge name's
// EASY_MCP_SERVER.<name>.<KEY>=val environment entries into the <KEY_UPPER>
// form expected in the child process environment, per spec.md §4.7 and §6.
// Explicit `env` entries in the manifest take precedence over this
// pattern-derived set and must be merged in by the caller afterward.
func BridgeChildEnv(bridgeName string, environ []string) map[string]string {
	prefix := EnvBridgePrefix + strings.ToLower(bridgeName) + "."
	result := make(map[string]string)
	for _, kv := range environ {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, val := kv[:eq], kv[eq+1:]
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		param := strings.ToUpper(strings.TrimPrefix(key, prefix))
		result[param] = val
	}
	return result
}
