package cmd

import (
	"fmt"

	"github.com/easynet-world/easy-mcp-server/internal/config"
	"github.com/easynet-world/easy-mcp-server/internal/discovery"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
)

// scanOnce runs a single cold-start discovery pass over API_PATH without
// starting any watcher or server, for the introspection commands
// (routes, openapi, check) that only need the resulting snapshot.
func scanOnce() (*registry.Snapshot, error) {
	cfg := config.LoadFromEnv()
	reg := registry.New()
	engine := discovery.NewEngine(cfg.APIPath, discovery.NewStack(), reg)
	if err := engine.Scan(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", cfg.APIPath, err)
	}
	return reg.Current(), nil
}
