package app

import (
	"context"
	"fmt"
	"os"

	"github.com/easynet-world/easy-mcp-server/internal/adapter"
	"github.com/easynet-world/easy-mcp-server/internal/bridge"
	"github.com/easynet-world/easy-mcp-server/internal/discovery"
	"github.com/easynet-world/easy-mcp-server/internal/httpapi"
	"github.com/easynet-world/easy-mcp-server/internal/mcpcache"
	"github.com/easynet-world/easy-mcp-server/internal/metrics"
	"github.com/easynet-world/easy-mcp-server/internal/mux"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
	"github.com/easynet-world/easy-mcp-server/internal/reload"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// Title/Version identify this server over both the OpenAPI document and
// the MCP initialize handshake.
const (
	Title   = "easy-mcp-server"
	Version = "0.1.0"
)

// Services bundles every long-lived component the serve command starts,
// mirroring the teacher's app.Services grouping (one struct the bootstrap
// phase fills in, the run phase reads from).
type Services struct {
	Registry    *registry.Registry
	Engine      *discovery.Engine
	Stack       *discovery.Stack
	Supervisor  *bridge.Supervisor
	Cache       *mcpcache.Manager
	Metrics     *metrics.Registry
	Adapter     *adapter.Adapter
	Multiplexer *mux.Multiplexer
	Watcher     *reload.Watcher
	HTTP        *httpapi.Server

	cfg *Config
}

// InitializeServices performs the full cold-start sequence: scan the
// discovery root, load the bridge manifest (if any) and start every
// bridge, seed the MCP multiplexer's tool set, start the hot-reload
// watcher and the prompts/resources cache watcher.
func InitializeServices(cfg *Config) (*Services, error) {
	reg := registry.New()
	stack := discovery.NewStack()
	engine := discovery.NewEngine(cfg.Server.APIPath, stack, reg)

	if err := engine.Scan(); err != nil {
		return nil, fmt.Errorf("initial discovery scan of %s: %w", cfg.Server.APIPath, err)
	}

	sv := bridge.NewSupervisor()
	ad := adapter.New()
	m := metrics.New()
	cache := mcpcache.New(cfg.Server.MCPBasePath)

	mp := mux.New(Title, Version, reg, sv, ad, cache)

	svc := &Services{
		Registry:    reg,
		Engine:      engine,
		Stack:       stack,
		Supervisor:  sv,
		Cache:       cache,
		Metrics:     m,
		Adapter:     ad,
		Multiplexer: mp,
		cfg:         cfg,
	}

	ctx := context.Background()
	if err := svc.loadBridgeManifest(ctx); err != nil {
		logging.Warn("Bootstrap", "bridge manifest not loaded: %v", err)
	}
	mp.Refresh(ctx)

	httpSrv := httpapi.New(Title, Version, svc.baseURL(), reg, sv, mp, cache, ad, m, engine)
	svc.HTTP = httpSrv

	watcher := reload.New(cfg.Server.APIPath, cfg.Server.MCPBasePath, engine, reg, func() {
		mp.Refresh(context.Background())
		httpSrv.NotifyToolsChanged()
	})
	svc.Watcher = watcher

	if err := watcher.Start(); err != nil {
		return nil, fmt.Errorf("starting discovery-root watcher: %w", err)
	}
	if err := cache.Start(); err != nil {
		return nil, fmt.Errorf("starting prompt/resource cache watcher: %w", err)
	}

	return svc, nil
}

func (s *Services) baseURL() string {
	return "http://" + s.cfg.Server.Host + ":" + s.cfg.Server.Port
}

// loadBridgeManifest resolves the manifest path per spec.md §4.7's lookup
// order and, if one is found, loads every enabled entry into the
// supervisor. A missing/disabled manifest is not an error: bridging is
// simply inert.
func (s *Services) loadBridgeManifest(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	path, err := bridge.ResolveManifestPath(s.cfg.Server.BridgeConfigPath, s.cfg.Server.BridgeConfigSet, cwd, hasPackageDependency)
	if err != nil {
		if err == bridge.ErrBridgingDisabled {
			logging.Info("Bootstrap", "bridging disabled via empty BRIDGE_CONFIG_PATH")
			return nil
		}
		return nil // no manifest found anywhere; bridging stays inert
	}

	manifest, err := bridge.LoadManifestFile(path)
	if err != nil {
		return fmt.Errorf("loading bridge manifest %s: %w", path, err)
	}

	logging.Info("Bootstrap", "loaded bridge manifest from %s (%d entries)", path, len(manifest.Entries))
	s.Supervisor.ReloadManifest(ctx, manifest)
	return nil
}

// hasPackageDependency is the ResolveManifestPath dependency-detection
// callback: a project manifest (package.json) counts if it mentions this
// server's own package name as a dependency. This core has no npm identity
// of its own to match against, so ancestor-manifest discovery never fires;
// only the explicit-path and CWD-file lookup steps are reachable.
func hasPackageDependency(projectManifestPath string) bool {
	return false
}

// Shutdown tears down every background component in reverse startup order.
func (s *Services) Shutdown(ctx context.Context) {
	_ = s.Cache.Stop()
	_ = s.Watcher.Stop()
	s.Supervisor.Shutdown(ctx)
}
