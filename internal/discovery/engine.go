package discovery

import (
	"os"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/handler"
	"github.com/easynet-world/easy-mcp-server/internal/schema"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// Loader loads a handler plugin and normalizes it to a handler.Handler plus
// its capability set. PluginLoader is the production implementation; tests
// substitute a fake so they don't need a real compiled .so file. This is
// the "HandlerRoot interface" of spec.md §4.2's Inputs list.
type Loader interface {
	Load(path string) (handler.Handler, api.Capabilities, error)
}

// RegistryWriter is the subset of *registry.Registry the engine needs,
// kept as an interface so discovery does not import the registry package's
// concrete atomic/locking details.
type RegistryWriter interface {
	ReplaceAll(routes []api.Route, errs []api.LoaderError)
	Apply(upsertRoutes []api.Route, removeKeys []api.RouteKey, affectedFiles []string, newErrors []api.LoaderError)
}

// Engine is the discovery engine (spec.md §4.2, component C2).
type Engine struct {
	RootDir string
	Loader  Loader
	Sink    MiddlewareSink
	Writer  RegistryWriter

	cache *loadCache
}

// NewEngine builds a discovery engine over rootDir using the production
// plugin loader and the given middleware sink and registry writer.
func NewEngine(rootDir string, sink MiddlewareSink, writer RegistryWriter) *Engine {
	return &Engine{
		RootDir: rootDir,
		Loader:  PluginLoader{},
		Sink:    sink,
		Writer:  writer,
		cache:   newLoadCache(),
	}
}

// Scan performs a full cold-start walk of RootDir and replaces the entire
// registry snapshot, per spec.md §4.2's algorithm and the data flow in
// spec.md §2 ("C2 scans -> populates C3").
func (e *Engine) Scan() error {
	files, err := walkRoot(e.RootDir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn("Discovery", "discovery root %s does not exist, starting with zero routes", e.RootDir)
			e.Writer.ReplaceAll(nil, nil)
			return nil
		}
		return err
	}

	var routes []api.Route
	var errs []api.LoaderError

	for _, f := range files {
		if isMiddlewareFile(f.Stem) {
			e.loadMiddleware(f)
			continue
		}

		route, loaderErr, ok := e.loadRoute(f)
		if !ok {
			if loaderErr != nil {
				errs = append(errs, *loaderErr)
			}
			continue
		}
		routes = append(routes, route)
	}

	e.Writer.ReplaceAll(routes, errs)
	logging.Info("Discovery", "scanned %s: %d routes, %d errors", e.RootDir, len(routes), len(errs))
	return nil
}

// ReloadPaths re-processes exactly the given absolute file paths and
// publishes an incremental registry update, per spec.md §4.4 steps 3-4.
// Paths that no longer exist are only marked affected here; their route
// keys are removed by the hot-reload watcher (C4) through RemoveKeys. It is
// the entry point the watcher calls after debouncing a burst of FS events.
func (e *Engine) ReloadPaths(paths []string) error {
	var upserts []api.Route
	var removals []api.RouteKey
	var errs []api.LoaderError
	var affected []string

	for _, path := range paths {
		e.cache.Evict(path)
		affected = append(affected, path)

		rel, relErr := relTo(e.RootDir, path)
		if relErr != nil {
			continue
		}

		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			// File removed: if it was a route, its key can't be recomputed
			// from a gone file. reload.Watcher resolves the key from its
			// previous snapshot and removes it through RemoveKeys; Engine
			// only handles additions/changes here.
			continue
		}

		f := handlerFile{
			AbsPath:    path,
			RelPath:    rel,
			Stem:       stem(lastSegment(path)),
			SourcePath: siblingSource(path),
		}

		if isMiddlewareFile(f.Stem) {
			e.Sink.Uninstall(path)
			e.loadMiddleware(f)
			continue
		}

		route, loaderErr, ok := e.loadRoute(f)
		if !ok {
			if loaderErr != nil {
				errs = append(errs, *loaderErr)
			}
			continue
		}
		upserts = append(upserts, route)
	}

	e.Writer.Apply(upserts, removals, affected, errs)
	return nil
}

// RemoveKeys is called by the watcher with the route keys a deleted file
// used to own, resolved from the registry snapshot before the file
// disappeared.
func (e *Engine) RemoveKeys(keys []api.RouteKey, filePaths []string) {
	e.Writer.Apply(nil, keys, filePaths, nil)
}

func (e *Engine) loadRoute(f handlerFile) (api.Route, *api.LoaderError, bool) {
	method, ok := methodForStem(f.Stem)
	if !ok {
		return api.Route{}, &api.LoaderError{
			FilePath: f.AbsPath,
			Type:     api.ErrUnknown,
			Message:  "unrecognized method token: " + f.Stem,
		}, false
	}

	instance, caps, err := e.Loader.Load(f.AbsPath)
	if err != nil {
		return api.Route{}, &api.LoaderError{
			FilePath: f.AbsPath,
			Type:     classifyLoadError(err),
			Message:  err.Error(),
		}, false
	}
	e.cache.Remember(f.AbsPath, f.AbsPath)

	urlTemplate := urlTemplateForPath(f.RelPath)

	var src []byte
	if f.SourcePath != "" {
		src, _ = os.ReadFile(f.SourcePath)
	}
	bundle, _ := schema.Extract(f.SourcePath, src, urlTemplate, instance)

	return api.Route{
		Method:      method,
		URLTemplate: urlTemplate,
		FilePath:    f.AbsPath,
		Handler:     api.HandlerRef{Instance: instance, Capabilities: caps},
		Schema:      bundle,
	}, nil, true
}

func (e *Engine) loadMiddleware(f handlerFile) {
	instance, _, err := e.Loader.Load(f.AbsPath)
	if err != nil {
		logging.Warn("Discovery", "failed to load middleware %s: %v", f.AbsPath, err)
		return
	}

	prefix := middlewarePrefix(f.RelPath)
	e.Sink.Install(api.MiddlewareLayer{
		FilePath:    f.AbsPath,
		URLPrefix:   prefix,
		HandlerList: []handler.Handler{instance},
	})
	logging.Debug("Discovery", "installed middleware from %s on prefix %s", f.AbsPath, prefix)
}
