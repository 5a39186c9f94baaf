// Package app bootstraps and runs the three simultaneous surfaces this
// server exposes (REST+OpenAPI, native MCP, and the bridge aggregator),
// mirroring the two-phase bootstrap/run pattern of the teacher's own
// internal/app package: InitializeServices builds every long-lived
// component, Run blocks until signaled and tears them down in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/easynet-world/easy-mcp-server/internal/telemetry"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// ShutdownGrace bounds how long in-flight HTTP/MCP requests are given to
// finish once a shutdown signal arrives, per spec.md §5's cancellation and
// timeout discipline.
const ShutdownGrace = 10 * time.Second

// Application is the bootstrapped, not-yet-running server, analogous to
// the teacher's app.Application.
type Application struct {
	config   *Config
	services *Services

	shutdownTracer func(context.Context) error
}

// NewApplication runs the full bootstrap sequence: configures logging,
// installs the tracer provider, then builds every service.
func NewApplication(cfg *Config) (*Application, error) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	var out io.Writer = os.Stderr
	if cfg.Silent {
		out = io.Discard
	}
	logging.Init(level, out)

	shutdownTracer, err := telemetry.Init(context.Background(), Title, Version)
	if err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing services: %w", err)
	}

	return &Application{config: cfg, services: services, shutdownTracer: shutdownTracer}, nil
}

// Run starts the HTTP surface and the MCP transport (stdio or
// streamable-HTTP, per cfg.Server.StdioMode) and blocks until ctx is
// canceled or a SIGINT/SIGTERM arrives, then shuts everything down within
// ShutdownGrace.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	httpAddr := a.config.Server.Host + ":" + a.config.Server.Port
	httpServer := &http.Server{Addr: httpAddr, Handler: a.services.HTTP}
	go func() {
		logging.Info("Bootstrap", "HTTP surface listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP surface: %w", err)
			return
		}
		errCh <- nil
	}()

	var mcpServer *http.Server
	if a.config.Server.StdioMode {
		go func() {
			logging.Info("Bootstrap", "MCP surface listening on stdio")
			if err := mcpserver.ServeStdio(a.services.Multiplexer.Server()); err != nil {
				errCh <- fmt.Errorf("MCP stdio surface: %w", err)
				return
			}
			errCh <- nil
		}()
	} else {
		mcpAddr := a.config.Server.MCPHost + ":" + a.config.Server.MCPPort
		mcpServer = &http.Server{Addr: mcpAddr, Handler: mcpserver.NewStreamableHTTPServer(a.services.Multiplexer.Server())}
		go func() {
			logging.Info("Bootstrap", "MCP surface listening on %s", mcpAddr)
			if err := mcpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("MCP HTTP surface: %w", err)
				return
			}
			errCh <- nil
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("Bootstrap", "shutdown signal received")
	case err := <-errCh:
		if err != nil {
			runErr = err
			logging.Error("Bootstrap", err, "a server surface exited unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Bootstrap", "HTTP surface shutdown: %v", err)
	}
	if mcpServer != nil {
		if err := mcpServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Bootstrap", "MCP surface shutdown: %v", err)
		}
	}
	a.services.Shutdown(shutdownCtx)
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(shutdownCtx); err != nil {
			logging.Warn("Bootstrap", "tracer shutdown: %v", err)
		}
	}

	return runErr
}
