// Package service runs the MCP server over stdio or HTTP.
//
// It is the transport adapter layer: the package knows how to run MCP and
// delegates tool meaning to the domain handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyvve/hyvve/internal/kb"
	"github.com/hyvve/hyvve/internal/platform/timeouts"
	"github.com/hyvve/hyvve/internal/services/mcp/domain"
	"github.com/hyvve/hyvve/internal/storage/sqlite"
)

const (
	serverName    = "hyvve-mcp"
	serverVersion = "0.1.0"
)

// Transport selects how the MCP server speaks to clients.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config controls MCP service startup.
type Config struct {
	DBPath    string `env:"HYVVE_DB_PATH" envDefault:"hyvve.db"`
	Transport string `env:"HYVVE_MCP_TRANSPORT" envDefault:"stdio"`
	HTTPAddr  string `env:"HYVVE_MCP_HTTP_ADDR" envDefault:"127.0.0.1:8765"`
	// GenAIAPIKey enables semantic kb_search; empty falls back to keywords.
	GenAIAPIKey string `env:"HYVVE_GENAI_API_KEY"`
}

// Server hosts the MCP process over a single storage handle.
type Server struct {
	mcpServer *mcp.Server
	store     *sqlite.Store
}

// NewServer opens storage and registers the read tools.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var embedder kb.Embedder
	if strings.TrimSpace(cfg.GenAIAPIKey) != "" {
		genaiEmbedder, err := kb.NewGenAIEmbedder(ctx, cfg.GenAIAPIKey)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("configure embedder: %w", err)
		}
		embedder = genaiEmbedder
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(mcpServer, domain.WorkspaceListTool(), domain.WorkspaceListHandler(store))
	mcp.AddTool(mcpServer, domain.RiskListTool(), domain.RiskListHandler(store, store))
	mcp.AddTool(mcpServer, domain.ForecastGetTool(), domain.ForecastGetHandler(store, store, store))
	mcp.AddTool(mcpServer, domain.KBSearchTool(), domain.KBSearchHandler(store, store, embedder))

	return &Server{mcpServer: mcpServer, store: store}, nil
}

// Run is the service entrypoint for MCP and blocks until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init mcp server: %w", err)
	}
	defer server.Close()

	transport := cfg.Transport
	if transport == "" {
		transport = TransportStdio
	}
	switch transport {
	case TransportStdio:
		return server.Serve(ctx)
	case TransportHTTP:
		return server.ServeHTTP(ctx, cfg.HTTPAddr)
	default:
		return fmt.Errorf("transport %q is not supported", transport)
	}
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// ServeHTTP exposes the MCP server over streamable HTTP until the context
// ends.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("mcp server is not configured")
	}
	if strings.TrimSpace(addr) == "" {
		addr = "127.0.0.1:8765"
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	log.Printf("mcp server listening on %s", addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown mcp http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve mcp http: %w", err)
	}
}

// serveWithTransport runs the MCP server on the given transport. Context
// cancellation reads as a clean stop.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("mcp server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}

// Close releases the storage handle held by the server.
func (s *Server) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close storage: %v", err)
	}
	s.store = nil
}
