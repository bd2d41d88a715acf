// Package mcp parses mcp command flags and starts the agent tool server.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/hyvve/hyvve/internal/platform/cmd"
	server "github.com/hyvve/hyvve/internal/services/mcp/service"
)

// Config holds mcp command configuration.
type Config = server.Config

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "The transport to serve on (stdio or http)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP listen address for the http transport")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP tool service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return server.Run(ctx, cfg)
	})
}
