// Package api parses api command flags and starts the HTTP service.
package api

import (
	"context"
	"flag"

	entrypoint "github.com/hyvve/hyvve/internal/platform/cmd"
	server "github.com/hyvve/hyvve/internal/services/api/app"
)

// Config holds api command configuration.
type Config = server.Config

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAPI, func(ctx context.Context) error {
		return server.Run(ctx, cfg)
	})
}
