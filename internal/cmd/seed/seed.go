// Package seed parses seed command flags and populates demo data.
package seed

import (
	"context"
	"flag"

	entrypoint "github.com/hyvve/hyvve/internal/platform/cmd"
	seedapp "github.com/hyvve/hyvve/internal/services/seed/app"
)

// Config holds seed command configuration.
type Config = seedapp.Config

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The SQLite database path")
	fs.Int64Var(&cfg.RandSeed, "seed", cfg.RandSeed, "Random seed for reproducible throughput history (0 = clock)")
	fs.IntVar(&cfg.ThroughputWeeks, "weeks", cfg.ThroughputWeeks, "Weeks of throughput history to backfill")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		return seedapp.Run(ctx, cfg)
	})
}
