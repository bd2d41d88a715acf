// Package maintenance parses maintenance command flags and runs the
// periodic housekeeping pass.
package maintenance

import (
	"context"
	"flag"

	entrypoint "github.com/hyvve/hyvve/internal/platform/cmd"
	maintapp "github.com/hyvve/hyvve/internal/services/maintenance/app"
)

// Config holds maintenance command configuration.
type Config = maintapp.Config

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The SQLite database path")
	fs.DurationVar(&cfg.InvitationRetention, "invitation-retention", cfg.InvitationRetention, "How long expired invitations are kept")
	fs.DurationVar(&cfg.ActivityRetention, "activity-retention", cfg.ActivityRetention, "How long activity events are kept")
	fs.IntVar(&cfg.IndexBatch, "index-batch", cfg.IndexBatch, "Articles to embed per run")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes one maintenance pass.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMaintenance, func(ctx context.Context) error {
		return maintapp.Run(ctx, cfg)
	})
}
