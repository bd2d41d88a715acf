// Package main runs one housekeeping pass over the database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	maintcmd "github.com/hyvve/hyvve/internal/cmd/maintenance"
)

func main() {
	cfg, err := maintcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[MAINTENANCE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := maintcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("maintenance failed: %v", err)
	}
}
