package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lightflow/lightflow/cmd/lightflow/commands"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	zerolog.SetGlobalLevel(logLevel())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// An interrupt cancels the command context; any in-flight task
	// command sees the cancellation through its exec context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, Version, Commit, BuildDate); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// logLevel reads the log level from LIGHTFLOW_LOG, defaulting to info.
func logLevel() zerolog.Level {
	if env := os.Getenv("LIGHTFLOW_LOG"); env != "" {
		if lvl, err := zerolog.ParseLevel(env); err == nil {
			return lvl
		}
	}
	return zerolog.InfoLevel
}
