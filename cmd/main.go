package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmigrate/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "ytmigrate",
		Usage:   "Migrate Spotify playlists to YouTube Music",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   runner.Load,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error("application error", "error", err)
		if hint := remediation(err); hint != "" {
			logger.Info(hint)
		}
		os.Exit(1)
	}
}

// remediation suggests the next step for errors a user can fix.
func remediation(err error) string {
	switch {
	case errors.Is(err, shared.ErrAuthFailed), errors.Is(err, shared.ErrNotAuthenticated):
		return "re-authorize with 'ytmigrate setup-oauth --provider spotify' or '--provider youtube'"
	case errors.Is(err, shared.ErrStateCorruption):
		return "the state file could not be read; fix or remove it (progress will be lost) and rerun"
	case errors.Is(err, shared.ErrServiceUnavailable):
		return "check that the YouTube Music proxy is running ('ytmigrate validate')"
	case errors.Is(err, shared.ErrMissingCredentials):
		return "add credentials to .env or config.toml ('ytmigrate init' writes a template)"
	case errors.Is(err, context.Canceled):
		return "progress was saved; rerun migrate to resume"
	default:
		return ""
	}
}
