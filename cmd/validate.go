package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmigrate/internal/shared"
)

func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "Check credentials, auth files, migration state and the YouTube Music proxy",
		Action: r.Validate,
	}
}

// check is the outcome of one validate step.
type check struct {
	name string
	err  error
}

// runChecks performs every validate step, continuing past failures.
func (r *Runner) runChecks(ctx context.Context) []check {
	c := r.config
	checks := []check{}

	var credsErr error
	if unset(c.Credentials.Spotify.ClientID) || unset(c.Credentials.Spotify.ClientSecret) {
		credsErr = fmt.Errorf("%w: spotify client id or secret is not set", shared.ErrMissingCredentials)
	}
	checks = append(checks, check{"Spotify credentials", credsErr})

	_, tokenErr := shared.LoadToken(c.Credentials.Spotify.TokenPath)
	checks = append(checks, check{"Spotify token", tokenErr})

	var authErr error
	if c.Credentials.YouTube.AuthFile == "" {
		authErr = fmt.Errorf("%w: credentials.youtube.auth_file is empty", shared.ErrMissingCredentials)
	} else if _, err := os.Stat(c.Credentials.YouTube.AuthFile); err != nil {
		authErr = fmt.Errorf("%w: %v (run setup-oauth --provider youtube)", shared.ErrMissingCredentials, err)
	}
	checks = append(checks, check{"YouTube Music auth file", authErr})

	_, stateErr := r.openState()
	checks = append(checks, check{"Migration state", stateErr})

	var healthErr error
	if youtube, err := r.youtubeService(ctx); err != nil {
		healthErr = err
	} else {
		healthErr = youtube.Health(ctx)
	}
	checks = append(checks, check{"YouTube Music proxy", healthErr})

	return checks
}

// unset reports an empty value or one still holding the template placeholder.
func unset(v string) bool {
	return v == "" || strings.HasPrefix(v, "your_")
}

// Validate prints one line per check and fails when any check failed.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Configuration check")

	failed := 0
	for _, c := range r.runChecks(ctx) {
		if c.err != nil {
			failed++
			r.writePlain("✗ %s: %v\n", c.name, c.err)
			continue
		}
		r.writePlain("✓ %s\n", c.name)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d check(s) failed", shared.ErrInvalidConfig, failed)
	}
	r.writePlainln("All checks passed")
	return nil
}
