package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/desertthunder/ytmigrate/internal/ui"
)

// progressBuffer bounds how far the printer may lag behind the engine before track updates are dropped.
const progressBuffer = 1024

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate Spotify playlists and liked songs to YouTube Music",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Only migrate this playlist (id or name, repeatable)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Discard saved progress for the selected playlists first",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Show a progress bar instead of per-track lines",
			},
		},
		Action: r.Migrate,
	}
}

func retryFailedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "retry-failed",
		Usage: "Search again for tracks that were not found in a migrated playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Spotify playlist id",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Hide per-track lines",
			},
		},
		Action: r.RetryFailed,
	}
}

func resetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Forget saved progress for one playlist so the next run migrates it again",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Spotify playlist id",
				Required: true,
			},
		},
		Action: r.Reset,
	}
}

// Migrate runs a full or selected migration.
//
// Interrupting the process cancels the run; state up to the last finished chunk is already on disk.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, state, cleanup, err := r.newEngine(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	quiet := cmd.Bool("quiet")
	printer := ui.NewPrinter(r.output, quiet)
	sel := tasks.Selection{Playlists: cmd.StringSlice("playlist"), Force: cmd.Bool("force")}

	progress := make(chan tasks.ProgressUpdate, progressBuffer)
	done := r.watch(progress, printer, quiet)

	result, err := engine.Migrate(ctx, sel, progress)
	close(progress)
	<-done

	if result != nil {
		printer.Summary(result)
	}
	r.writeFailedReport(state)

	if errors.Is(err, context.Canceled) {
		printer.Warn("Interrupted. Rerun migrate to resume from the last saved chunk.")
	}
	return err
}

// RetryFailed re-searches the not-found tracks of one playlist.
func (r *Runner) RetryFailed(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, state, cleanup, err := r.newEngine(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	quiet := cmd.Bool("quiet")
	printer := ui.NewPrinter(r.output, quiet)

	progress := make(chan tasks.ProgressUpdate, progressBuffer)
	done := r.watch(progress, printer, quiet)

	result, err := engine.RetryFailed(ctx, cmd.String("playlist"), progress)
	close(progress)
	<-done

	if result != nil {
		printer.Title("Retry of %s", result.TargetName)
		printer.Info("%d searched, %d added, %d still not found", result.Total, result.Added, result.NotFound)
		if result.Errors > 0 {
			printer.Warn("%d track(s) failed with errors; run retry-failed again later", result.Errors)
		}
	}
	r.writeFailedReport(state)

	return err
}

// Reset drops the record and track statuses of one playlist.
func (r *Runner) Reset(ctx context.Context, cmd *cli.Command) error {
	state, err := r.openState()
	if err != nil {
		return err
	}

	id := cmd.String("playlist")
	_, known := state.GetPlaylistRecord(id)
	removed := state.ResetPlaylist(id)
	if !known && removed == 0 {
		return fmt.Errorf("%w: no saved progress for %s", shared.ErrPlaylistNotFound, id)
	}

	if err := state.Save(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStateWrite, err)
	}
	r.logger.Info("playlist reset", "playlist", id, "tracks", removed)

	return r.writePlain("✓ Reset %s (%d track records removed)\n", id, removed)
}

// watch prints updates until progress is closed. The returned channel is closed once every update was handled.
//
// With showBar set, chunk updates drive a progress bar per playlist.
func (r *Runner) watch(progress <-chan tasks.ProgressUpdate, printer *ui.Printer, showBar bool) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		var bar *progressbar.ProgressBar
		finish := func() {
			if bar != nil {
				bar.Finish()
				bar = nil
			}
		}
		defer finish()

		for u := range progress {
			switch u.Phase {
			case tasks.ChunkProgress:
				stats, ok := u.Data.(tasks.ChunkStats)
				if !ok || !showBar {
					continue
				}
				if bar == nil {
					bar = newProgressBar(r.output, stats.Total)
				}
				bar.Set(stats.Processed)
			case tasks.PlaylistDone:
				finish()
				printer.Update(u)
			default:
				printer.Update(u)
			}
		}
	}()

	return done
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Matching"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("tracks"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// writeFailedReport rewrites the failed-track report from the current state.
//
// The format follows the file extension. Failures are logged; the run result stands regardless.
func (r *Runner) writeFailedReport(state *repositories.StateStore) {
	path := r.config.Migration.FailedReportPath
	if path == "" {
		return
	}

	format, err := formatter.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		format = formatter.FormatJSON
	}

	entries := state.FailedTracks()
	if err := formatter.WriteFailedReport(entries, path, format, playlistNames(state)); err != nil {
		r.logger.Warn("failed to write failed-track report", "path", path, "error", err)
		return
	}
	r.logger.Info("failed-track report written", "path", path, "tracks", len(entries))
}

// playlistNames maps source playlist ids to their recorded names.
func playlistNames(state *repositories.StateStore) map[string]string {
	names := make(map[string]string)
	for _, id := range state.PlaylistIDs() {
		if rec, ok := state.GetPlaylistRecord(id); ok {
			names[id] = rec.Name
		}
	}
	return names
}
