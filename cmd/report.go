package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show saved progress for every migrated playlist",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print or write the list of tracks that could not be matched",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format: json, csv or markdown",
				Value:   string(formatter.FormatJSON),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to this file instead of stdout",
			},
		},
		Action: r.Report,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent migration runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
		},
		Action: r.History,
	}
}

// statusRows builds one status row per recorded playlist, in id order.
func statusRows(state *repositories.StateStore) []formatter.PlaylistStatus {
	ids := state.PlaylistIDs()
	rows := make([]formatter.PlaylistStatus, 0, len(ids))
	for _, id := range ids {
		rec, _ := state.GetPlaylistRecord(id)
		rows = append(rows, formatter.PlaylistStatus{
			ID:        id,
			Name:      rec.Name,
			TargetID:  rec.TargetID,
			Completed: rec.Completed,
			Counts:    state.StatusCounts(id),
		})
	}
	return rows
}

// Status prints the per-playlist table from the state file.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	state, err := r.openState()
	if err != nil {
		return err
	}

	rows := statusRows(state)
	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}
	return r.writePlain("%s", formatter.StatusToText(rows))
}

// Report renders the failed-track report to stdout or to --output.
func (r *Runner) Report(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	state, err := r.openState()
	if err != nil {
		return err
	}
	entries := state.FailedTracks()
	names := playlistNames(state)

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFailedReport(entries, path, format, names); err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d failed track(s) to %s\n", len(entries), path)
	}

	data, err := formatter.RenderFailed(entries, format, names)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// History lists recent runs from the history database, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.OpenHistory(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := repositories.NewHistoryRecorder(repositories.NewMigrationRepository(db)).Recent(cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(jobs) == 0 {
		return r.writePlain("No runs recorded yet.\n")
	}

	r.writePlainHeader("Recent runs")
	for _, job := range jobs {
		r.writePlain("%s\n", historyLine(job))
	}
	return nil
}

// historyLine formats one job as "when  kind  status  playlist  (counts)".
func historyLine(job *models.MigrationJob) string {
	when := "unknown"
	if job.StartedAt != nil {
		when = humanize.Time(*job.StartedAt)
	}

	line := fmt.Sprintf("%-16s %-12s %-11s %s (%s total, %s added, %s existing, %s not found)",
		when, job.Kind, job.Status, job.SourcePlaylistName,
		humanize.Comma(int64(job.TracksTotal)),
		humanize.Comma(int64(job.TracksAdded)),
		humanize.Comma(int64(job.TracksExisting)),
		humanize.Comma(int64(job.TracksFailed)),
	)
	if job.ErrorMessage != "" {
		line += ": " + job.ErrorMessage
	}
	return line
}
