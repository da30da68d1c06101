package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

// Printer writes styled progress output.
type Printer struct {
	w       io.Writer
	palette *Palette
	quiet   bool // suppresses per-track lines
}

// NewPrinter creates a Printer writing to w. A quiet Printer only prints playlist-level lines.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, palette: styles, quiet: quiet}
}

// Title prints a bold heading.
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.w, p.palette.title.Render(fmt.Sprintf(format, args...)))
}

// Info prints a plain line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Warn prints a highlighted warning.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.palette.warn.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.palette.err.Render(fmt.Sprintf(format, args...)))
}

// Hint prints a dimmed suggestion.
func (p *Printer) Hint(format string, args ...any) {
	fmt.Fprintln(p.w, p.palette.help.Render(fmt.Sprintf(format, args...)))
}

// TrackLine formats one track outcome as "icon Artist - Title", with the failure reason for errors.
func TrackLine(o models.TrackOutcome) string {
	line := fmt.Sprintf("%s %s", o.Status.Icon(), o.Track.String())
	if o.Status == models.StatusError && o.Err != nil {
		line += fmt.Sprintf(" (%v)", o.Err)
	}
	return line
}

// Track prints one track outcome.
func (p *Printer) Track(o models.TrackOutcome) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.w, "  "+p.palette.ForStatus(o.Status).Render(TrackLine(o)))
}

// Update prints a progress event. Chunk events are left to the caller's progress bar.
func (p *Printer) Update(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.TrackResult:
		if o, ok := u.Data.(models.TrackOutcome); ok {
			p.Track(o)
		}
	case tasks.ResolvePlaylist:
		p.Title("%s", u.Message)
	case tasks.PlaylistDone:
		if r, ok := u.Data.(*tasks.PlaylistResult); ok && r.Err != nil {
			p.Error("%s", u.Message)
			return
		}
		p.Info("%s", u.Message)
	case tasks.ChunkProgress:
	default:
		p.Info("%s", u.Message)
	}
}

// SummaryLines renders the end-of-run totals.
func SummaryLines(r *tasks.MigrationResult) []string {
	return []string{
		fmt.Sprintf("Playlists processed: %s", humanize.Comma(int64(r.PlaylistsProcessed))),
		fmt.Sprintf("Playlists created:   %s", humanize.Comma(int64(r.PlaylistsCreated))),
		fmt.Sprintf("Tracks found:        %s", humanize.Comma(int64(r.TracksFound+r.TracksExisting))),
		fmt.Sprintf("Tracks added:        %s", humanize.Comma(int64(r.TracksAdded))),
		fmt.Sprintf("Tracks failed:       %s", humanize.Comma(int64(r.TracksFailed+r.TracksErrored))),
		fmt.Sprintf("Success rate:        %.1f%%", r.SuccessRate()),
	}
}

// Summary prints the end-of-run totals under a heading.
func (p *Printer) Summary(r *tasks.MigrationResult) {
	fmt.Fprintln(p.w)
	p.Title("Migration summary")
	fmt.Fprintln(p.w, strings.Join(SummaryLines(r), "\n"))

	if r.PlaylistsFailed > 0 {
		p.Warn("%d playlist(s) failed; rerun migrate to resume them", r.PlaylistsFailed)
	}
	if r.TracksFailed > 0 {
		p.Hint("Run retry-failed to search the %d unmatched track(s) again", r.TracksFailed)
	}
}
