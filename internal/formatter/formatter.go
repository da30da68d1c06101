// package formatter renders migration reports (failed tracks, per-playlist status) as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// Format selects a report encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts json, csv, markdown and md, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q (want json, csv or markdown)", shared.ErrInvalidArgument, s)
	}
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".json"
	}
}

// FailedToJSON renders the failed-track report as an indented JSON array. An empty report is "[]".
func FailedToJSON(entries []models.FailedTrackEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.FailedTrackEntry{}
	}
	data, err := shared.MarshalJSON(entries, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal failed tracks: %w", err)
	}
	return append(data, '\n'), nil
}

// FailedToCSV renders the failed-track report with columns: playlist_id, source_track_id, title, artists.
// Artists are joined with "; ".
func FailedToCSV(entries []models.FailedTrackEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"playlist_id", "source_track_id", "title", "artists"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{e.PlaylistID, e.SourceTrackID, e.Title, strings.Join(e.Artists, "; ")}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// FailedToMarkdown renders the failed-track report grouped by playlist.
//
// names maps playlist ids to display names; ids without a name are shown as is.
func FailedToMarkdown(entries []models.FailedTrackEntry, names map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Tracks not found\n\n")
	fmt.Fprintf(&buf, "**Total**: %d\n", len(entries))

	groups := make(map[string][]models.FailedTrackEntry)
	for _, e := range entries {
		groups[e.PlaylistID] = append(groups[e.PlaylistID], e)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		fmt.Fprintf(&buf, "\n## %s\n\n", escapeMarkdown(name))
		for i, e := range groups[id] {
			artists := strings.Join(e.Artists, ", ")
			if artists == "" {
				artists = "Unknown artist"
			}
			fmt.Fprintf(&buf, "%d. %s - %s (`%s`)\n", i+1, escapeMarkdown(artists), escapeMarkdown(e.Title), e.SourceTrackID)
		}
	}

	return buf.Bytes(), nil
}

// RenderFailed encodes entries in the given format.
func RenderFailed(entries []models.FailedTrackEntry, format Format, names map[string]string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return FailedToCSV(entries)
	case FormatMarkdown:
		return FailedToMarkdown(entries, names)
	default:
		return FailedToJSON(entries)
	}
}

// WriteFailedReport writes the failed-track report to path, creating parent directories.
func WriteFailedReport(entries []models.FailedTrackEntry, path string, format Format, names map[string]string) error {
	data, err := RenderFailed(entries, format, names)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// PlaylistStatus is one row of the status table.
type PlaylistStatus struct {
	ID        string
	Name      string
	TargetID  string
	Completed bool
	Counts    map[models.TrackStatus]int
}

// StatusToText renders a fixed-width table of playlist records.
func StatusToText(rows []PlaylistStatus) []byte {
	var buf bytes.Buffer

	if len(rows) == 0 {
		buf.WriteString("No playlists migrated yet.\n")
		return buf.Bytes()
	}

	nameWidth := len("Playlist")
	for _, r := range rows {
		nameWidth = max(nameWidth, len([]rune(r.Name)))
	}

	fmt.Fprintf(&buf, "%-*s  %-9s  %6s  %6s  %6s  %9s\n", nameWidth, "Playlist", "State", "Found", "Exists", "Cached", "Not found")
	for _, r := range rows {
		state := "partial"
		if r.Completed {
			state = "completed"
		}
		fmt.Fprintf(&buf, "%s%s  %-9s  %6s  %6s  %6s  %9s\n",
			r.Name, strings.Repeat(" ", nameWidth-len([]rune(r.Name))),
			state,
			strconv.Itoa(r.Counts[models.StatusFound]),
			strconv.Itoa(r.Counts[models.StatusExists]),
			strconv.Itoa(r.Counts[models.StatusCached]),
			strconv.Itoa(r.Counts[models.StatusNotFound]),
		)
	}

	return buf.Bytes()
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
