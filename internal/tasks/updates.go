package tasks

import (
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data ([models.TrackOutcome], [ChunkStats], [*PlaylistResult])
}

// ChunkStats is the payload of a [ChunkProgress] update.
type ChunkStats struct {
	PlaylistID string
	Processed  int     // tracks classified so far in this playlist
	Total      int     // tracks in this playlist (or in the retry subset)
	Percentage float64 // Processed / Total * 100
	Added      int     // tracks added by this chunk
	AddedTotal int     // tracks added so far in this playlist
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	ResolvePlaylist
	FetchTracks
	TrackResult
	ChunkProgress
	PlaylistDone
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case ResolvePlaylist:
		return "resolve_playlist"
	case FetchTracks:
		return "fetch_tracks"
	case TrackResult:
		return "track_result"
	case ChunkProgress:
		return "chunk_progress"
	case PlaylistDone:
		return "playlist_done"
	default:
		return ""
	}
}

func fetchPlaylistsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Found %d playlists to migrate", count),
	}
}

func resolvePlaylistUpdate(step, total int, pl models.Playlist, targetName string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s → %s", step, total, pl.Name, targetName),
		Data:    pl,
	}
}

func fetchTracksUpdate(name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Fetched %d tracks from %s", count, name),
	}
}

func trackResultUpdate(step, total int, outcome models.TrackOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TrackResult,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s %s", outcome.Status.Icon(), outcome.Track.String()),
		Data:    outcome,
	}
}

func chunkProgressUpdate(stats ChunkStats) ProgressUpdate {
	return ProgressUpdate{
		Phase: ChunkProgress,
		Step:  stats.Processed,
		Total: stats.Total,
		Message: fmt.Sprintf("Processed %d/%d tracks (%.1f%%), added %d (total %d)",
			stats.Processed, stats.Total, stats.Percentage, stats.Added, stats.AddedTotal),
		Data: stats,
	}
}

func playlistDoneUpdate(step, total int, result *PlaylistResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: %d added, %d already present, %d not found",
		step, total, result.Playlist.Name, result.Added, result.Existing, result.NotFound)
	switch {
	case result.Err != nil:
		msg = fmt.Sprintf("[%d/%d] %s failed: %v", step, total, result.Playlist.Name, result.Err)
	case result.AlreadyCompleted:
		msg = fmt.Sprintf("[%d/%d] %s already completed, skipping", step, total, result.Playlist.Name)
	}

	return ProgressUpdate{
		Phase:   PlaylistDone,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    result,
	}
}
