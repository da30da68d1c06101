package services

import (
	"context"
	"iter"

	"github.com/desertthunder/ytmigrate/internal/models"
)

// SourceCatalog is the read-only provider playlists are migrated from.
type SourceCatalog interface {
	// ListPlaylists returns the playlists eligible for migration, including the synthetic liked-songs collection.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	// ListTracks streams every track of a playlist in provider order.
	//
	// Pages are fetched lazily; iteration stops at the first error, which is yielded with a zero [models.Track].
	ListTracks(ctx context.Context, playlistID string) iter.Seq2[models.Track, error]
}

// TargetCatalog is the provider playlists are migrated into.
type TargetCatalog interface {
	// FindOrCreatePlaylist returns the id of the user's playlist titled name, creating it when none exists.
	FindOrCreatePlaylist(ctx context.Context, name, description string) (string, error)

	// ListPlaylistTrackIDs returns the set of track ids already in a target playlist.
	ListPlaylistTrackIDs(ctx context.Context, playlistID string) (map[string]struct{}, error)

	// Search returns candidates for a free-text query in provider ranking order.
	Search(ctx context.Context, query string) ([]models.Candidate, error)

	// AddTracks appends ids to a playlist. At most [shared.MaxAddBatch] ids may be sent per call.
	AddTracks(ctx context.Context, playlistID string, ids []string) error
}

// Service is the common identity of every provider client.
type Service interface {
	// Name returns the name of the service (e.g., "Spotify", "YouTube Music")
	Name() string

	// Authenticate loads credentials for subsequent requests.
	Authenticate(ctx context.Context, credentials map[string]string) error
}

var (
	_ SourceCatalog = (*SpotifyService)(nil)
	_ TargetCatalog = (*YouTubeService)(nil)
	_ Service       = (*SpotifyService)(nil)
	_ Service       = (*YouTubeService)(nil)
)
