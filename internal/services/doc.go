// Package services implements the provider clients used by the migration engine.
//
// # Catalog Interfaces
//
// The engine only depends on [SourceCatalog] and [TargetCatalog]; tests substitute in-memory fakes.
//
// # Spotify Implementation
//
// [SpotifyService] reads playlists, the liked-songs library and their tracks from the Spotify Web API.
// Authentication uses OAuth2; the [oauth2.Client] refreshes expired access tokens with the stored refresh token.
//
// # YouTube Music Implementation
//
// [YouTubeService] talks to the local proxy that wraps ytmusicapi.
// The auth_file path is sent via X-Auth-File header on each request so the proxy can load browser credentials.
//
// # Error Handling
//
// HTTP statuses are mapped onto the shared taxonomy with [shared.ClassifyStatus]:
//   - [shared.ErrAuthFailed] : 401/403, fatal for the run
//   - [shared.ErrRateLimited], [shared.ErrTransient] : 429, 5xx and dropped connections, retried by callers
//   - [shared.ErrServiceUnavailable] : 503 or a refused connection
//   - [shared.ErrPlaylistNotFound] : 404
//
// Clients never retry on their own; retry policy lives with the caller.
package services
