// YouTube Music [TargetCatalog] implementation
//
// Communicates with the FastAPI proxy server running on port 8080.
// The proxy wraps ytmusicapi Python library for YouTube Music operations.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

const (
	defaultYTBaseURL     string = "http://127.0.0.1:8080"
	defaultSearchLimit          = 5
	defaultPrivacyStatus        = "PRIVATE"
)

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"` // Duration in seconds
	SetVideoID  string          `json:"setVideoId,omitempty"`
}

// YouTubePlaylist represents a library playlist from YouTube Music.
type YouTubePlaylist struct {
	PlaylistID  string `json:"playlistId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// YouTubeService implements [TargetCatalog] for YouTube Music via proxy.
type YouTubeService struct {
	baseURL     string
	authFile    string
	searchLimit int
	httpClient  *http.Client
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(baseURL string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		searchLimit: defaultSearchLimit,
		httpClient:  http.DefaultClient,
	}
}

// SetSearchLimit sets how many candidates [YouTubeService.Search] requests. Values below one are ignored.
func (y *YouTubeService) SetSearchLimit(limit int) {
	if limit > 0 {
		y.searchLimit = limit
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// Authenticate stores the authentication file path for subsequent requests.
//
// Expects credentials["auth_file"] to contain the path to browser.json.
func (y *YouTubeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	authFile, ok := credentials["auth_file"]
	if !ok || authFile == "" {
		return fmt.Errorf("%w: missing auth_file", shared.ErrMissingCredentials)
	}

	y.authFile = authFile
	return nil
}

func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: youtube music proxy request failed: %v", shared.ClassifyTransport(err), err)
	}
	defer resp.Body.Close()

	if err := shared.ClassifyStatus(resp.StatusCode); err != nil {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: youtube music API error (status %d): %s", err, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: youtube music API error: status %d", err, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// Health checks that the proxy is up and can load the configured credentials.
//
// Calls GET /health on the proxy.
func (y *YouTubeService) Health(ctx context.Context) error {
	var status struct {
		Status        string `json:"status"`
		Authenticated *bool  `json:"authenticated"`
	}
	if err := y.doRequest(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return err
	}
	if status.Authenticated != nil && !*status.Authenticated {
		return fmt.Errorf("%w: proxy could not load %s", shared.ErrAuthFailed, y.authFile)
	}
	return nil
}

// SetupAuth sends raw browser request headers to the proxy, which writes them out as the auth file.
//
// Calls POST /api/setup on the proxy.
func (y *YouTubeService) SetupAuth(ctx context.Context, headersRaw string) error {
	req := struct {
		HeadersRaw string `json:"headers_raw"`
		Filepath   string `json:"filepath"`
	}{headersRaw, y.authFile}

	return y.doRequest(ctx, http.MethodPost, "/api/setup", req, nil)
}

// LibraryPlaylists retrieves all playlists in the user's library.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YouTubeService) LibraryPlaylists(ctx context.Context) ([]YouTubePlaylist, error) {
	var playlists []YouTubePlaylist
	if err := y.doRequest(ctx, http.MethodGet, "/api/library/playlists", nil, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// FindOrCreatePlaylist returns the first library playlist titled name, creating a private one when none exists.
//
// Creates via POST /api/playlists.
func (y *YouTubeService) FindOrCreatePlaylist(ctx context.Context, name, description string) (string, error) {
	playlists, err := y.LibraryPlaylists(ctx)
	if err != nil {
		return "", err
	}

	for _, p := range playlists {
		if p.Title == name && p.PlaylistID != "" {
			return p.PlaylistID, nil
		}
	}

	createReq := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{name, description, defaultPrivacyStatus}

	var createResp struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := y.doRequest(ctx, http.MethodPost, "/api/playlists", createReq, &createResp); err != nil {
		return "", err
	}
	if createResp.PlaylistID == "" {
		return "", fmt.Errorf("%w: proxy returned no playlist id for %q", shared.ErrAPIRequest, name)
	}

	return createResp.PlaylistID, nil
}

// ListPlaylistTrackIDs returns the video ids currently in a playlist.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YouTubeService) ListPlaylistTrackIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	var playlist struct {
		ID     string         `json:"id"`
		Tracks []YouTubeTrack `json:"tracks"`
	}

	endpoint := fmt.Sprintf("/api/playlists/%s", url.PathEscape(playlistID))
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(playlist.Tracks))
	for _, t := range playlist.Tracks {
		if t.VideoID != "" {
			ids[t.VideoID] = struct{}{}
		}
	}
	return ids, nil
}

// Search returns song candidates for query.
//
// Calls GET /api/search?q={query}&filter=songs&limit={n} on the proxy.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", "songs")
	params.Set("limit", strconv.Itoa(y.searchLimit))

	var results []YouTubeTrack
	if err := y.doRequest(ctx, http.MethodGet, "/api/search?"+params.Encode(), nil, &results); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, toCandidate(r))
	}
	return candidates, nil
}

// AddTracks appends video ids to a playlist.
//
// Calls POST /api/playlists/{id}/items on the proxy.
func (y *YouTubeService) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > shared.MaxAddBatch {
		return fmt.Errorf("%w: %d ids (max %d)", shared.ErrBatchTooLarge, len(ids), shared.MaxAddBatch)
	}

	addReq := struct {
		VideoIDs []string `json:"video_ids"`
	}{ids}

	endpoint := fmt.Sprintf("/api/playlists/%s/items", url.PathEscape(playlistID))
	if err := y.doRequest(ctx, http.MethodPost, endpoint, addReq, nil); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAddFailed, err)
	}
	return nil
}

func toCandidate(t YouTubeTrack) models.Candidate {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	c := models.Candidate{
		ID:       t.VideoID,
		Title:    t.Title,
		Artists:  artists,
		Duration: t.DurationSec,
	}
	if t.Album != nil {
		c.Album = t.Album.Name
	}
	if c.Duration == 0 && t.Duration != "" {
		c.Duration = parseClock(t.Duration)
	}
	return c
}

// parseClock converts "m:ss" or "h:mm:ss" into seconds, returning zero for anything else.
func parseClock(s string) int {
	total := 0
	for part := range strings.SplitSeq(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}
