// Spotify Web API implementation of [SourceCatalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// LikedSongsName is the display name of the synthetic liked-songs playlist.
	LikedSongsName = "Liked Songs"

	playlistPageSize = 50
	trackPageSize    = 100
	savedPageSize    = 50
)

var spotifyScopes = []string{
	"user-read-private",
	"user-library-read",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track. ID is nil for local files.
type SpotifyTrack struct {
	ID         *string         `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
	URI        string          `json:"uri"`
}

// Owner identifies the user that owns a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackTotal struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Owner       Owner      `json:"owner"`
	Public      bool       `json:"public"`
	Tracks      trackTotal `json:"tracks"`
	URI         string     `json:"uri"`
}

// SpotifyPlaylistItem represents a track within a playlist or the saved-tracks library.
//
// Track is nil for episodes and for items removed from the catalog.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// page is the paging object shared by every list endpoint.
type page[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithOwnedOnly limits [SpotifyService.ListPlaylists] to playlists owned by the authenticated user.
func WithOwnedOnly(owned bool) SpotifyOption {
	return func(s *SpotifyService) { s.ownedOnly = owned }
}

// WithSpotifyBaseURL points the client at a different API root.
func WithSpotifyBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = baseURL }
}

// SpotifyService reads playlists and tracks from the Spotify Web API.
// Uses [oauth2] for authentication; the token source refreshes expired access tokens.
type SpotifyService struct {
	config      *oauth2.Config
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	baseURL     string
	ownedOnly   bool
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.UseToken(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.Exchange(ctx, authCode)
		if err != nil {
			return err
		}
		s.UseToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// UseToken installs a token (typically loaded from disk) for subsequent requests.
func (s *SpotifyService) UseToken(ctx context.Context, token *oauth2.Token) {
	s.tokenSource = s.config.TokenSource(ctx, token)
	s.httpClient = oauth2.NewClient(ctx, s.tokenSource)
}

// Token returns the current token, refreshing it first when it has expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.tokenSource == nil {
		return nil, shared.ErrNotAuthenticated
	}
	token, err := s.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// doRequest performs an authenticated GET against the Spotify API.
//
// endpoint is either a path relative to the API root or an absolute "next" URL returned by a paging object.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.tokenSource == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := endpoint
	if u, err := url.Parse(endpoint); err != nil || !u.IsAbs() {
		apiURL = s.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: spotify request failed: %v", shared.ClassifyTransport(err), err)
	}
	defer resp.Body.Close()

	if err := shared.ClassifyStatus(resp.StatusCode); err != nil {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("%w: spotify status %d: %s", err, resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("%w: spotify status %d", err, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves every playlist followed or owned by the current user.
func (s *SpotifyService) UserPlaylists(ctx context.Context) ([]SpotifySimplePlaylist, error) {
	var all []SpotifySimplePlaylist
	next := fmt.Sprintf("/me/playlists?limit=%d", playlistPageSize)

	for next != "" {
		var response page[*SpotifySimplePlaylist]
		if err := s.doRequest(ctx, next, &response); err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			if sp != nil {
				all = append(all, *sp)
			}
		}

		next = ""
		if response.Next != nil {
			next = *response.Next
		}
	}

	return all, nil
}

// SavedTrackCount returns the number of tracks in the user's library.
func (s *SpotifyService) SavedTrackCount(ctx context.Context) (int, error) {
	var response page[SpotifyPlaylistItem]
	if err := s.doRequest(ctx, "/me/tracks?limit=1", &response); err != nil {
		return 0, err
	}
	return response.Total, nil
}

// ListPlaylists returns the user's playlists followed by the liked-songs collection.
//
// With owned-only enabled, playlists whose owner matches neither the user's id nor display name are dropped.
func (s *SpotifyService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return nil, err
	}

	playlists, err := s.UserPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Playlist, 0, len(playlists)+1)
	for _, sp := range playlists {
		if s.ownedOnly && !ownedBy(sp.Owner, user) {
			continue
		}

		owner := sp.Owner.DisplayName
		if owner == "" {
			owner = sp.Owner.ID
		}
		out = append(out, models.Playlist{
			ID:         sp.ID,
			Name:       sp.Name,
			Owner:      owner,
			TrackCount: sp.Tracks.Total,
		})
	}

	liked, err := s.SavedTrackCount(ctx)
	if err != nil {
		return nil, err
	}

	display := user.DisplayName
	if display == "" {
		display = user.ID
	}
	out = append(out, models.Playlist{
		ID:         models.LikedSongsID,
		Name:       LikedSongsName,
		Owner:      display,
		Liked:      true,
		TrackCount: liked,
	})

	return out, nil
}

// ListTracks streams the tracks of a playlist, or of the saved-tracks library for [models.LikedSongsID].
//
// Local files and items without a track are skipped.
func (s *SpotifyService) ListTracks(ctx context.Context, playlistID string) iter.Seq2[models.Track, error] {
	first := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), trackPageSize)
	if playlistID == models.LikedSongsID {
		first = fmt.Sprintf("/me/tracks?limit=%d", savedPageSize)
	}

	return func(yield func(models.Track, error) bool) {
		next := first
		for next != "" {
			var response page[SpotifyPlaylistItem]
			if err := s.doRequest(ctx, next, &response); err != nil {
				yield(models.Track{}, err)
				return
			}

			for _, item := range response.Items {
				track, ok := toTrack(item.Track)
				if !ok {
					continue
				}
				if !yield(track, nil) {
					return
				}
			}

			next = ""
			if response.Next != nil {
				next = *response.Next
			}
		}
	}
}

func ownedBy(owner Owner, user *SpotifyUser) bool {
	if owner.ID != "" && owner.ID == user.ID {
		return true
	}
	return owner.DisplayName != "" && (owner.DisplayName == user.DisplayName || owner.DisplayName == user.ID)
}

func toTrack(st *SpotifyTrack) (models.Track, bool) {
	if st == nil || st.ID == nil || *st.ID == "" || st.IsLocal {
		return models.Track{}, false
	}

	artists := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	return models.Track{
		SourceID: *st.ID,
		Title:    st.Name,
		Artists:  artists,
		Album:    st.Album.Name,
		Duration: st.DurationMS / 1000,
	}, true
}
