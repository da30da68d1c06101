package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/shared"
)

func newTestYouTube(t *testing.T, handler http.Handler) *YouTubeService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewYouTubeService(server.URL)
	if err := svc.Authenticate(context.Background(), map[string]string{"auth_file": "browser.json"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return svc
}

func TestYouTubeService(t *testing.T) {
	t.Run("NewYouTubeService", func(t *testing.T) {
		t.Run("creates service with default URL", func(t *testing.T) {
			if svc := NewYouTubeService(""); svc.baseURL != defaultYTBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultYTBaseURL, svc.baseURL)
			}
		})

		t.Run("trims trailing slash", func(t *testing.T) {
			if svc := NewYouTubeService("http://localhost:9000/"); svc.baseURL != "http://localhost:9000" {
				t.Errorf("unexpected baseURL %s", svc.baseURL)
			}
		})

		t.Run("search limit", func(t *testing.T) {
			svc := NewYouTubeService("")
			svc.SetSearchLimit(0)
			if svc.searchLimit != defaultSearchLimit {
				t.Errorf("non-positive limit should be ignored, got %d", svc.searchLimit)
			}
			svc.SetSearchLimit(10)
			if svc.searchLimit != 10 {
				t.Errorf("expected 10, got %d", svc.searchLimit)
			}
		})
	})

	t.Run("Name", func(t *testing.T) {
		if svc := NewYouTubeService(""); svc.Name() != "YouTube Music" {
			t.Errorf("expected name to be 'YouTube Music', got %s", svc.Name())
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		svc := NewYouTubeService("")

		if err := svc.Authenticate(context.Background(), map[string]string{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if err := svc.Authenticate(context.Background(), map[string]string{"auth_file": "/path/to/browser.json"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.authFile != "/path/to/browser.json" {
			t.Errorf("unexpected authFile %s", svc.authFile)
		}
	})

	t.Run("sends auth header", func(t *testing.T) {
		var header string
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header = r.Header.Get("X-Auth-File")
			fmt.Fprint(w, `[]`)
		}))

		if _, err := svc.LibraryPlaylists(context.Background()); err != nil {
			t.Fatalf("LibraryPlaylists failed: %v", err)
		}
		if header != "browser.json" {
			t.Errorf("expected X-Auth-File header, got %q", header)
		}
	})
}

func TestYouTubeFindOrCreatePlaylist(t *testing.T) {
	t.Run("returns existing playlist by exact title", func(t *testing.T) {
		created := false
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/api/library/playlists":
				fmt.Fprint(w, `[
					{"playlistId": "PLother", "title": "spot road trip"},
					{"playlistId": "PLroad", "title": "Spot Road Trip"},
					{"playlistId": "PLdupe", "title": "Spot Road Trip"}
				]`)
			case r.Method == http.MethodPost:
				created = true
			}
		}))

		id, err := svc.FindOrCreatePlaylist(context.Background(), "Spot Road Trip", "desc")
		if err != nil {
			t.Fatalf("FindOrCreatePlaylist failed: %v", err)
		}
		if id != "PLroad" {
			t.Errorf("expected first exact match PLroad, got %s", id)
		}
		if created {
			t.Error("should not create when a playlist exists")
		}
	})

	t.Run("creates private playlist", func(t *testing.T) {
		var body map[string]string
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/api/library/playlists":
				fmt.Fprint(w, `[]`)
			case r.Method == http.MethodPost && r.URL.Path == "/api/playlists":
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("bad body: %v", err)
				}
				fmt.Fprint(w, `{"playlist_id": "PLnew"}`)
			default:
				http.NotFound(w, r)
			}
		}))

		id, err := svc.FindOrCreatePlaylist(context.Background(), "Liked Songs - Spot", "Migrated from Spotify Liked Songs")
		if err != nil {
			t.Fatalf("FindOrCreatePlaylist failed: %v", err)
		}
		if id != "PLnew" {
			t.Errorf("expected PLnew, got %s", id)
		}

		want := map[string]string{
			"title":          "Liked Songs - Spot",
			"description":    "Migrated from Spotify Liked Songs",
			"privacy_status": "PRIVATE",
		}
		if !reflect.DeepEqual(body, want) {
			t.Errorf("unexpected create body %v", body)
		}
	})

	t.Run("empty playlist id is an error", func(t *testing.T) {
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				fmt.Fprint(w, `[]`)
				return
			}
			fmt.Fprint(w, `{}`)
		}))

		if _, err := svc.FindOrCreatePlaylist(context.Background(), "x", ""); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestYouTubeListPlaylistTrackIDs(t *testing.T) {
	svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/playlists/PLroad" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"id": "PLroad", "tracks": [{"videoId": "v1"}, {"videoId": ""}, {"videoId": "v2"}, {"videoId": "v1"}]}`)
	}))

	ids, err := svc.ListPlaylistTrackIDs(context.Background(), "PLroad")
	if err != nil {
		t.Fatalf("ListPlaylistTrackIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %v", ids)
	}
	for _, id := range []string{"v1", "v2"} {
		if _, ok := ids[id]; !ok {
			t.Errorf("missing %s", id)
		}
	}

	if _, err := svc.ListPlaylistTrackIDs(context.Background(), "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestYouTubeSearch(t *testing.T) {
	var query map[string]string
	svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query = map[string]string{"q": q.Get("q"), "filter": q.Get("filter"), "limit": q.Get("limit")}
		fmt.Fprint(w, `[
			{"videoId": "v1", "title": "Hyperballad", "artists": [{"name": "Björk"}], "album": {"name": "Post"}, "duration_seconds": 321},
			{"videoId": "v2", "title": "Hyperballad (Live)", "artists": [{"name": "Björk"}, {"name": ""}], "album": null, "duration": "5:40"},
			{"videoId": "", "title": "Video without id"}
		]`)
	}))

	candidates, err := svc.Search(context.Background(), "Hyperballad Björk")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	wantQuery := map[string]string{"q": "Hyperballad Björk", "filter": "songs", "limit": "5"}
	if !reflect.DeepEqual(query, wantQuery) {
		t.Errorf("unexpected query %v", query)
	}

	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if c := candidates[0]; c.ID != "v1" || c.Album != "Post" || c.Duration != 321 {
		t.Errorf("unexpected candidate %+v", c)
	}
	if c := candidates[1]; c.Duration != 340 || c.Album != "" || len(c.Artists) != 1 {
		t.Errorf("unexpected candidate %+v", c)
	}
}

func TestYouTubeAddTracks(t *testing.T) {
	t.Run("posts video ids", func(t *testing.T) {
		var body struct {
			VideoIDs []string `json:"video_ids"`
		}
		var path string
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("bad body: %v", err)
			}
			fmt.Fprint(w, `{"status": "ok"}`)
		}))

		if err := svc.AddTracks(context.Background(), "PLroad", []string{"v1", "v2"}); err != nil {
			t.Fatalf("AddTracks failed: %v", err)
		}
		if path != "/api/playlists/PLroad/items" {
			t.Errorf("unexpected path %s", path)
		}
		if !reflect.DeepEqual(body.VideoIDs, []string{"v1", "v2"}) {
			t.Errorf("unexpected ids %v", body.VideoIDs)
		}
	})

	t.Run("rejects oversized batch without a request", func(t *testing.T) {
		called := false
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		ids := make([]string, shared.MaxAddBatch+1)
		for i := range ids {
			ids[i] = fmt.Sprintf("v%d", i)
		}
		if err := svc.AddTracks(context.Background(), "PL", ids); !errors.Is(err, shared.ErrBatchTooLarge) {
			t.Errorf("expected ErrBatchTooLarge, got %v", err)
		}
		if called {
			t.Error("proxy should not be called")
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		svc := NewYouTubeService("http://127.0.0.1:1")
		if err := svc.AddTracks(context.Background(), "PL", nil); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("failure carries taxonomy and detail", func(t *testing.T) {
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"detail": "HTTP 409: Conflict"}`)
		}))

		err := svc.AddTracks(context.Background(), "PL", []string{"v1"})
		if !errors.Is(err, shared.ErrAddFailed) || !errors.Is(err, shared.ErrTransient) {
			t.Errorf("expected ErrAddFailed wrapping ErrTransient, got %v", err)
		}
		if err != nil && !strings.Contains(err.Error(), "HTTP 409") {
			t.Errorf("expected proxy detail in error: %v", err)
		}
	})
}

func TestYouTubeHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"healthy", http.StatusOK, `{"status": "ok", "authenticated": true}`, nil},
		{"healthy without auth field", http.StatusOK, `{"status": "ok"}`, nil},
		{"credentials rejected", http.StatusOK, `{"status": "ok", "authenticated": false}`, shared.ErrAuthFailed},
		{"proxy down", http.StatusServiceUnavailable, `{"detail": "starting"}`, shared.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			err := svc.Health(context.Background())
			if tt.wantErr == nil && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		if err := NewYouTubeService(server.URL).Health(context.Background()); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := svc.Health(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestYouTubeTransportErrors(t *testing.T) {
	dropConnection := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		conn.Close()
	})

	t.Run("dropped connection is transient", func(t *testing.T) {
		svc := newTestYouTube(t, dropConnection)

		_, err := svc.Search(context.Background(), "Hyperballad Björk")
		if !errors.Is(err, shared.ErrTransient) {
			t.Errorf("Search: expected ErrTransient, got %v", err)
		}
		if shared.IsFatal(err) {
			t.Errorf("Search: dropped connection should not be fatal: %v", err)
		}

		err = svc.AddTracks(context.Background(), "PL", []string{"v1"})
		if !errors.Is(err, shared.ErrTransient) {
			t.Errorf("AddTracks: expected ErrTransient, got %v", err)
		}
		if shared.IsFatal(err) {
			t.Errorf("AddTracks: dropped connection should not be fatal: %v", err)
		}
	})

	t.Run("refused connection is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		_, err := NewYouTubeService(server.URL).Search(context.Background(), "Hyperballad")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if !shared.IsFatal(err) {
			t.Errorf("refused connection should be fatal: %v", err)
		}
	})
}

func TestYouTubeSetupAuth(t *testing.T) {
	var body map[string]string
	svc := newTestYouTube(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/setup" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		fmt.Fprint(w, `{"status": "ok"}`)
	}))

	if err := svc.SetupAuth(context.Background(), "cookie: a=b\nx-goog-authuser: 0"); err != nil {
		t.Fatalf("SetupAuth failed: %v", err)
	}
	if body["filepath"] != "browser.json" || !strings.Contains(body["headers_raw"], "cookie: a=b") {
		t.Errorf("unexpected body %v", body)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3:25", 205},
		{"1:02:03", 3723},
		{"45", 45},
		{"", 0},
		{"live", 0},
		{"3:-1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseClock(tt.in); got != tt.want {
				t.Errorf("parseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
