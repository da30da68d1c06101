// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// FakeSource is an in-memory [services.SourceCatalog].
type FakeSource struct {
	Playlists []models.Playlist
	Tracks    map[string][]models.Track // keyed by playlist id
	ListErr   error
	TracksErr error
	Listings  int // number of ListTracks iterations started
}

func (f *FakeSource) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return slices.Clone(f.Playlists), nil
}

func (f *FakeSource) ListTracks(ctx context.Context, playlistID string) iter.Seq2[models.Track, error] {
	return func(yield func(models.Track, error) bool) {
		f.Listings++
		if f.TracksErr != nil {
			yield(models.Track{}, f.TracksErr)
			return
		}
		for _, t := range f.Tracks[playlistID] {
			if !yield(t, nil) {
				return
			}
		}
	}
}

// AddPlaylist registers a playlist and its tracks.
func (f *FakeSource) AddPlaylist(pl models.Playlist, tracks []models.Track) {
	if f.Tracks == nil {
		f.Tracks = make(map[string][]models.Track)
	}
	pl.TrackCount = len(tracks)
	f.Playlists = append(f.Playlists, pl)
	f.Tracks[pl.ID] = tracks
}

// FakeTarget is an in-memory [services.TargetCatalog] that records every call.
//
// Search answers from Results keyed by exact query; unknown queries return no candidates.
// SearchErr and AddErr receive the 1-based call number and may inject failures.
type FakeTarget struct {
	mu sync.Mutex

	Results   map[string][]models.Candidate
	SearchErr func(n int, query string) error
	AddErr    func(n int, ids []string) error
	CreateErr error
	ListErr   error

	Searches int
	AddCalls [][]string // every AddTracks attempt, including failed ones
	Created  []string   // names of playlists created

	names  map[string]string   // name -> playlist id
	tracks map[string][]string // playlist id -> video ids in insertion order
}

// NewFakeTarget creates an empty FakeTarget.
func NewFakeTarget() *FakeTarget {
	return &FakeTarget{
		Results: make(map[string][]models.Candidate),
		names:   make(map[string]string),
		tracks:  make(map[string][]string),
	}
}

// Seed creates a playlist that already holds ids and returns its id.
func (f *FakeTarget) Seed(name string, ids ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.create(name)
	f.tracks[id] = append(f.tracks[id], ids...)
	return id
}

func (f *FakeTarget) create(name string) string {
	id := fmt.Sprintf("yt-pl-%d", len(f.names)+1)
	f.names[name] = id
	f.tracks[id] = nil
	return id
}

func (f *FakeTarget) FindOrCreatePlaylist(ctx context.Context, name, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	if id, ok := f.names[name]; ok {
		return id, nil
	}
	f.Created = append(f.Created, name)
	return f.create(name), nil
}

func (f *FakeTarget) ListPlaylistTrackIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	ids := make(map[string]struct{}, len(f.tracks[playlistID]))
	for _, id := range f.tracks[playlistID] {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *FakeTarget) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Searches++
	if f.SearchErr != nil {
		if err := f.SearchErr(f.Searches, query); err != nil {
			return nil, err
		}
	}
	return slices.Clone(f.Results[query]), nil
}

func (f *FakeTarget) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ids) > shared.MaxAddBatch {
		return fmt.Errorf("%w: %d ids", shared.ErrBatchTooLarge, len(ids))
	}
	f.AddCalls = append(f.AddCalls, slices.Clone(ids))
	if f.AddErr != nil {
		if err := f.AddErr(len(f.AddCalls), ids); err != nil {
			return err
		}
	}
	f.tracks[playlistID] = append(f.tracks[playlistID], ids...)
	return nil
}

// Tracks returns the video ids of a playlist in insertion order.
func (f *FakeTarget) Tracks(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tracks[playlistID])
}

// PlaylistID returns the id of the playlist called name, or an empty string.
func (f *FakeTarget) PlaylistID(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[name]
}

// MakeTracks builds n distinct tracks with ids prefix-1..prefix-n.
func MakeTracks(prefix string, n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			SourceID: fmt.Sprintf("%s-%d", prefix, i+1),
			Title:    fmt.Sprintf("Song %s %d", prefix, i+1),
			Artists:  []string{fmt.Sprintf("Artist %d", i+1)},
			Album:    "Album " + prefix,
			Duration: 180 + i%60,
		}
	}
	return tracks
}

// CandidateFor returns a candidate that matches track exactly.
func CandidateFor(track models.Track, id string) models.Candidate {
	return models.Candidate{
		ID:       id,
		Title:    track.Title,
		Artists:  slices.Clone(track.Artists),
		Album:    track.Album,
		Duration: track.Duration,
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
