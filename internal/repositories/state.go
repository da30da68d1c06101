package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// StateStore is the durable record of playlist and per-track migration progress.
//
// The whole state lives in memory and is written to a single JSON document by [StateStore.Save].
// Callers enforce the status transition rules; the store only persists what it is given.
// A StateStore is not safe for concurrent use.
type StateStore struct {
	path      string
	playlists map[string]models.PlaylistRecord
	tracks    map[string]models.TrackRecord
}

// stateDocument is the on-disk layout.
type stateDocument struct {
	Playlists          map[string]models.PlaylistRecord `json:"playlists"`
	Tracks             map[string]models.TrackRecord    `json:"tracks"`
	CompletedPlaylists []string                         `json:"completed_playlists"`
}

// NewStateStore creates an empty store backed by path. Nothing is read until [StateStore.Load].
func NewStateStore(path string) *StateStore {
	return &StateStore{
		path:      path,
		playlists: make(map[string]models.PlaylistRecord),
		tracks:    make(map[string]models.TrackRecord),
	}
}

// OpenStateStore creates a store for path and loads it.
func OpenStateStore(path string) (*StateStore, error) {
	s := NewStateStore(path)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the canonical state file location.
func (s *StateStore) Path() string {
	return s.path
}

// Load replaces the in-memory state with the contents of the state file.
//
// A missing file yields an empty state. A file that cannot be parsed, or that holds unknown statuses or malformed keys,
// returns [shared.ErrStateCorruption] and leaves the in-memory state untouched.
func (s *StateStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.playlists = make(map[string]models.PlaylistRecord)
			s.tracks = make(map[string]models.TrackRecord)
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrStateCorruption, s.path, err)
	}

	playlists := doc.Playlists
	if playlists == nil {
		playlists = make(map[string]models.PlaylistRecord)
	}
	tracks := doc.Tracks
	if tracks == nil {
		tracks = make(map[string]models.TrackRecord)
	}

	for key, rec := range tracks {
		if _, _, err := models.SplitTrackKey(key); err != nil {
			return fmt.Errorf("%w: %s: %v", shared.ErrStateCorruption, s.path, err)
		}
		if !rec.Status.Valid() {
			return fmt.Errorf("%w: %s: track %s has unknown status %q", shared.ErrStateCorruption, s.path, key, rec.Status)
		}
	}

	for _, id := range doc.CompletedPlaylists {
		if rec, ok := playlists[id]; ok {
			rec.Completed = true
			playlists[id] = rec
		}
	}

	s.playlists = playlists
	s.tracks = tracks
	return nil
}

// Save writes the full state atomically: a temporary file in the same directory is synced and renamed over the
// canonical file, so readers only ever see a complete document.
func (s *StateStore) Save() error {
	data, err := json.MarshalIndent(s.document(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

func (s *StateStore) document() stateDocument {
	completed := make([]string, 0)
	for id, rec := range s.playlists {
		if rec.Completed {
			completed = append(completed, id)
		}
	}
	slices.Sort(completed)

	return stateDocument{
		Playlists:          s.playlists,
		Tracks:             s.tracks,
		CompletedPlaylists: completed,
	}
}

// GetTrackStatus returns the record for a track within a playlist.
func (s *StateStore) GetTrackStatus(playlistID, sourceTrackID string) (models.TrackRecord, bool) {
	rec, ok := s.tracks[models.TrackKey(playlistID, sourceTrackID)]
	return rec, ok
}

// SetTrackStatus upserts the record for a track within a playlist.
func (s *StateStore) SetTrackStatus(playlistID, sourceTrackID string, rec models.TrackRecord) {
	s.tracks[models.TrackKey(playlistID, sourceTrackID)] = rec
}

// DeleteTrackStatus removes a track record, returning it to the unresolved state.
func (s *StateStore) DeleteTrackStatus(playlistID, sourceTrackID string) {
	delete(s.tracks, models.TrackKey(playlistID, sourceTrackID))
}

// GetPlaylistRecord returns the record for a source playlist.
func (s *StateStore) GetPlaylistRecord(playlistID string) (models.PlaylistRecord, bool) {
	rec, ok := s.playlists[playlistID]
	return rec, ok
}

// SetPlaylistRecord upserts the record for a source playlist.
func (s *StateStore) SetPlaylistRecord(playlistID string, rec models.PlaylistRecord) {
	s.playlists[playlistID] = rec
}

// IsPlaylistCompleted reports whether every track of the playlist reached a terminal status in a previous run.
func (s *StateStore) IsPlaylistCompleted(playlistID string) bool {
	return s.playlists[playlistID].Completed
}

// ResetPlaylist removes the playlist record and all of its track records. It returns the number of tracks removed.
func (s *StateStore) ResetPlaylist(playlistID string) int {
	delete(s.playlists, playlistID)

	removed := 0
	for key := range s.tracks {
		if pid, _, err := models.SplitTrackKey(key); err == nil && pid == playlistID {
			delete(s.tracks, key)
			removed++
		}
	}
	return removed
}

// PlaylistIDs returns the ids of every playlist with a record, sorted.
func (s *StateStore) PlaylistIDs() []string {
	return slices.Sorted(maps.Keys(s.playlists))
}

// Tracks returns the track records of one playlist keyed by source track id.
func (s *StateStore) Tracks(playlistID string) map[string]models.TrackRecord {
	out := make(map[string]models.TrackRecord)
	for key, rec := range s.tracks {
		if pid, tid, err := models.SplitTrackKey(key); err == nil && pid == playlistID {
			out[tid] = rec
		}
	}
	return out
}

// StatusCounts tallies the track records of one playlist by status.
func (s *StateStore) StatusCounts(playlistID string) map[models.TrackStatus]int {
	counts := make(map[models.TrackStatus]int)
	for _, rec := range s.Tracks(playlistID) {
		counts[rec.Status]++
	}
	return counts
}

// FailedTracks derives the failed-track report from every not_found record, ordered by key.
func (s *StateStore) FailedTracks() []models.FailedTrackEntry {
	entries := make([]models.FailedTrackEntry, 0)
	for _, key := range slices.Sorted(maps.Keys(s.tracks)) {
		rec := s.tracks[key]
		if rec.Status != models.StatusNotFound {
			continue
		}
		pid, tid, err := models.SplitTrackKey(key)
		if err != nil {
			continue
		}
		entries = append(entries, models.FailedTrackEntry{
			PlaylistID:    pid,
			SourceTrackID: tid,
			Title:         rec.Title,
			Artists:       rec.Artists,
		})
	}
	return entries
}
