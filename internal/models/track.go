package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// LikedSongsID is the source id of the synthetic playlist holding the user's saved tracks.
const LikedSongsID = "liked_songs"

// Track is a source catalog track. Duration is in seconds, zero when unknown.
type Track struct {
	SourceID string   `json:"source_id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album,omitempty"`
	Duration int      `json:"duration,omitempty"`
}

// PrimaryArtist returns the first listed artist or an empty string.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// String renders "Artist - Title" for logs and reports.
func (t Track) String() string {
	if artist := t.PrimaryArtist(); artist != "" {
		return artist + " - " + t.Title
	}
	return t.Title
}

// Playlist is a source catalog playlist.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner,omitempty"`
	Liked      bool   `json:"liked,omitempty"`
	TrackCount int    `json:"track_count"`
}

// Candidate is one target catalog search result, in provider order.
type Candidate struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album,omitempty"`
	Duration int      `json:"duration,omitempty"`
}

// TrackStatus tags the classification of a track.
//
// StatusError is an outcome only and is never persisted.
type TrackStatus string

const (
	StatusFound    TrackStatus = "found"
	StatusExists   TrackStatus = "exists"
	StatusCached   TrackStatus = "cached"
	StatusSkipped  TrackStatus = "skipped"
	StatusNotFound TrackStatus = "not_found"
	StatusError    TrackStatus = "error"
)

// Valid reports whether s may appear in the state file.
func (s TrackStatus) Valid() bool {
	switch s {
	case StatusFound, StatusExists, StatusCached, StatusSkipped, StatusNotFound:
		return true
	}
	return false
}

// Terminal reports whether a record with this status is reused without searching.
func (s TrackStatus) Terminal() bool {
	switch s {
	case StatusFound, StatusExists, StatusCached, StatusSkipped:
		return true
	}
	return false
}

// Icon returns the glyph shown next to a track in progress output.
func (s TrackStatus) Icon() string {
	switch s {
	case StatusFound:
		return "✅"
	case StatusNotFound:
		return "❌"
	case StatusSkipped:
		return "⏭️"
	case StatusExists:
		return "📋"
	case StatusCached:
		return "🔄"
	case StatusError:
		return "⚠️"
	default:
		return "•"
	}
}

// PlaylistRecord is the persisted mapping from a source playlist to its target playlist.
type PlaylistRecord struct {
	TargetID  string `json:"target_id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// TrackRecord is the persisted migration status of one track within one playlist.
type TrackRecord struct {
	Status        TrackStatus `json:"status"`
	TargetTrackID string      `json:"target_track_id,omitempty"`
	Timestamp     float64     `json:"timestamp"`
	Title         string      `json:"title,omitempty"`
	Artists       []string    `json:"artists,omitempty"`
}

// NewTrackRecord builds a record for track stamped with now.
//
// An empty artist list is stored as nil, the form it takes after a round trip through the state file.
func NewTrackRecord(status TrackStatus, track Track, targetID string, now time.Time) TrackRecord {
	rec := TrackRecord{
		Status:        status,
		TargetTrackID: targetID,
		Timestamp:     float64(now.Unix()),
		Title:         track.Title,
	}
	if len(track.Artists) > 0 {
		rec.Artists = slices.Clone(track.Artists)
	}
	return rec
}

// FailedTrackEntry is one line of the failed-track report.
type FailedTrackEntry struct {
	PlaylistID    string   `json:"playlist_id"`
	SourceTrackID string   `json:"source_track_id"`
	Title         string   `json:"title"`
	Artists       []string `json:"artists"`
}

// TrackKey joins a playlist id and a source track id into the state file key.
func TrackKey(playlistID, sourceTrackID string) string {
	return playlistID + ":" + sourceTrackID
}

// SplitTrackKey is the inverse of [TrackKey]. Playlist ids never contain a colon.
func SplitTrackKey(key string) (playlistID, sourceTrackID string, err error) {
	pid, tid, ok := strings.Cut(key, ":")
	if !ok || pid == "" || tid == "" {
		return "", "", fmt.Errorf("malformed track key %q", key)
	}
	return pid, tid, nil
}

// TrackOutcome is the per-run classification of a single track.
type TrackOutcome struct {
	Track         Track
	Status        TrackStatus
	TargetTrackID string
	Err           error
}
