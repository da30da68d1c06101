package repositories

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

func seededStore(t *testing.T) *StateStore {
	t.Helper()

	s := NewStateStore(filepath.Join(t.TempDir(), "cache", "migration_state.json"))
	s.SetPlaylistRecord("pl1", models.PlaylistRecord{TargetID: "PLa", Name: "Spot Road Trip", Completed: true})
	s.SetPlaylistRecord("pl2", models.PlaylistRecord{TargetID: "PLb", Name: "Spot Focus"})
	s.SetTrackStatus("pl1", "t1", models.TrackRecord{Status: models.StatusFound, TargetTrackID: "v1", Timestamp: 1700000000})
	s.SetTrackStatus("pl1", "t2", models.TrackRecord{Status: models.StatusExists, TargetTrackID: "v2", Timestamp: 1700000001})
	s.SetTrackStatus("pl2", "t3", models.TrackRecord{
		Status:    models.StatusNotFound,
		Timestamp: 1700000002,
		Title:     "Obscure B-Side",
		Artists:   []string{"Nobody"},
	})
	s.SetTrackStatus("pl2", "t1", models.TrackRecord{Status: models.StatusFound, TargetTrackID: "v1", Timestamp: 1700000003})
	return s
}

func TestStateStoreRoundTrip(t *testing.T) {
	s := seededStore(t)
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := OpenStateStore(s.Path())
	if err != nil {
		t.Fatalf("OpenStateStore failed: %v", err)
	}

	if !reflect.DeepEqual(loaded.playlists, s.playlists) {
		t.Errorf("playlists differ:\n got  %+v\n want %+v", loaded.playlists, s.playlists)
	}
	if !reflect.DeepEqual(loaded.tracks, s.tracks) {
		t.Errorf("tracks differ:\n got  %+v\n want %+v", loaded.tracks, s.tracks)
	}
	if !loaded.IsPlaylistCompleted("pl1") || loaded.IsPlaylistCompleted("pl2") {
		t.Error("completion flags did not survive the round trip")
	}

	t.Run("track without artists", func(t *testing.T) {
		s := NewStateStore(filepath.Join(t.TempDir(), "migration_state.json"))
		track := models.Track{SourceID: "t9", Title: "Untitled", Artists: []string{}}
		s.SetTrackStatus("pl1", "t9", models.NewTrackRecord(models.StatusNotFound, track, "", time.Unix(1700000009, 0)))
		if err := s.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := OpenStateStore(s.Path())
		if err != nil {
			t.Fatalf("OpenStateStore failed: %v", err)
		}
		if !reflect.DeepEqual(loaded.tracks, s.tracks) {
			t.Errorf("tracks differ:\n got  %+v\n want %+v", loaded.tracks, s.tracks)
		}
	})
}

func TestStateStoreLoad(t *testing.T) {
	t.Run("missing file yields empty state", func(t *testing.T) {
		s, err := OpenStateStore(filepath.Join(t.TempDir(), "absent.json"))
		if err != nil {
			t.Fatalf("OpenStateStore failed: %v", err)
		}
		if len(s.PlaylistIDs()) != 0 || len(s.FailedTracks()) != 0 {
			t.Error("expected empty state")
		}
	})

	t.Run("completed_playlists list marks records", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		doc := `{
  "playlists": {"pl1": {"target_id": "PLa", "name": "Spot A", "completed": false}},
  "tracks": {},
  "completed_playlists": ["pl1", "unknown"]
}`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}

		s, err := OpenStateStore(path)
		if err != nil {
			t.Fatalf("OpenStateStore failed: %v", err)
		}
		if !s.IsPlaylistCompleted("pl1") {
			t.Error("pl1 should be completed")
		}
		if _, ok := s.GetPlaylistRecord("unknown"); ok {
			t.Error("completed list must not invent playlist records")
		}
	})

	corrupt := []struct {
		name string
		doc  string
	}{
		{"truncated json", `{"playlists": {"pl1": `},
		{"trailing garbage", `{"playlists": {}, "tracks": {}} garbage`},
		{"wrong type", `{"playlists": [], "tracks": {}}`},
		{"malformed key", `{"playlists": {}, "tracks": {"no-separator": {"status": "found", "timestamp": 1}}}`},
		{"unknown status", `{"playlists": {}, "tracks": {"pl1:t1": {"status": "pending", "timestamp": 1}}}`},
	}

	for _, tt := range corrupt {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(tt.doc), 0o644); err != nil {
				t.Fatal(err)
			}

			s := seededStore(t)
			s.path = path
			err := s.Load()
			if !errors.Is(err, shared.ErrStateCorruption) {
				t.Fatalf("expected ErrStateCorruption, got %v", err)
			}
			if _, ok := s.GetPlaylistRecord("pl1"); !ok {
				t.Error("failed load must leave in-memory state untouched")
			}
		})
	}
}

func TestStateStoreSave(t *testing.T) {
	t.Run("creates directory and leaves no temp files", func(t *testing.T) {
		s := seededStore(t)

		for range 3 {
			if err := s.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}

		entries, err := os.ReadDir(filepath.Dir(s.Path()))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name() != "migration_state.json" {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("expected only the state file, got %v", names)
		}
	})

	t.Run("replaces previous document", func(t *testing.T) {
		s := seededStore(t)
		if err := s.Save(); err != nil {
			t.Fatal(err)
		}

		s.ResetPlaylist("pl2")
		if err := s.Save(); err != nil {
			t.Fatal(err)
		}

		loaded, err := OpenStateStore(s.Path())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := loaded.GetPlaylistRecord("pl2"); ok {
			t.Error("pl2 should be gone after reset and save")
		}
	})

	t.Run("unwritable directory", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}

		s := NewStateStore(filepath.Join(blocker, "state.json"))
		if err := s.Save(); err == nil {
			t.Error("expected error when the parent path is a file")
		}
	})
}

func TestStateStoreRecords(t *testing.T) {
	s := seededStore(t)

	t.Run("track status is scoped per playlist", func(t *testing.T) {
		rec, ok := s.GetTrackStatus("pl2", "t1")
		if !ok || rec.Timestamp != 1700000003 {
			t.Errorf("unexpected record %+v", rec)
		}
		if _, ok := s.GetTrackStatus("pl3", "t1"); ok {
			t.Error("unexpected record for unknown playlist")
		}
	})

	t.Run("delete track status", func(t *testing.T) {
		s := seededStore(t)
		s.DeleteTrackStatus("pl2", "t3")
		if _, ok := s.GetTrackStatus("pl2", "t3"); ok {
			t.Error("record should be deleted")
		}
	})

	t.Run("tracks and counts", func(t *testing.T) {
		tracks := s.Tracks("pl1")
		if len(tracks) != 2 || tracks["t1"].TargetTrackID != "v1" {
			t.Errorf("unexpected tracks %+v", tracks)
		}

		counts := s.StatusCounts("pl2")
		if counts[models.StatusNotFound] != 1 || counts[models.StatusFound] != 1 {
			t.Errorf("unexpected counts %+v", counts)
		}
	})

	t.Run("playlist ids sorted", func(t *testing.T) {
		if got := s.PlaylistIDs(); !reflect.DeepEqual(got, []string{"pl1", "pl2"}) {
			t.Errorf("unexpected ids %v", got)
		}
	})

	t.Run("failed tracks", func(t *testing.T) {
		failed := s.FailedTracks()
		want := []models.FailedTrackEntry{{
			PlaylistID:    "pl2",
			SourceTrackID: "t3",
			Title:         "Obscure B-Side",
			Artists:       []string{"Nobody"},
		}}
		if !reflect.DeepEqual(failed, want) {
			t.Errorf("got %+v, want %+v", failed, want)
		}
	})

	t.Run("reset playlist", func(t *testing.T) {
		s := seededStore(t)
		if removed := s.ResetPlaylist("pl1"); removed != 2 {
			t.Errorf("expected 2 removed tracks, got %d", removed)
		}
		if _, ok := s.GetPlaylistRecord("pl1"); ok {
			t.Error("playlist record should be removed")
		}
		if _, ok := s.GetTrackStatus("pl2", "t1"); !ok {
			t.Error("other playlists must be untouched")
		}
	})
}
