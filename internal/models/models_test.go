package models

import (
	"errors"
	"testing"
	"time"
)

func TestTrackKey(t *testing.T) {
	key := TrackKey("37i9dQZF1DXcBWIGoYBM5M", "4uLU6hMCjMI75M1A2tKUQC")
	if key != "37i9dQZF1DXcBWIGoYBM5M:4uLU6hMCjMI75M1A2tKUQC" {
		t.Fatalf("unexpected key %s", key)
	}

	pid, tid, err := SplitTrackKey(key)
	if err != nil {
		t.Fatalf("SplitTrackKey failed: %v", err)
	}
	if pid != "37i9dQZF1DXcBWIGoYBM5M" || tid != "4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("got %s/%s", pid, tid)
	}

	for _, bad := range []string{"nocolon", ":track", "playlist:"} {
		if _, _, err := SplitTrackKey(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestTrackStatus(t *testing.T) {
	tests := []struct {
		status   TrackStatus
		valid    bool
		terminal bool
	}{
		{StatusFound, true, true},
		{StatusExists, true, true},
		{StatusCached, true, true},
		{StatusSkipped, true, true},
		{StatusNotFound, true, false},
		{StatusError, false, false},
		{TrackStatus("pending"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
			if tt.status.Icon() == "" {
				t.Error("Icon() should never be empty")
			}
		})
	}
}

func TestTrack(t *testing.T) {
	track := Track{SourceID: "1", Title: "Hyperballad", Artists: []string{"Björk"}}
	if track.PrimaryArtist() != "Björk" {
		t.Errorf("unexpected primary artist %s", track.PrimaryArtist())
	}
	if track.String() != "Björk - Hyperballad" {
		t.Errorf("unexpected string %s", track.String())
	}

	bare := Track{Title: "Untitled"}
	if bare.PrimaryArtist() != "" || bare.String() != "Untitled" {
		t.Errorf("unexpected rendering for track without artists: %q", bare.String())
	}

	now := time.Unix(1700000000, 0)
	rec := NewTrackRecord(StatusFound, track, "vid1", now)
	if rec.Timestamp != 1700000000 || rec.TargetTrackID != "vid1" || rec.Title != "Hyperballad" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestMigrationJob(t *testing.T) {
	job := NewMigrationJob("run-1", JobMigrate, Playlist{ID: "pl1", Name: "Road Trip"})

	if job.Status != JobRunning || job.StartedAt == nil {
		t.Fatalf("new job should be running with a start time: %+v", job)
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("new job should be valid: %v", err)
	}
	if job.Duration() != 0 {
		t.Error("running job should have zero duration")
	}

	job.Finish(JobFailed, errors.New("boom"))
	if job.Status != JobFailed || job.ErrorMessage != "boom" || job.CompletedAt == nil {
		t.Errorf("unexpected finished job %+v", job)
	}

	tests := []struct {
		name   string
		modify func(*MigrationJob)
	}{
		{"missing run id", func(j *MigrationJob) { j.RunID = "" }},
		{"missing playlist", func(j *MigrationJob) { j.SourcePlaylistID = "" }},
		{"bad status", func(j *MigrationJob) { j.Status = "paused" }},
		{"negative count", func(j *MigrationJob) { j.TracksAdded = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewMigrationJob("run-1", JobMigrate, Playlist{ID: "pl1"})
			tt.modify(j)
			if err := j.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
