package models

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a [MigrationJob].
type JobStatus string

const (
	JobRunning     JobStatus = "running"
	JobCompleted   JobStatus = "completed"
	JobSkipped     JobStatus = "skipped"
	JobFailed      JobStatus = "failed"
	JobInterrupted JobStatus = "interrupted"
)

// JobKind tells which command produced a [MigrationJob].
type JobKind string

const (
	JobMigrate     JobKind = "migrate"
	JobRetryFailed JobKind = "retry_failed"
)

// MigrationJob records one pass of the engine over one playlist.
//
// Jobs form the run history shown by the history command; the JSON state file remains the source of truth.
type MigrationJob struct {
	base

	RunID              string
	Kind               JobKind
	SourcePlaylistID   string
	SourcePlaylistName string
	TargetPlaylistID   string
	Status             JobStatus
	TracksTotal        int
	TracksAdded        int
	TracksExisting     int
	TracksFailed       int
	ErrorMessage       string
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

// NewMigrationJob creates a running job for a playlist.
func NewMigrationJob(runID string, kind JobKind, playlist Playlist) *MigrationJob {
	now := time.Now()
	return &MigrationJob{
		base:               newBase(0),
		RunID:              runID,
		Kind:               kind,
		SourcePlaylistID:   playlist.ID,
		SourcePlaylistName: playlist.Name,
		Status:             JobRunning,
		StartedAt:          &now,
	}
}

// Finish moves the job to a final status, recording err when present.
func (j *MigrationJob) Finish(status JobStatus, err error) {
	now := time.Now()
	j.Status = status
	j.CompletedAt = &now
	if err != nil {
		j.ErrorMessage = err.Error()
	}
}

// Duration reports how long the job ran, or zero while it is still running.
func (j *MigrationJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// Validate implements [Model].
func (j *MigrationJob) Validate() error {
	if j.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if j.SourcePlaylistID == "" {
		return fmt.Errorf("source playlist id is required")
	}
	switch j.Status {
	case JobRunning, JobCompleted, JobSkipped, JobFailed, JobInterrupted:
	default:
		return fmt.Errorf("invalid job status %q", j.Status)
	}
	if j.TracksTotal < 0 || j.TracksAdded < 0 || j.TracksExisting < 0 || j.TracksFailed < 0 {
		return fmt.Errorf("track counts must not be negative")
	}
	return nil
}
