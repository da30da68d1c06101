package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
)

// HistoryRecorder implements tasks.JobRecorder using [MigrationRepository].
//
// The engine starts a job when it begins a playlist and finishes it once the playlist has been processed,
// so a crashed run leaves rows in the running state until [HistoryRecorder.MarkInterrupted] sweeps them.
type HistoryRecorder struct {
	repo *MigrationRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repository
func NewHistoryRecorder(repo *MigrationRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// StartJob persists a freshly created running job.
func (h *HistoryRecorder) StartJob(job *models.MigrationJob) error {
	return h.repo.Create(job)
}

// FinishJob persists the final counts and status of a job.
func (h *HistoryRecorder) FinishJob(job *models.MigrationJob) error {
	if job.ID() == "" {
		return h.repo.Create(job)
	}
	return h.repo.Update(job)
}

// Recent returns up to limit jobs, newest first.
func (h *HistoryRecorder) Recent(limit int) ([]*models.MigrationJob, error) {
	return h.repo.List(map[string]any{"limit": limit})
}

// MarkInterrupted moves every job still marked running to interrupted and returns how many were changed.
func (h *HistoryRecorder) MarkInterrupted() (int64, error) {
	return markInterrupted(h.repo.db, time.Now())
}

func markInterrupted(db *sql.DB, now time.Time) (int64, error) {
	result, err := db.Exec(
		`UPDATE migration_jobs SET status = ?, completed_at = ?, updated_at = ?
		 WHERE status = ? AND deleted_at IS NULL`,
		string(models.JobInterrupted), now, now, string(models.JobRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted jobs: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}
