package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// MigrationRepository implements models.Repository[*models.MigrationJob] for the run history.
//
// Handles job CRUD operations with soft delete support and run/status based queries.
type MigrationRepository struct {
	db *sql.DB
}

// NewMigrationRepository creates a new MigrationRepository with the given database connection
func NewMigrationRepository(db *sql.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

const migrationColumns = `
	id, sequence, run_id, kind, source_playlist_id, source_playlist_name,
	target_playlist_id, status, tracks_total, tracks_added, tracks_existing,
	tracks_failed, error_message, started_at, completed_at, created_at,
	updated_at, deleted_at`

// Create inserts a new job into the database with generated ID and sequence
func (r *MigrationRepository) Create(job *models.MigrationJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "migration_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO migration_jobs (
			id, sequence, run_id, kind, source_playlist_id, source_playlist_name,
			target_playlist_id, status, tracks_total, tracks_added, tracks_existing,
			tracks_failed, error_message, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		job.RunID,
		string(job.Kind),
		job.SourcePlaylistID,
		job.SourcePlaylistName,
		nullString(job.TargetPlaylistID),
		string(job.Status),
		job.TracksTotal,
		job.TracksAdded,
		job.TracksExisting,
		job.TracksFailed,
		nullString(job.ErrorMessage),
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert migration job: %w", err)
	}

	job.SetID(id)
	job.SetSequence(sequence)
	return nil
}

// Get retrieves a job by ID, excluding soft-deleted jobs
func (r *MigrationRepository) Get(id string) (*models.MigrationJob, error) {
	query := `SELECT` + migrationColumns + ` FROM migration_jobs WHERE id = ? AND deleted_at IS NULL`

	job, err := scanJob(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("migration job not found: %s", id)
	}
	return job, err
}

// Update modifies an existing job in the database
func (r *MigrationRepository) Update(job *models.MigrationJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE migration_jobs
		SET target_playlist_id = ?, status = ?, tracks_total = ?, tracks_added = ?,
			tracks_existing = ?, tracks_failed = ?, error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullString(job.TargetPlaylistID),
		string(job.Status),
		job.TracksTotal,
		job.TracksAdded,
		job.TracksExisting,
		job.TracksFailed,
		nullString(job.ErrorMessage),
		job.StartedAt,
		job.CompletedAt,
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update migration job: %w", err)
	}

	return expectOneRow(result, job.ID())
}

// Delete soft-deletes a job by ID
func (r *MigrationRepository) Delete(id string) error {
	result, err := r.db.Exec(
		`UPDATE migration_jobs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete migration job: %w", err)
	}

	return expectOneRow(result, id)
}

// List retrieves jobs matching the given criteria, newest first, excluding soft-deleted jobs.
//
// Supported criteria: "run_id", "status", "source_playlist_id" (string) and "limit" (int).
func (r *MigrationRepository) List(criteria map[string]any) ([]*models.MigrationJob, error) {
	query := `SELECT` + migrationColumns + ` FROM migration_jobs WHERE deleted_at IS NULL`
	args := []any{}

	for _, column := range []string{"run_id", "status", "source_playlist_id"} {
		if v, ok := criteria[column].(string); ok && v != "" {
			query += " AND " + column + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.MigrationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// scanJob scans one row into a [models.MigrationJob]
func scanJob(row scanner) (*models.MigrationJob, error) {
	var (
		id, runID, kind, playlistID, playlistName, status string
		sequence, total, added, existing, failed          int
		targetID, errorMessage                            sql.NullString
		startedAt, completedAt, deletedAt                 sql.NullTime
		createdAt, updatedAt                              time.Time
	)

	err := row.Scan(
		&id, &sequence, &runID, &kind, &playlistID, &playlistName,
		&targetID, &status, &total, &added, &existing,
		&failed, &errorMessage, &startedAt, &completedAt, &createdAt,
		&updatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration job: %w", err)
	}

	job := models.NewMigrationJob(runID, models.JobKind(kind), models.Playlist{ID: playlistID, Name: playlistName})
	job.SetID(id)
	job.SetSequence(sequence)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	job.Status = models.JobStatus(status)
	job.TargetPlaylistID = targetID.String
	job.ErrorMessage = errorMessage.String
	job.TracksTotal = total
	job.TracksAdded = added
	job.TracksExisting = existing
	job.TracksFailed = failed
	job.StartedAt = nullTime(startedAt)
	job.CompletedAt = nullTime(completedAt)
	job.SetDeletedAt(nullTime(deletedAt))

	return job, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("migration job not found or already deleted: %s", id)
	}
	return nil
}
