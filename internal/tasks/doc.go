// Package tasks migrates playlists from a source catalog to a target catalog with real-time progress reporting.
//
// # Core Operations
//
// [MigrationEngine] exposes four operations:
//
//  1. [MigrationEngine.Migrate] : every selected source playlist, in source order
//     - Resolves (finds or creates) the target playlist and persists the mapping
//     - Skips playlists a previous run completed
//     - Classifies each track as exists, cached, skipped, found or not_found
//     - Adds new matches in batches of at most 50 and persists them once confirmed
//
//  2. [MigrationEngine.MigratePlaylist] : the same pass for a single playlist
//
//  3. [MigrationEngine.RetryFailed] : forgets the not_found records of one playlist and searches those tracks again
//
//  4. [MigrationEngine.ResetPlaylist] : drops everything known about one playlist
//
// State is saved once per chunk of tracks, so an interrupted run loses at most one chunk of work and the next run
// resumes without searching or adding anything twice.
//
// # Matching
//
// [Matcher] searches the target for "title primary-artist" and scores each candidate on title, artists, album and
// duration. Missing signals drop out and the remaining weights are renormalized. A candidate scoring below
// [MatchThreshold] is rejected. Searches are paced, retried on transient errors and memoized per query.
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate]. Per-track sends are non-blocking: a slow consumer
// misses track updates instead of stalling the migration. [ChunkProgress] updates wait for the consumer, so a
// non-nil channel must be drained until the operation returns.
//
// # Run History
//
// An optional [JobRecorder] receives one [models.MigrationJob] per playlist pass (repositories.HistoryRecorder).
// Recording failures are logged and never affect the migration.
package tasks
