// Package repositories implements persistence for migration progress and run history.
//
// Key Implementations:
//   - [StateStore] : the JSON state file, the single source of truth for resumability
//   - [MigrationRepository] : SQLite run history, one row per playlist pass
//   - [HistoryRecorder] : adapter that lets the engine record jobs without knowing about SQL
//
// The state file is always written atomically (temp file, sync, rename), so an interrupted save never leaves a
// partially written document behind. The history database is informational; losing it never affects a migration.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// [NextSequence] advances a per-table counter row with a single UPDATE ... RETURNING statement.
package repositories
