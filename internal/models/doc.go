// Package models defines domain entities and persistence interfaces for ytmigrate.
//
// The package contains three categories of types:
//
// 1. Catalog values: immutable data read from the providers
//   - [Track] : source track metadata (title, ordered artists, album, duration)
//   - [Playlist] : source playlist, including the synthetic liked-songs collection
//   - [Candidate] : one target search result
//
// 2. Migration state: the records persisted in the JSON state file
//   - [PlaylistRecord] : source playlist → target playlist mapping and completion flag
//   - [TrackRecord] : per-track [TrackStatus] keyed by [TrackKey]
//   - [FailedTrackEntry] : derived report line for not_found tracks
//   - [TrackOutcome] : per-run classification result, never persisted
//
// 3. Persistent entities: database-backed run history
//   - [MigrationJob] : one engine pass over one playlist
//
// Persistent entities implement [Model]; [Repository] defines CRUD access to them.
package models
