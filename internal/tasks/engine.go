package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

const (
	DefaultChunkSize = 200

	DefaultPlaylistPrefix = "Spot "
	DefaultLikedName      = "Liked Songs - Spot"

	playlistDescription = "Migrated from Spotify playlist"
	likedDescription    = "Migrated from Spotify Liked Songs"
)

// StateStore is the persistence the engine needs. Implemented by repositories.StateStore.
type StateStore interface {
	GetTrackStatus(playlistID, sourceTrackID string) (models.TrackRecord, bool)
	SetTrackStatus(playlistID, sourceTrackID string, rec models.TrackRecord)
	DeleteTrackStatus(playlistID, sourceTrackID string)
	GetPlaylistRecord(playlistID string) (models.PlaylistRecord, bool)
	SetPlaylistRecord(playlistID string, rec models.PlaylistRecord)
	IsPlaylistCompleted(playlistID string) bool
	ResetPlaylist(playlistID string) int
	Tracks(playlistID string) map[string]models.TrackRecord
	Save() error
}

// JobRecorder receives one job per playlist pass. Implemented by repositories.HistoryRecorder.
type JobRecorder interface {
	StartJob(job *models.MigrationJob) error
	FinishJob(job *models.MigrationJob) error
}

// EngineOptions configures a [MigrationEngine]. Zero values fall back to the defaults.
type EngineOptions struct {
	ChunkSize      int           // tracks classified between state saves
	BatchSize      int           // ids per AddTracks call, capped at [shared.MaxAddBatch]
	AddRetryDelay  time.Duration // wait before retrying a failed add batch; zero retries immediately
	SearchDelay    time.Duration // minimum spacing between searches
	PlaylistPrefix string        // prepended to source playlist names
	LikedName      string        // target name of the liked-songs playlist
	Retry          *shared.RetryConfig
	Logger         *log.Logger
	Recorder       JobRecorder // optional run history
	Now            func() time.Time
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.BatchSize <= 0 || o.BatchSize > shared.MaxAddBatch {
		o.BatchSize = shared.MaxAddBatch
	}
	if o.AddRetryDelay < 0 {
		o.AddRetryDelay = 0
	}
	if o.PlaylistPrefix == "" {
		o.PlaylistPrefix = DefaultPlaylistPrefix
	}
	if o.LikedName == "" {
		o.LikedName = DefaultLikedName
	}
	if o.Retry == nil {
		o.Retry = shared.DefaultRetryConfig()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Selection narrows a run to some playlists.
type Selection struct {
	Playlists []string // source playlist ids or exact names; empty selects every playlist
	Force     bool     // reset each selected playlist before migrating it
}

func (s Selection) matches(pl models.Playlist) bool {
	if len(s.Playlists) == 0 {
		return true
	}
	return slices.Contains(s.Playlists, pl.ID) || slices.Contains(s.Playlists, pl.Name)
}

// PlaylistResult summarizes one pass over one playlist.
type PlaylistResult struct {
	Playlist         models.Playlist
	TargetID         string
	TargetName       string
	Created          bool // the target playlist was resolved during this pass
	AlreadyCompleted bool // skipped because a previous run completed it
	Completed        bool // completed at the end of this pass
	Total            int
	Found            int // new matches
	Added            int // additions confirmed by the target
	Existing         int // exists and cached outcomes
	NotFound         int
	Skipped          int
	Errors           int
	Outcomes         []models.TrackOutcome
	Err              error
}

func (r *PlaylistResult) record(o models.TrackOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case models.StatusFound:
		r.Found++
	case models.StatusExists, models.StatusCached:
		r.Existing++
	case models.StatusNotFound:
		r.NotFound++
	case models.StatusSkipped:
		r.Skipped++
	case models.StatusError:
		r.Errors++
	}
}

// MigrationResult is the summary of a full run.
type MigrationResult struct {
	RunID              string
	Playlists          []*PlaylistResult
	PlaylistsProcessed int
	PlaylistsCreated   int
	PlaylistsFailed    int
	TracksFound        int
	TracksAdded        int
	TracksExisting     int
	TracksFailed       int
	TracksErrored      int
}

func (r *MigrationResult) add(p *PlaylistResult) {
	r.Playlists = append(r.Playlists, p)
	if p.Err != nil {
		r.PlaylistsFailed++
	} else if !p.AlreadyCompleted {
		r.PlaylistsProcessed++
	}
	if p.Created {
		r.PlaylistsCreated++
	}
	r.TracksFound += p.Found
	r.TracksAdded += p.Added
	r.TracksExisting += p.Existing
	r.TracksFailed += p.NotFound
	r.TracksErrored += p.Errors
}

// SuccessRate is the share of classified tracks that ended up on the target, in percent. Skipped tracks are left out.
func (r *MigrationResult) SuccessRate() float64 {
	resolved := r.TracksAdded + r.TracksExisting
	total := resolved + r.TracksFailed + r.TracksErrored
	if total == 0 {
		return 0
	}
	return float64(resolved) * 100 / float64(total)
}

// MigrationEngine moves playlists from a source catalog into a target catalog, resumably.
type MigrationEngine struct {
	source  services.SourceCatalog
	target  services.TargetCatalog
	state   StateStore
	matcher *Matcher
	opts    EngineOptions
	logger  *log.Logger
}

// NewMigrationEngine creates an engine. The target doubles as the matcher's search backend.
func NewMigrationEngine(source services.SourceCatalog, target services.TargetCatalog, state StateStore, opts EngineOptions) *MigrationEngine {
	opts = opts.withDefaults()
	return &MigrationEngine{
		source: source,
		target: target,
		state:  state,
		matcher: NewMatcher(target, MatcherOptions{
			SearchDelay: opts.SearchDelay,
			Retry:       opts.Retry,
			Logger:      opts.Logger,
		}),
		opts:   opts,
		logger: opts.Logger,
	}
}

// sendChunkProgress delivers a chunk update, waiting for the consumer until ctx is done.
// Every saved chunk is reported exactly once.
func (e *MigrationEngine) sendChunkProgress(ctx context.Context, progress chan<- ProgressUpdate, stats ChunkStats) {
	if progress == nil {
		return
	}
	select {
	case progress <- chunkProgressUpdate(stats):
	case <-ctx.Done():
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *MigrationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// TargetName is the title of the target playlist for pl.
func (e *MigrationEngine) TargetName(pl models.Playlist) string {
	if pl.Liked || pl.ID == models.LikedSongsID {
		return e.opts.LikedName
	}
	return e.opts.PlaylistPrefix + pl.Name
}

func targetDescription(pl models.Playlist) string {
	if pl.Liked || pl.ID == models.LikedSongsID {
		return likedDescription
	}
	return playlistDescription
}

// Playlists lists the source playlists a run with sel would process.
func (e *MigrationEngine) Playlists(ctx context.Context, sel Selection) ([]models.Playlist, error) {
	all, err := shared.RetryWithBackoff(ctx, e.opts.Retry, e.source.ListPlaylists, "list playlists")
	if err != nil {
		return nil, fmt.Errorf("failed to list source playlists: %w", err)
	}

	selected := make([]models.Playlist, 0, len(all))
	for _, pl := range all {
		if sel.matches(pl) {
			selected = append(selected, pl)
		}
	}

	for _, want := range sel.Playlists {
		if !slices.ContainsFunc(selected, func(pl models.Playlist) bool { return pl.ID == want || pl.Name == want }) {
			e.logger.Warn("selected playlist not found in source", "playlist", want)
		}
	}
	return selected, nil
}

// Migrate runs every selected playlist in source order.
//
// A fatal error stops the run and is returned together with the partial result.
// Other playlist failures are recorded on their [PlaylistResult] and the run continues.
func (e *MigrationEngine) Migrate(ctx context.Context, sel Selection, progress chan<- ProgressUpdate) (*MigrationResult, error) {
	result := &MigrationResult{RunID: shared.GenerateID()}

	playlists, err := e.Playlists(ctx, sel)
	if err != nil {
		return result, err
	}
	e.sendProgress(progress, fetchPlaylistsUpdate(len(playlists)))
	e.logger.Info("starting migration", "run", result.RunID, "playlists", len(playlists))

	for i, pl := range playlists {
		if sel.Force {
			if err := e.ResetPlaylist(pl.ID); err != nil {
				return result, err
			}
		}

		e.sendProgress(progress, resolvePlaylistUpdate(i+1, len(playlists), pl, e.TargetName(pl)))

		pr, err := e.migratePlaylist(ctx, result.RunID, pl, progress)
		result.add(pr)
		e.sendProgress(progress, playlistDoneUpdate(i+1, len(playlists), pr))

		if err != nil {
			if shared.IsFatal(err) {
				e.logger.Error("migration aborted", "playlist", pl.Name, "error", err)
				return result, err
			}
			e.logger.Warn("playlist failed, continuing", "playlist", pl.Name, "error", err)
		}
	}

	e.logger.Info("migration finished",
		"run", result.RunID,
		"processed", result.PlaylistsProcessed,
		"added", result.TracksAdded,
		"not_found", result.TracksFailed,
	)
	return result, nil
}

// MigratePlaylist migrates one playlist.
func (e *MigrationEngine) MigratePlaylist(ctx context.Context, pl models.Playlist, progress chan<- ProgressUpdate) (*PlaylistResult, error) {
	return e.migratePlaylist(ctx, shared.GenerateID(), pl, progress)
}

func (e *MigrationEngine) migratePlaylist(ctx context.Context, runID string, pl models.Playlist, progress chan<- ProgressUpdate) (*PlaylistResult, error) {
	result := &PlaylistResult{Playlist: pl, TargetName: e.TargetName(pl)}
	logger := e.logger.With("playlist", pl.Name)

	job := e.startJob(runID, models.JobMigrate, pl)
	err := e.runPlaylist(ctx, pl, result, progress, logger)
	e.finishJob(job, result, err)

	if err != nil {
		result.Err = err
	}
	return result, err
}

func (e *MigrationEngine) runPlaylist(ctx context.Context, pl models.Playlist, result *PlaylistResult, progress chan<- ProgressUpdate, logger *log.Logger) error {
	rec, ok := e.state.GetPlaylistRecord(pl.ID)
	if !ok || rec.TargetID == "" {
		targetID, err := shared.RetryWithBackoff(ctx, e.opts.Retry, func(ctx context.Context) (string, error) {
			return e.target.FindOrCreatePlaylist(ctx, result.TargetName, targetDescription(pl))
		}, "find or create playlist")
		if err != nil {
			return fmt.Errorf("failed to resolve target playlist %q: %w", result.TargetName, err)
		}

		rec = models.PlaylistRecord{TargetID: targetID, Name: result.TargetName}
		e.state.SetPlaylistRecord(pl.ID, rec)
		if err := e.save(); err != nil {
			return err
		}
		result.Created = true
		logger.Info("target playlist resolved", "target", targetID)
	}
	result.TargetID = rec.TargetID

	if rec.Completed {
		result.AlreadyCompleted = true
		result.Completed = true
		logger.Info("playlist already completed, skipping")
		return nil
	}

	existing, err := e.existingSet(ctx, rec.TargetID)
	if err != nil {
		return err
	}

	tracks, err := e.collectTracks(ctx, pl.ID)
	if err != nil {
		return err
	}
	result.Total = len(tracks)
	e.sendProgress(progress, fetchTracksUpdate(pl.Name, len(tracks)))

	if len(tracks) == 0 {
		rec.Completed = true
		e.state.SetPlaylistRecord(pl.ID, rec)
		result.Completed = true
		return e.save()
	}

	return e.processTracks(ctx, pl.ID, &rec, tracks, existing, true, result, progress, logger)
}

// RetryFailed clears the not_found records of one playlist and searches those tracks again.
//
// Records with any other status are left alone. Fails with [shared.ErrPlaylistNotFound] when the playlist has never
// been migrated.
func (e *MigrationEngine) RetryFailed(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*PlaylistResult, error) {
	rec, ok := e.state.GetPlaylistRecord(playlistID)
	if !ok || rec.TargetID == "" {
		return nil, fmt.Errorf("%w: %s has no migration record", shared.ErrPlaylistNotFound, playlistID)
	}

	e.matcher.Reset()

	pl := models.Playlist{ID: playlistID, Name: rec.Name, Liked: playlistID == models.LikedSongsID}
	result := &PlaylistResult{Playlist: pl, TargetID: rec.TargetID, TargetName: rec.Name}
	logger := e.logger.With("playlist", rec.Name)

	job := e.startJob(shared.GenerateID(), models.JobRetryFailed, pl)
	err := e.retryFailed(ctx, pl, &rec, result, progress, logger)
	e.finishJob(job, result, err)

	if err != nil {
		result.Err = err
	}
	return result, err
}

func (e *MigrationEngine) retryFailed(ctx context.Context, pl models.Playlist, rec *models.PlaylistRecord, result *PlaylistResult, progress chan<- ProgressUpdate, logger *log.Logger) error {
	failed := make(map[string]struct{})
	for tid, tr := range e.state.Tracks(pl.ID) {
		if tr.Status == models.StatusNotFound {
			failed[tid] = struct{}{}
		}
	}
	if len(failed) == 0 {
		logger.Info("no failed tracks to retry")
		result.Completed = rec.Completed
		return nil
	}

	for tid := range failed {
		e.state.DeleteTrackStatus(pl.ID, tid)
	}
	logger.Info("retrying failed tracks", "count", len(failed))

	existing, err := e.existingSet(ctx, rec.TargetID)
	if err != nil {
		return err
	}

	all, err := e.collectTracks(ctx, pl.ID)
	if err != nil {
		return err
	}

	tracks := make([]models.Track, 0, len(failed))
	for _, t := range all {
		if _, ok := failed[t.SourceID]; ok {
			tracks = append(tracks, t)
			delete(failed, t.SourceID)
		}
	}
	if len(failed) > 0 {
		logger.Warn("failed tracks no longer in source playlist", "count", len(failed))
	}

	result.Total = len(tracks)
	if len(tracks) == 0 {
		result.Completed = rec.Completed
		return e.save()
	}

	return e.processTracks(ctx, pl.ID, rec, tracks, existing, rec.Completed, result, progress, logger)
}

// ResetPlaylist forgets everything about one playlist and saves the state.
func (e *MigrationEngine) ResetPlaylist(playlistID string) error {
	removed := e.state.ResetPlaylist(playlistID)
	e.logger.Info("playlist reset", "playlist", playlistID, "tracks", removed)
	return e.save()
}

// pendingAdd is a match waiting for its sub-batch to be confirmed.
//
// restore marks a previously found track that is missing from the target playlist; its record is kept as is.
type pendingAdd struct {
	track    models.Track
	targetID string
	restore  bool
}

// processTracks classifies tracks chunk by chunk, flushes new matches and saves once per chunk.
//
// When the last chunk is flushed the playlist record's Completed flag is set to canComplete, provided that no
// sub-batch failed and no track ended in error. The flag rides on the last chunk's save.
func (e *MigrationEngine) processTracks(
	ctx context.Context,
	playlistID string,
	rec *models.PlaylistRecord,
	tracks []models.Track,
	existing map[string]struct{},
	canComplete bool,
	result *PlaylistResult,
	progress chan<- ProgressUpdate,
	logger *log.Logger,
) error {
	total := len(tracks)
	chunks := slices.Collect(slices.Chunk(tracks, e.opts.ChunkSize))
	processed := 0
	clean := true

	for i, chunk := range chunks {
		var pending []pendingAdd
		pendingIDs := make(map[string]struct{})

		for _, track := range chunk {
			outcome, err := e.classify(ctx, playlistID, track, existing, pendingIDs)
			if err != nil {
				return err
			}

			if outcome.Status == models.StatusFound || isStale(outcome, existing, pendingIDs) {
				pending = append(pending, pendingAdd{
					track:    track,
					targetID: outcome.TargetTrackID,
					restore:  outcome.Status == models.StatusCached,
				})
				pendingIDs[outcome.TargetTrackID] = struct{}{}
				continue
			}

			if outcome.Status == models.StatusError {
				clean = false
			}
			result.record(outcome)
			e.sendProgress(progress, trackResultUpdate(len(result.Outcomes), total, outcome))
		}

		added, err := e.flush(ctx, playlistID, rec.TargetID, pending, existing, result, progress, total, logger)
		if err != nil {
			return err
		}
		if added < len(pending) {
			clean = false
		}
		result.Added += added
		processed += len(chunk)

		if i == len(chunks)-1 {
			rec.Completed = canComplete && clean
			e.state.SetPlaylistRecord(playlistID, *rec)
			result.Completed = rec.Completed
		}
		if err := e.save(); err != nil {
			return err
		}

		e.sendChunkProgress(ctx, progress, ChunkStats{
			PlaylistID: playlistID,
			Processed:  processed,
			Total:      total,
			Percentage: float64(processed) / float64(total) * 100,
			Added:      added,
			AddedTotal: result.Added,
		})
		logger.Debug("chunk saved", "chunk", i+1, "chunks", len(chunks), "added", added)
	}

	if !result.Completed && canComplete {
		logger.Warn("playlist left incomplete", "errors", result.Errors)
	}
	return nil
}

// isStale reports whether a cached outcome points at a track that is no longer in the target playlist.
func isStale(outcome models.TrackOutcome, existing, pendingIDs map[string]struct{}) bool {
	if outcome.Status != models.StatusCached || outcome.TargetTrackID == "" {
		return false
	}
	_, inTarget := existing[outcome.TargetTrackID]
	_, inPending := pendingIDs[outcome.TargetTrackID]
	return !inTarget && !inPending
}

// classify decides the outcome of one track. A found outcome means the track is pending addition.
//
// Persisted records are only ever created here for exists and not_found; found records are written by flush once the
// target confirms the addition.
func (e *MigrationEngine) classify(ctx context.Context, playlistID string, track models.Track, existing, pendingIDs map[string]struct{}) (models.TrackOutcome, error) {
	rec, hasRecord := e.state.GetTrackStatus(playlistID, track.SourceID)

	if _, ok := existing[track.SourceID]; ok {
		if !hasRecord {
			e.state.SetTrackStatus(playlistID, track.SourceID,
				models.NewTrackRecord(models.StatusExists, track, track.SourceID, e.opts.Now()))
		}
		return models.TrackOutcome{Track: track, Status: models.StatusExists, TargetTrackID: track.SourceID}, nil
	}

	if hasRecord {
		switch rec.Status {
		case models.StatusFound:
			return models.TrackOutcome{Track: track, Status: models.StatusCached, TargetTrackID: rec.TargetTrackID}, nil
		case models.StatusNotFound:
			return models.TrackOutcome{Track: track, Status: models.StatusSkipped}, nil
		default:
			return models.TrackOutcome{Track: track, Status: rec.Status, TargetTrackID: rec.TargetTrackID}, nil
		}
	}

	match, err := e.matcher.Match(ctx, track)
	if err != nil {
		if shared.IsFatal(err) {
			return models.TrackOutcome{}, err
		}
		return models.TrackOutcome{Track: track, Status: models.StatusError, Err: err}, nil
	}

	if match == nil {
		e.state.SetTrackStatus(playlistID, track.SourceID,
			models.NewTrackRecord(models.StatusNotFound, track, "", e.opts.Now()))
		return models.TrackOutcome{Track: track, Status: models.StatusNotFound}, nil
	}

	id := match.Candidate.ID
	_, inTarget := existing[id]
	_, inPending := pendingIDs[id]
	if inTarget || inPending {
		e.state.SetTrackStatus(playlistID, track.SourceID,
			models.NewTrackRecord(models.StatusExists, track, id, e.opts.Now()))
		return models.TrackOutcome{Track: track, Status: models.StatusExists, TargetTrackID: id}, nil
	}

	return models.TrackOutcome{Track: track, Status: models.StatusFound, TargetTrackID: id}, nil
}

// flush adds pending matches in sub-batches through addBatch.
//
// New matches of a sub-batch that still fails get no record, and restored tracks keep their found record, so the next run
// picks both up again. It returns the number of confirmed additions, or a fatal error.
func (e *MigrationEngine) flush(
	ctx context.Context,
	playlistID, targetID string,
	pending []pendingAdd,
	existing map[string]struct{},
	result *PlaylistResult,
	progress chan<- ProgressUpdate,
	total int,
	logger *log.Logger,
) (int, error) {
	added := 0

	for batch := range slices.Chunk(pending, e.opts.BatchSize) {
		ids := make([]string, len(batch))
		for i, p := range batch {
			ids[i] = p.targetID
		}

		err := e.addBatch(ctx, targetID, ids, logger)
		if err != nil && shared.IsFatal(err) {
			return added, err
		}

		for _, p := range batch {
			outcome := models.TrackOutcome{Track: p.track, Status: models.StatusFound, TargetTrackID: p.targetID}
			if p.restore {
				outcome.Status = models.StatusCached
			}
			switch {
			case err != nil:
				outcome.Status = models.StatusError
				outcome.Err = err
			case p.restore:
				existing[p.targetID] = struct{}{}
			default:
				e.state.SetTrackStatus(playlistID, p.track.SourceID,
					models.NewTrackRecord(models.StatusFound, p.track, p.targetID, e.opts.Now()))
				existing[p.targetID] = struct{}{}
			}
			result.record(outcome)
			e.sendProgress(progress, trackResultUpdate(len(result.Outcomes), total, outcome))
		}

		if err != nil {
			logger.Warn("batch add failed", "size", len(ids), "first", ids[0], "error", err)
			continue
		}
		added += len(batch)
		logger.Info("added batch", "size", len(batch))
	}

	return added, nil
}

// addBatch adds ids with backoff on retryable errors, then tries the whole sequence once more after AddRetryDelay.
// Auth failures and cancellation are returned immediately.
func (e *MigrationEngine) addBatch(ctx context.Context, targetID string, ids []string, logger *log.Logger) error {
	add := func(ctx context.Context) error {
		return shared.Retry(ctx, e.opts.Retry, func(ctx context.Context) error {
			return e.target.AddTracks(ctx, targetID, ids)
		}, "add tracks")
	}

	err := add(ctx)
	if err == nil || noRetry(err) {
		return err
	}

	logger.Warn("add failed, retrying batch", "size", len(ids), "wait", e.opts.AddRetryDelay, "error", err)
	if err := sleepContext(ctx, e.opts.AddRetryDelay); err != nil {
		return err
	}
	return add(ctx)
}

func noRetry(err error) bool {
	return errors.Is(err, shared.ErrAuthFailed) ||
		errors.Is(err, shared.ErrNotAuthenticated) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (e *MigrationEngine) existingSet(ctx context.Context, targetID string) (map[string]struct{}, error) {
	existing, err := shared.RetryWithBackoff(ctx, e.opts.Retry, func(ctx context.Context) (map[string]struct{}, error) {
		return e.target.ListPlaylistTrackIDs(ctx, targetID)
	}, "list target tracks")
	if err != nil {
		return nil, fmt.Errorf("failed to list target playlist %s: %w", targetID, err)
	}
	if existing == nil {
		existing = make(map[string]struct{})
	}
	return existing, nil
}

// collectTracks reads the whole source playlist, restarting the listing on transient errors.
func (e *MigrationEngine) collectTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	tracks, err := shared.RetryWithBackoff(ctx, e.opts.Retry, func(ctx context.Context) ([]models.Track, error) {
		var out []models.Track
		for track, err := range e.source.ListTracks(ctx, playlistID) {
			if err != nil {
				return nil, err
			}
			out = append(out, track)
		}
		return out, nil
	}, "list source tracks")
	if err != nil {
		return nil, fmt.Errorf("failed to list source tracks of %s: %w", playlistID, err)
	}
	return tracks, nil
}

func (e *MigrationEngine) save() error {
	if err := e.state.Save(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStateWrite, err)
	}
	return nil
}

func (e *MigrationEngine) startJob(runID string, kind models.JobKind, pl models.Playlist) *models.MigrationJob {
	if e.opts.Recorder == nil {
		return nil
	}
	job := models.NewMigrationJob(runID, kind, pl)
	if err := e.opts.Recorder.StartJob(job); err != nil {
		e.logger.Warn("failed to record job start", "playlist", pl.Name, "error", err)
	}
	return job
}

func (e *MigrationEngine) finishJob(job *models.MigrationJob, result *PlaylistResult, err error) {
	if job == nil {
		return
	}

	job.TargetPlaylistID = result.TargetID
	job.TracksTotal = result.Total
	job.TracksAdded = result.Added
	job.TracksExisting = result.Existing
	job.TracksFailed = result.NotFound + result.Errors

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		job.Finish(models.JobInterrupted, err)
	case err != nil:
		job.Finish(models.JobFailed, err)
	case result.AlreadyCompleted:
		job.Finish(models.JobSkipped, nil)
	default:
		job.Finish(models.JobCompleted, nil)
	}

	if rerr := e.opts.Recorder.FinishJob(job); rerr != nil {
		e.logger.Warn("failed to record job result", "playlist", result.Playlist.Name, "error", rerr)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
