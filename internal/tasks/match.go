package tasks

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// Scoring constants. Weights of signals missing on either side are redistributed over the rest.
const (
	MatchThreshold = 0.65

	titleWeight    = 0.45
	artistWeight   = 0.30
	albumWeight    = 0.10
	durationWeight = 0.15

	artistMatchThreshold = 0.85
	durationFullCredit   = 3.0  // seconds
	durationNoCredit     = 20.0 // seconds

	defaultSearchCacheSize = 1024
)

// Searcher is the part of [services.TargetCatalog] the matcher needs.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Candidate, error)
}

// Match is an accepted candidate and its score.
type Match struct {
	Candidate models.Candidate
	Score     float64
}

// MatcherOptions configures a [Matcher].
type MatcherOptions struct {
	SearchDelay time.Duration       // minimum spacing between searches; zero disables pacing
	CacheSize   int                 // number of queries kept in the search cache
	Retry       *shared.RetryConfig // retry policy for transient search errors
	Logger      *log.Logger
}

// Matcher finds the best target candidate for a source track.
//
// Searches are paced by a token bucket, retried on transient errors and memoized per query for the lifetime of the Matcher.
type Matcher struct {
	searcher Searcher
	limiter  *rate.Limiter
	cache    *lru.Cache[string, []models.Candidate]
	retry    *shared.RetryConfig
	logger   *log.Logger
}

// NewMatcher creates a Matcher that searches through s.
func NewMatcher(s Searcher, opts MatcherOptions) *Matcher {
	limit := rate.Inf
	if opts.SearchDelay > 0 {
		limit = rate.Every(opts.SearchDelay)
	}

	size := opts.CacheSize
	if size <= 0 {
		size = defaultSearchCacheSize
	}
	cache, _ := lru.New[string, []models.Candidate](size)

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Matcher{
		searcher: s,
		limiter:  rate.NewLimiter(limit, 1),
		cache:    cache,
		retry:    opts.Retry,
		logger:   logger,
	}
}

// Query builds the search text for a track: title and primary artist.
func Query(track models.Track) string {
	if artist := track.PrimaryArtist(); artist != "" {
		return track.Title + " " + artist
	}
	return track.Title
}

// Match searches for track and returns the best candidate scoring above [MatchThreshold], or nil when none does.
//
// The returned error is non-nil only when the search itself failed after retries.
func (m *Matcher) Match(ctx context.Context, track models.Track) (*Match, error) {
	candidates, err := m.search(ctx, Query(track))
	if err != nil {
		return nil, err
	}

	best := Best(track, candidates)
	if best == nil {
		m.logger.Debug("no match", "track", track.String(), "candidates", len(candidates))
	}
	return best, nil
}

// Reset drops every memoized search result.
func (m *Matcher) Reset() {
	m.cache.Purge()
}

func (m *Matcher) search(ctx context.Context, query string) ([]models.Candidate, error) {
	if cached, ok := m.cache.Get(query); ok {
		return cached, nil
	}

	candidates, err := shared.RetryWithBackoff(ctx, m.retry, func(ctx context.Context) ([]models.Candidate, error) {
		if err := m.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return m.searcher.Search(ctx, query)
	}, "search")
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	m.cache.Add(query, candidates)
	return candidates, nil
}

// Best returns the highest scoring candidate that reaches [MatchThreshold].
// Ties keep the earlier candidate; candidates without an id are ignored.
func Best(track models.Track, candidates []models.Candidate) *Match {
	var best *Match
	for _, c := range candidates {
		if c.ID == "" {
			continue
		}
		score := Score(track, c)
		if score < MatchThreshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{Candidate: c, Score: score}
		}
	}
	return best
}

// Score rates how well a candidate matches a track on a 0..1 scale.
func Score(track models.Track, c models.Candidate) float64 {
	var total, weights float64

	add := func(weight, value float64) {
		total += weight * value
		weights += weight
	}

	srcTitle, candTitle := normalizeTitle(track.Title), normalizeTitle(c.Title)
	if srcTitle != "" && candTitle != "" {
		add(titleWeight, similarity(srcTitle, candTitle))
	}

	if overlap, ok := artistOverlap(track.Artists, c.Artists); ok {
		add(artistWeight, overlap)
	}

	srcAlbum, candAlbum := normalizeTitle(track.Album), normalizeTitle(c.Album)
	if srcAlbum != "" && candAlbum != "" {
		add(albumWeight, similarity(srcAlbum, candAlbum))
	}

	if track.Duration > 0 && c.Duration > 0 {
		add(durationWeight, durationCloseness(track.Duration, c.Duration))
	}

	if weights == 0 {
		return 0
	}
	return total / weights
}

// artistOverlap is the fraction of source artists with a close match among the candidate artists.
func artistOverlap(source, candidate []string) (float64, bool) {
	src := normalizeAll(source)
	cand := normalizeAll(candidate)
	if len(src) == 0 || len(cand) == 0 {
		return 0, false
	}

	matched := 0
	for _, a := range src {
		for _, b := range cand {
			if similarity(a, b) >= artistMatchThreshold {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(src)), true
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// durationCloseness gives full credit within a few seconds and decays linearly to zero.
func durationCloseness(a, b int) float64 {
	diff := math.Abs(float64(a - b))
	switch {
	case diff <= durationFullCredit:
		return 1
	case diff >= durationNoCredit:
		return 0
	default:
		return 1 - (diff-durationFullCredit)/(durationNoCredit-durationFullCredit)
	}
}
