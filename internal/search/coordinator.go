package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/benvon/trip-planner/internal/location"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// Query policy defaults
const (
	DefaultMinQueryLength = 2
	DefaultDebounce       = 300 * time.Millisecond
	DefaultRadiusMeters   = 5000.0
	DefaultRate           = "30-M"

	rateLimitKey = "search"
)

// FallbackAnchor biases searches when nothing better is known
var FallbackAnchor = models.Coordinate{Latitude: 42.259, Longitude: -71.808}

// AnchorSource supplies a session's search anchor: the most recently added itinerary entry,
// or the trip destination while the itinerary is empty. Implemented by itinerary.Session.
type AnchorSource interface {
	SearchAnchor() *models.Coordinate
}

// Options tunes the query policy
type Options struct {
	MinQueryLength int
	Debounce       time.Duration
	RadiusMeters   float64
	// Rate is a ulule limiter formatted rate such as "30-M". Empty disables limiting.
	Rate     string
	Fallback models.Coordinate
}

// DefaultOptions returns the standard query policy
func DefaultOptions() Options {
	return Options{
		MinQueryLength: DefaultMinQueryLength,
		Debounce:       DefaultDebounce,
		RadiusMeters:   DefaultRadiusMeters,
		Rate:           DefaultRate,
		Fallback:       FallbackAnchor,
	}
}

// Result is a provider candidate annotated for display
type Result struct {
	models.SearchResult
	Category       models.Category `json:"category"`
	DistanceMeters float64         `json:"distance_meters"`
}

// Outcome is delivered for every submitted query
type Outcome struct {
	Seq     uint64            `json:"seq"`
	Query   string            `json:"query"`
	Anchor  models.Coordinate `json:"anchor"`
	Results []Result          `json:"results"`
	Err     error             `json:"-"`
}

// Coordinator owns the anchor and the query policy. Each query gets a sequence number;
// only the latest issued sequence may deliver results.
type Coordinator struct {
	provider Provider
	location location.Provider
	opts     Options
	limiter  *limiter.Limiter
	logger   *zap.Logger

	mu       sync.Mutex
	anchor   *models.Coordinate
	source   AnchorSource
	seq      uint64
	cancel   context.CancelFunc
	timer    *time.Timer
	pendingC chan Outcome
	pending  Outcome
}

// NewCoordinator creates a coordinator. loc may be nil when no device location exists.
func NewCoordinator(provider Provider, loc location.Provider, opts Options) (*Coordinator, error) {
	if provider == nil {
		return nil, errors.New("search provider is required")
	}
	if loc == nil {
		loc = location.NoLocation{}
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = DefaultRadiusMeters
	}
	if !opts.Fallback.Valid() || opts.Fallback == (models.Coordinate{}) {
		opts.Fallback = FallbackAnchor
	}

	c := &Coordinator{
		provider: provider,
		location: loc,
		opts:     opts,
		logger:   zap.NewNop(),
	}
	if opts.Rate != "" {
		rate, err := limiter.NewRateFromFormatted(opts.Rate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse search rate %q: %w", opts.Rate, err)
		}
		c.limiter = limiter.New(memorystore.NewStore(), rate)
	}
	return c, nil
}

// SetLogger sets the logger for the coordinator
func (c *Coordinator) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Options returns the effective query policy
func (c *Coordinator) Options() Options {
	return c.opts
}

// SetAnchorSource sets the session searches are anchored on; nil clears it
func (c *Coordinator) SetAnchorSource(src AnchorSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = src
}

// UpdateAnchor sets an explicit anchor that takes precedence over every other source.
// A nil coordinate clears it.
func (c *Coordinator) UpdateAnchor(coord *models.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if coord == nil {
		c.anchor = nil
		return
	}
	a := *coord
	c.anchor = &a
}

// ResolveAnchor picks the search bias: explicit anchor, the session anchor (last appended
// entry, then trip destination), device location, then the fallback coordinate
func (c *Coordinator) ResolveAnchor(ctx context.Context) models.Coordinate {
	c.mu.Lock()
	anchor, source := c.anchor, c.source
	c.mu.Unlock()

	if anchor != nil {
		return *anchor
	}
	if source != nil {
		if near := source.SearchAnchor(); near != nil {
			return *near
		}
	}
	here, err := c.location.CurrentLocation(ctx)
	if err != nil {
		c.logger.Debug("device_location_unavailable", zap.Error(err))
	}
	if err == nil && here != nil {
		return *here
	}
	return c.opts.Fallback
}

// Categorize derives a display category from the result's type tags, then its name
func (c *Coordinator) Categorize(r models.SearchResult) models.Category {
	return models.Classify(r.Name, r.Types)
}

// Latest returns the most recently issued sequence number
func (c *Coordinator) Latest() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Search runs text immediately, without debounce. It still takes a sequence number, so a
// newer Search or Submit makes this one return ErrStaleResponse.
func (c *Coordinator) Search(ctx context.Context, text string) Outcome {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	seq, runCtx, tooShort := c.beginLocked(ctx, text)
	c.mu.Unlock()

	if tooShort {
		return Outcome{Seq: seq, Query: text, Err: ErrQueryTooShort}
	}
	defer c.finish(seq)
	return c.run(runCtx, seq, text)
}

// Await submits text through the debounce and blocks for its outcome. A query superseded
// while waiting returns ErrStaleResponse; a cancelled ctx returns its error.
func (c *Coordinator) Await(ctx context.Context, text string) Outcome {
	out := c.Submit(ctx, text)
	select {
	case outcome := <-out:
		return outcome
	case <-ctx.Done():
		return Outcome{Query: strings.TrimSpace(text), Err: ctx.Err()}
	}
}

// Submit schedules text after the debounce interval and returns a channel that receives
// exactly one Outcome. Superseded submissions receive ErrStaleResponse.
func (c *Coordinator) Submit(ctx context.Context, text string) <-chan Outcome {
	text = strings.TrimSpace(text)
	out := make(chan Outcome, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	seq, runCtx, tooShort := c.beginLocked(ctx, text)
	if tooShort {
		out <- Outcome{Seq: seq, Query: text, Err: ErrQueryTooShort}
		close(out)
		return out
	}

	fire := func() {
		c.mu.Lock()
		if c.pendingC == out {
			c.timer, c.pendingC = nil, nil
		}
		c.mu.Unlock()

		out <- c.run(runCtx, seq, text)
		close(out)
		c.finish(seq)
	}

	if c.opts.Debounce == 0 {
		go fire()
		return out
	}
	c.pendingC = out
	c.pending = Outcome{Seq: seq, Query: text}
	c.timer = time.AfterFunc(c.opts.Debounce, fire)
	return out
}

// Close cancels any pending or in-flight query
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.supersedeLocked()
}

// beginLocked issues a new sequence number and supersedes whatever was pending or in flight
func (c *Coordinator) beginLocked(ctx context.Context, text string) (uint64, context.Context, bool) {
	c.seq++
	c.supersedeLocked()

	if utf8.RuneCountInString(text) < c.opts.MinQueryLength {
		return c.seq, ctx, true
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return c.seq, runCtx, false
}

// finish releases the context of query seq unless a newer query has already replaced it
func (c *Coordinator) finish(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.seq && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Coordinator) supersedeLocked() {
	if c.timer != nil && c.timer.Stop() && c.pendingC != nil {
		stale := c.pending
		stale.Err = ErrStaleResponse
		c.pendingC <- stale
		close(c.pendingC)
	}
	c.timer, c.pendingC = nil, nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Coordinator) isLatest(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seq == c.seq
}

func (c *Coordinator) run(ctx context.Context, seq uint64, text string) Outcome {
	outcome := Outcome{Seq: seq, Query: text}
	if !c.isLatest(seq) {
		outcome.Err = ErrStaleResponse
		return outcome
	}
	anchor := c.ResolveAnchor(ctx)
	outcome.Anchor = anchor

	if c.limiter != nil {
		lc, err := c.limiter.Get(ctx, rateLimitKey)
		if err != nil {
			outcome.Err = fmt.Errorf("failed to check search rate limit: %w", err)
			return outcome
		}
		if lc.Reached {
			c.logger.Warn("search_rate_limited", zap.Int64("limit", lc.Limit), zap.Int64("reset", lc.Reset))
			outcome.Err = ErrRateLimited
			return outcome
		}
	}

	results, err := c.provider.Search(ctx, Query{Text: text, Bias: anchor, RadiusMeters: c.opts.RadiusMeters})
	if !c.isLatest(seq) {
		c.logger.Debug("search_response_discarded", zap.Uint64("seq", seq))
		outcome.Err = ErrStaleResponse
		return outcome
	}
	if err != nil {
		if !errors.Is(err, ErrNoResults) {
			c.logger.Warn("search_failed", zap.Uint64("seq", seq), zap.Error(err))
		}
		outcome.Err = err
		return outcome
	}
	if len(results) == 0 {
		outcome.Err = ErrNoResults
		return outcome
	}

	outcome.Results = make([]Result, 0, len(results))
	for _, r := range results {
		outcome.Results = append(outcome.Results, Result{
			SearchResult:   r,
			Category:       c.Categorize(r),
			DistanceMeters: anchor.DistanceTo(r.Coordinate),
		})
	}
	c.logger.Debug("search_completed", zap.Uint64("seq", seq), zap.Int("results", len(outcome.Results)))
	return outcome
}
