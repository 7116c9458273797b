package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/trip-planner/internal/location"
	"github.com/benvon/trip-planner/internal/models"
)

type fixedSource struct {
	coord *models.Coordinate
}

func (s fixedSource) SearchAnchor() *models.Coordinate {
	return s.coord
}

func staticResults(results ...models.SearchResult) ProviderFunc {
	return func(context.Context, Query) ([]models.SearchResult, error) {
		return results, nil
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Debounce = 0
	opts.Rate = ""
	return opts
}

func newTestCoordinator(t *testing.T, p Provider, loc location.Provider, opts Options) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(p, loc, opts)
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCoordinator_ResolveAnchor(t *testing.T) {
	t.Parallel()

	explicit := models.Coordinate{Latitude: 10, Longitude: 10}
	last := models.Coordinate{Latitude: 20, Longitude: 20}

	tests := []struct {
		name     string
		explicit *models.Coordinate
		source   AnchorSource
		loc      location.Provider
		want     models.Coordinate
	}{
		{
			name: "fallback when nothing is known",
			loc:  location.NoLocation{},
			want: FallbackAnchor,
		},
		{
			name: "device location",
			loc:  location.NewStaticProvider(30, 30),
			want: models.Coordinate{Latitude: 30, Longitude: 30},
		},
		{
			name:   "last appended beats device location",
			source: fixedSource{coord: &last},
			loc:    location.NewStaticProvider(30, 30),
			want:   last,
		},
		{
			name:   "session anchor beats device location",
			source: fixedSource{coord: &models.Coordinate{Latitude: 48.8566, Longitude: 2.3522}},
			loc:    location.NoLocation{},
			want:   models.Coordinate{Latitude: 48.8566, Longitude: 2.3522},
		},
		{
			name:   "session without an anchor falls through to device location",
			source: fixedSource{},
			loc:    location.NewStaticProvider(30, 30),
			want:   models.Coordinate{Latitude: 30, Longitude: 30},
		},
		{
			name:     "explicit anchor beats everything",
			explicit: &explicit,
			source:   fixedSource{coord: &last},
			loc:      location.NewStaticProvider(30, 30),
			want:     explicit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestCoordinator(t, staticResults(), tt.loc, testOptions())
			c.UpdateAnchor(tt.explicit)
			if tt.source != nil {
				c.SetAnchorSource(tt.source)
			}
			if got := c.ResolveAnchor(context.Background()); got != tt.want {
				t.Errorf("ResolveAnchor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoordinator_UpdateAnchorNilClears(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t, staticResults(), nil, testOptions())
	c.UpdateAnchor(&models.Coordinate{Latitude: 1, Longitude: 1})
	c.UpdateAnchor(nil)
	if got := c.ResolveAnchor(context.Background()); got != FallbackAnchor {
		t.Errorf("ResolveAnchor() = %v, want fallback", got)
	}
}

func TestCoordinator_Search(t *testing.T) {
	t.Parallel()

	var gotQuery Query
	provider := ProviderFunc(func(_ context.Context, q Query) ([]models.SearchResult, error) {
		gotQuery = q
		return []models.SearchResult{
			{ID: "p1", Name: "Blue Bottle", Types: []string{"cafe"}, Coordinate: models.Coordinate{Latitude: 0, Longitude: 1}},
			{ID: "p2", Name: "City Museum", Coordinate: models.Coordinate{Latitude: 0, Longitude: 0}},
		}, nil
	})
	c := newTestCoordinator(t, provider, nil, testOptions())
	c.UpdateAnchor(&models.Coordinate{})

	outcome := c.Search(context.Background(), "  coffee ")
	if outcome.Err != nil {
		t.Fatalf("Search() error = %v", outcome.Err)
	}
	if gotQuery.Text != "coffee" || gotQuery.RadiusMeters != DefaultRadiusMeters {
		t.Errorf("provider query = %+v", gotQuery)
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(outcome.Results))
	}
	if outcome.Results[0].Category != models.CategoryRestaurant {
		t.Errorf("category by tag = %s, want restaurant", outcome.Results[0].Category)
	}
	if outcome.Results[1].Category != models.CategoryMuseum {
		t.Errorf("category by name = %s, want museum", outcome.Results[1].Category)
	}
	if outcome.Results[0].DistanceMeters < 111000 || outcome.Results[0].DistanceMeters > 111400 {
		t.Errorf("distance = %f, want about one degree of arc", outcome.Results[0].DistanceMeters)
	}
	if outcome.Results[1].DistanceMeters != 0 {
		t.Errorf("distance at anchor = %f, want 0", outcome.Results[1].DistanceMeters)
	}
}

func TestCoordinator_QueryTooShort(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	provider := ProviderFunc(func(context.Context, Query) ([]models.SearchResult, error) {
		calls.Add(1)
		return nil, nil
	})
	c := newTestCoordinator(t, provider, nil, testOptions())

	for _, q := range []string{"", "a", " é ", "  "} {
		if outcome := c.Search(context.Background(), q); !errors.Is(outcome.Err, ErrQueryTooShort) {
			t.Errorf("Search(%q) error = %v, want ErrQueryTooShort", q, outcome.Err)
		}
		if outcome := <-c.Submit(context.Background(), q); !errors.Is(outcome.Err, ErrQueryTooShort) {
			t.Errorf("Submit(%q) error = %v, want ErrQueryTooShort", q, outcome.Err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("provider called %d times for short queries", calls.Load())
	}
}

func TestCoordinator_ErrorPassThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		results []models.SearchResult
		err     error
		check   func(error) bool
	}{
		{
			name:  "no results sentinel",
			err:   ErrNoResults,
			check: func(err error) bool { return errors.Is(err, ErrNoResults) },
		},
		{
			name:  "empty slice is no results",
			check: func(err error) bool { return errors.Is(err, ErrNoResults) },
		},
		{
			name: "provider error keeps its kind",
			err:  &ProviderError{Provider: "test", Kind: KindBadStatus, StatusCode: 503},
			check: func(err error) bool {
				var pe *ProviderError
				return errors.As(err, &pe) && pe.StatusCode == 503
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			provider := ProviderFunc(func(context.Context, Query) ([]models.SearchResult, error) {
				return tt.results, tt.err
			})
			c := newTestCoordinator(t, provider, nil, testOptions())
			if outcome := c.Search(context.Background(), "museum"); !tt.check(outcome.Err) {
				t.Errorf("Search() error = %v", outcome.Err)
			}
		})
	}
}

func TestCoordinator_StaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	provider := ProviderFunc(func(ctx context.Context, q Query) ([]models.SearchResult, error) {
		if q.Text == "slow" {
			<-release
			return []models.SearchResult{{ID: "old", Name: "old"}}, nil
		}
		return []models.SearchResult{{ID: "new", Name: "new"}}, nil
	})
	c := newTestCoordinator(t, provider, nil, testOptions())

	first := c.Submit(context.Background(), "slow")
	second := c.Search(context.Background(), "fast")
	close(release)

	if second.Err != nil || second.Results[0].ID != "new" {
		t.Fatalf("latest search = %+v", second)
	}
	select {
	case outcome := <-first:
		if !errors.Is(outcome.Err, ErrStaleResponse) {
			t.Errorf("superseded outcome error = %v, want ErrStaleResponse", outcome.Err)
		}
		if len(outcome.Results) != 0 {
			t.Errorf("superseded outcome delivered results: %+v", outcome.Results)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded submission never delivered an outcome")
	}
}

func TestCoordinator_DebounceCoalesces(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	provider := ProviderFunc(func(_ context.Context, q Query) ([]models.SearchResult, error) {
		calls.Add(1)
		return []models.SearchResult{{ID: q.Text, Name: q.Text}}, nil
	})
	opts := testOptions()
	opts.Debounce = 50 * time.Millisecond
	c := newTestCoordinator(t, provider, nil, opts)

	a := c.Submit(context.Background(), "mu")
	b := c.Submit(context.Background(), "mus")
	last := c.Submit(context.Background(), "museum")

	for _, ch := range []<-chan Outcome{a, b} {
		if outcome := <-ch; !errors.Is(outcome.Err, ErrStaleResponse) {
			t.Errorf("coalesced outcome error = %v, want ErrStaleResponse", outcome.Err)
		}
	}
	outcome := <-last
	if outcome.Err != nil || outcome.Results[0].ID != "museum" {
		t.Fatalf("final outcome = %+v", outcome)
	}
	if outcome.Seq != c.Latest() {
		t.Errorf("final seq = %d, latest = %d", outcome.Seq, c.Latest())
	}
	if calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1", calls.Load())
	}
}

func TestCoordinator_RateLimited(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Rate = "1-M"
	c := newTestCoordinator(t, staticResults(models.SearchResult{ID: "x", Name: "x"}), nil, opts)

	if outcome := c.Search(context.Background(), "park"); outcome.Err != nil {
		t.Fatalf("first Search() error = %v", outcome.Err)
	}
	if outcome := c.Search(context.Background(), "park"); !errors.Is(outcome.Err, ErrRateLimited) {
		t.Errorf("second Search() error = %v, want ErrRateLimited", outcome.Err)
	}
}

func TestNewCoordinator_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewCoordinator(nil, nil, DefaultOptions()); err == nil {
		t.Error("expected error for nil provider")
	}
	opts := DefaultOptions()
	opts.Rate = "lots"
	if _, err := NewCoordinator(staticResults(), nil, opts); err == nil {
		t.Error("expected error for malformed rate")
	}

	c, err := NewCoordinator(staticResults(), nil, Options{})
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	got := c.Options()
	if got.MinQueryLength != DefaultMinQueryLength || got.RadiusMeters != DefaultRadiusMeters || got.Fallback != FallbackAnchor {
		t.Errorf("zero options not defaulted: %+v", got)
	}
}

func TestCoordinator_SearchReleasesQueryContext(t *testing.T) {
	t.Parallel()

	var queryCtx context.Context
	provider := ProviderFunc(func(ctx context.Context, _ Query) ([]models.SearchResult, error) {
		queryCtx = ctx
		return []models.SearchResult{{ID: "p1", Name: "Park"}}, nil
	})
	c := newTestCoordinator(t, provider, nil, testOptions())

	if outcome := c.Search(context.Background(), "park"); outcome.Err != nil {
		t.Fatalf("Search() error = %v", outcome.Err)
	}
	select {
	case <-queryCtx.Done():
	default:
		t.Error("query context still live after Search returned")
	}
}

func TestCoordinator_Await(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	provider := ProviderFunc(func(_ context.Context, q Query) ([]models.SearchResult, error) {
		calls.Add(1)
		return []models.SearchResult{{ID: q.Text, Name: q.Text}}, nil
	})
	opts := testOptions()
	opts.Debounce = 50 * time.Millisecond
	c := newTestCoordinator(t, provider, nil, opts)

	first := make(chan Outcome, 1)
	go func() { first <- c.Await(context.Background(), "mu") }()
	for c.Latest() == 0 {
		time.Sleep(time.Millisecond)
	}
	latest := c.Await(context.Background(), "museum")

	if latest.Err != nil || latest.Results[0].ID != "museum" {
		t.Fatalf("latest outcome = %+v", latest)
	}
	if outcome := <-first; !errors.Is(outcome.Err, ErrStaleResponse) {
		t.Errorf("superseded outcome error = %v, want ErrStaleResponse", outcome.Err)
	}
	if calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1", calls.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if outcome := c.Await(ctx, "park"); !errors.Is(outcome.Err, context.Canceled) {
		t.Errorf("cancelled Await error = %v, want context.Canceled", outcome.Err)
	}
}
