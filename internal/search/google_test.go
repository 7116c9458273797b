package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/trip-planner/internal/models"
)

const googleFixture = `{
	"places": [
		{
			"name": "places/abc",
			"displayName": {"text": "Worcester Art Museum", "languageCode": "en"},
			"formattedAddress": "55 Salisbury St, Worcester, MA",
			"location": {"latitude": 42.273, "longitude": -71.801},
			"types": ["art_gallery", "museum", "point_of_interest"],
			"internationalPhoneNumber": "+1 508-799-4406",
			"rating": 4.7,
			"userRatingCount": 2210
		},
		{
			"name": "places/no-location",
			"displayName": {"text": "Somewhere"}
		}
	]
}`

func TestGoogleProvider_Search(t *testing.T) {
	t.Parallel()

	var gotBody googleSearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != googleSearchPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.Header.Get("X-Goog-FieldMask"); got != googleFieldMask {
			t.Errorf("field mask header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(googleFixture))
	}))
	defer server.Close()

	p := NewGoogleProvider("test-key", server.URL+"/")
	results, err := p.Search(context.Background(), Query{
		Text:         "art museum",
		Bias:         models.Coordinate{Latitude: 42.259, Longitude: -71.808},
		RadiusMeters: 5000,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotBody.TextQuery != "art museum" {
		t.Errorf("textQuery = %q", gotBody.TextQuery)
	}
	if gotBody.LocationBias.Circle.Radius != 5000 || gotBody.LocationBias.Circle.Center.Latitude != 42.259 {
		t.Errorf("locationBias = %+v", gotBody.LocationBias)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (entry without location skipped)", len(results))
	}
	r := results[0]
	if r.ID != "places/abc" || r.Name != "Worcester Art Museum" || r.Address != "55 Salisbury St, Worcester, MA" {
		t.Errorf("result = %+v", r)
	}
	if r.Coordinate.Latitude != 42.273 || r.Coordinate.Longitude != -71.801 {
		t.Errorf("coordinate = %v", r.Coordinate)
	}
	if r.Phone == nil || *r.Phone != "+1 508-799-4406" {
		t.Errorf("phone = %v", r.Phone)
	}
	if r.Rating == nil || *r.Rating != 4.7 || r.RatingCount == nil || *r.RatingCount != 2210 {
		t.Errorf("rating = %v count = %v", r.Rating, r.RatingCount)
	}
	if got := models.Classify(r.Name, r.Types); got != models.CategoryMuseum {
		t.Errorf("category = %s, want museum", got)
	}
}

func TestGoogleProvider_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{
			name:    "empty places",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: func(err error) bool { return errors.Is(err, ErrNoResults) },
		},
		{
			name:    "bad status",
			status:  http.StatusForbidden,
			body:    `{"error": {"code": 403}}`,
			wantErr: func(err error) bool { return IsProviderError(err, KindBadStatus) },
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"places": [`,
			wantErr: func(err error) bool { return IsProviderError(err, KindMalformed) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewGoogleProvider("k", server.URL).Search(context.Background(), Query{Text: "x"})
			if !tt.wantErr(err) {
				t.Errorf("Search() error = %v", err)
			}
		})
	}
}

func TestGoogleProvider_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewGoogleProvider("k", url).Search(context.Background(), Query{Text: "x"})
	if !IsProviderError(err, KindUnreachable) {
		t.Errorf("Search() error = %v, want unreachable provider error", err)
	}
}
