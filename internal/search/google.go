package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultGoogleBaseURL is the Places API (New) host
	DefaultGoogleBaseURL = "https://places.googleapis.com"

	googleSearchPath = "/v1/places:searchText"
	googleFieldMask  = "places.name,places.displayName,places.formattedAddress,places.location," +
		"places.types,places.internationalPhoneNumber,places.rating,places.userRatingCount"
	googleProviderName = "google"
	maxResponseBytes   = 4 << 20
)

// GoogleProvider searches the Google Places text search endpoint
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewGoogleProvider creates a provider. An empty baseURL uses DefaultGoogleBaseURL.
func NewGoogleProvider(apiKey, baseURL string) *GoogleProvider {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for the provider
func (p *GoogleProvider) SetLogger(logger *zap.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

type googleSearchRequest struct {
	TextQuery    string             `json:"textQuery"`
	LocationBias googleLocationBias `json:"locationBias"`
}

type googleLocationBias struct {
	Circle googleCircle `json:"circle"`
}

type googleCircle struct {
	Center googleLatLng `json:"center"`
	Radius float64      `json:"radius"`
}

type googleLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type googleSearchResponse struct {
	Places []googlePlace `json:"places"`
}

type googlePlace struct {
	Name        string `json:"name"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress         string        `json:"formattedAddress"`
	Location                 *googleLatLng `json:"location"`
	Types                    []string      `json:"types"`
	InternationalPhoneNumber *string       `json:"internationalPhoneNumber"`
	Rating                   *float64      `json:"rating"`
	UserRatingCount          *int          `json:"userRatingCount"`
}

// Search runs a text search biased to a circle around q.Bias
func (p *GoogleProvider) Search(ctx context.Context, q Query) ([]models.SearchResult, error) {
	body, err := json.Marshal(googleSearchRequest{
		TextQuery: q.Text,
		LocationBias: googleLocationBias{Circle: googleCircle{
			Center: googleLatLng{Latitude: q.Bias.Latitude, Longitude: q.Bias.Longitude},
			Radius: q.RadiusMeters,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+googleSearchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", p.apiKey)
	req.Header.Set("X-Goog-FieldMask", googleFieldMask)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("places_search_unreachable", zap.Error(err))
		return nil, &ProviderError{Provider: googleProviderName, Kind: KindUnreachable, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ProviderError{Provider: googleProviderName, Kind: KindUnreachable, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("places_search_bad_status",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(raw)))
		return nil, &ProviderError{Provider: googleProviderName, Kind: KindBadStatus, StatusCode: resp.StatusCode}
	}

	var decoded googleSearchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ProviderError{Provider: googleProviderName, Kind: KindMalformed, StatusCode: resp.StatusCode, Err: err}
	}

	results := make([]models.SearchResult, 0, len(decoded.Places))
	for _, gp := range decoded.Places {
		r, ok := gp.toSearchResult()
		if !ok {
			p.logger.Debug("places_search_entry_skipped", zap.String("place_id", gp.Name))
			continue
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

// toSearchResult requires an id, a display name and a location
func (gp googlePlace) toSearchResult() (models.SearchResult, bool) {
	if gp.Name == "" || gp.DisplayName == nil || gp.Location == nil {
		return models.SearchResult{}, false
	}
	return models.SearchResult{
		ID:          gp.Name,
		Name:        gp.DisplayName.Text,
		Address:     gp.FormattedAddress,
		Coordinate:  models.Coordinate{Latitude: gp.Location.Latitude, Longitude: gp.Location.Longitude},
		Types:       gp.Types,
		Phone:       gp.InternationalPhoneNumber,
		Rating:      gp.Rating,
		RatingCount: gp.UserRatingCount,
	}, true
}
