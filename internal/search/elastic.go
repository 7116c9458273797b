package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"
)

const (
	// DefaultElasticIndex is the index places are searched in and indexed into
	DefaultElasticIndex = "places"

	elasticProviderName = "elasticsearch"
	elasticResultSize   = 20
)

// placeMapping makes location a geo_point so distance queries and sorts work
const placeMapping = `{
	"mappings": {
		"properties": {
			"name":         {"type": "text"},
			"address":      {"type": "text"},
			"location":     {"type": "geo_point"},
			"types":        {"type": "keyword"},
			"category":     {"type": "keyword"},
			"phone":        {"type": "keyword"},
			"rating":       {"type": "float"},
			"rating_count": {"type": "integer"}
		}
	}
}`

// placeDocument is the indexed form of a place
type placeDocument struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	Location    elastic.GeoPoint `json:"location"`
	Types       []string         `json:"types,omitempty"`
	Category    models.Category  `json:"category,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	Rating      *float64         `json:"rating,omitempty"`
	RatingCount *int             `json:"rating_count,omitempty"`
}

func newPlaceDocument(p models.ItineraryPlace) placeDocument {
	return placeDocument{
		ID:          p.ID,
		Name:        p.Name,
		Address:     p.Address,
		Location:    elastic.GeoPoint{Lat: p.Coordinate.Latitude, Lon: p.Coordinate.Longitude},
		Types:       p.Types,
		Category:    p.ResolvedCategory(),
		Phone:       p.Phone,
		Rating:      p.Rating,
		RatingCount: p.RatingCount,
	}
}

func (d placeDocument) toSearchResult() models.SearchResult {
	return models.SearchResult{
		ID:          d.ID,
		Name:        d.Name,
		Address:     d.Address,
		Coordinate:  models.Coordinate{Latitude: d.Location.Lat, Longitude: d.Location.Lon},
		Types:       d.Types,
		Phone:       d.Phone,
		Rating:      d.Rating,
		RatingCount: d.RatingCount,
	}
}

// ElasticProvider searches a self-hosted catalog of places in Elasticsearch and keeps it
// fed with places users have saved
type ElasticProvider struct {
	client *elastic.Client
	index  string
	logger *zap.Logger
}

// NewElasticProvider connects to the cluster at url
func NewElasticProvider(url, index string) (*ElasticProvider, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return NewElasticProviderWithClient(client, index), nil
}

// NewElasticProviderWithClient wraps an existing client
func NewElasticProviderWithClient(client *elastic.Client, index string) *ElasticProvider {
	if index == "" {
		index = DefaultElasticIndex
	}
	return &ElasticProvider{client: client, index: index, logger: zap.NewNop()}
}

// SetLogger sets the logger for the provider
func (p *ElasticProvider) SetLogger(logger *zap.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Index returns the index name
func (p *ElasticProvider) Index() string {
	return p.index
}

// EnsureIndex creates the index with a geo_point mapping when it does not exist
func (p *ElasticProvider) EnsureIndex(ctx context.Context) error {
	exists, err := p.client.IndexExists(p.index).Do(ctx)
	if err != nil {
		return p.classify(err)
	}
	if exists {
		return nil
	}
	created, err := p.client.CreateIndex(p.index).BodyString(placeMapping).Do(ctx)
	if err != nil {
		return p.classify(err)
	}
	if !created.Acknowledged {
		p.logger.Warn("place_index_create_not_acknowledged", zap.String("index", p.index))
	}
	p.logger.Info("place_index_created", zap.String("index", p.index))
	return nil
}

// Search matches q.Text against name and address within q.RadiusMeters of q.Bias,
// nearest first
func (p *ElasticProvider) Search(ctx context.Context, q Query) ([]models.SearchResult, error) {
	query := elastic.NewBoolQuery().
		Must(elastic.NewMultiMatchQuery(q.Text, "name^2", "address").Fuzziness("AUTO")).
		Filter(elastic.NewGeoDistanceQuery("location").
			Point(q.Bias.Latitude, q.Bias.Longitude).
			Distance(fmt.Sprintf("%.0fm", q.RadiusMeters)))

	res, err := p.client.Search().
		Index(p.index).
		Query(query).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(q.Bias.Latitude, q.Bias.Longitude).
			Asc().
			Unit("m").
			DistanceType("arc").
			IgnoreUnmapped(true)).
		Size(elasticResultSize).
		Do(ctx)
	if err != nil {
		return nil, p.classify(err)
	}
	if res.Hits == nil || len(res.Hits.Hits) == 0 {
		return nil, ErrNoResults
	}

	results := make([]models.SearchResult, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc placeDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, &ProviderError{Provider: elasticProviderName, Kind: KindMalformed, Err: err}
		}
		if doc.ID == "" {
			doc.ID = hit.Id
		}
		results = append(results, doc.toSearchResult())
	}
	return results, nil
}

// IndexPlace upserts a single place document keyed by place id
func (p *ElasticProvider) IndexPlace(ctx context.Context, place models.ItineraryPlace) error {
	_, err := p.client.Index().
		Index(p.index).
		Id(place.ID).
		BodyJson(newPlaceDocument(place)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index place %s: %w", place.ID, p.classify(err))
	}
	return nil
}

// IndexPlaces bulk-indexes places. Per-item failures are logged and counted.
func (p *ElasticProvider) IndexPlaces(ctx context.Context, places []models.ItineraryPlace) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}
	bulk := p.client.Bulk()
	for _, place := range places {
		bulk = bulk.Add(elastic.NewBulkIndexRequest().Index(p.index).Id(place.ID).Doc(newPlaceDocument(place)))
	}
	res, err := bulk.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk index places: %w", p.classify(err))
	}

	failed := 0
	for _, item := range res.Failed() {
		failed++
		reason := ""
		if item.Error != nil {
			reason = item.Error.Reason
		}
		p.logger.Warn("place_bulk_index_item_failed",
			zap.String("place_id", item.Id),
			zap.String("reason", reason))
	}
	return len(places) - failed, nil
}

// DeletePlace removes a place document; a missing document is not an error
func (p *ElasticProvider) DeletePlace(ctx context.Context, placeID string) error {
	_, err := p.client.Delete().Index(p.index).Id(placeID).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("failed to delete place %s: %w", placeID, p.classify(err))
	}
	return nil
}

// Ping checks that the cluster is reachable
func (p *ElasticProvider) Ping(ctx context.Context) error {
	if _, err := p.client.ClusterHealth().Index(p.index).Do(ctx); err != nil {
		return p.classify(err)
	}
	return nil
}

func (p *ElasticProvider) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var esErr *elastic.Error
	if errors.As(err, &esErr) {
		return &ProviderError{Provider: elasticProviderName, Kind: KindBadStatus, StatusCode: esErr.Status, Err: err}
	}
	return &ProviderError{Provider: elasticProviderName, Kind: KindUnreachable, Err: err}
}
