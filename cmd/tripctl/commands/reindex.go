package commands

import (
	"errors"
	"fmt"

	"github.com/benvon/trip-planner/internal/config"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/benvon/trip-planner/internal/search"
	"github.com/spf13/cobra"
)

// NewReindexCmd creates the reindex command, which bulk-loads every saved place into the
// Elasticsearch catalog. Useful after the worker was down or the index was recreated.
func NewReindexCmd(opts *Options) *cobra.Command {
	var elasticURL, index string
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Bulk index every staged and committed place into Elasticsearch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if elasticURL == "" {
				elasticURL = cfg.ElasticsearchURL
			}
			if index == "" {
				index = cfg.ElasticsearchIndex
			}
			if elasticURL == "" {
				return errors.New("no Elasticsearch URL configured (set ELASTICSEARCH_URL or --elastic-url)")
			}

			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			catalog, err := search.NewElasticProvider(elasticURL, index)
			if err != nil {
				return err
			}
			catalog.SetLogger(opts.logger())
			if err := catalog.EnsureIndex(cmd.Context()); err != nil {
				return fmt.Errorf("failed to ensure index: %w", err)
			}

			places := savedPlaces(p)
			indexed, err := catalog.IndexPlaces(cmd.Context(), places)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d places into %s\n", indexed, len(places), catalog.Index())
			if indexed < len(places) {
				return fmt.Errorf("%d places failed to index", len(places)-indexed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&elasticURL, "elastic-url", "", "Elasticsearch URL (default from config)")
	cmd.Flags().StringVar(&index, "index", "", "Index name (default from config)")
	return cmd
}

// savedPlaces lists every place once: staged places first, then itineraries in trip order
func savedPlaces(p *planner.Planner) []models.ItineraryPlace {
	seen := make(map[string]bool)
	var places []models.ItineraryPlace
	add := func(place models.ItineraryPlace) {
		if seen[place.ID] {
			return
		}
		seen[place.ID] = true
		places = append(places, place)
	}
	for _, place := range p.Staging().All() {
		add(place)
	}
	for _, trip := range p.Trips().All() {
		for _, place := range trip.Itinerary {
			add(place)
		}
	}
	return places
}
