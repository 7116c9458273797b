package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/trip-planner/internal/config"
	"github.com/benvon/trip-planner/internal/location"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/search"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command, a one-shot place search through the configured provider
func NewSearchCmd(opts *Options) *cobra.Command {
	var provider string
	var lat, lon float64
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for places near the configured or given location",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if provider != "" {
				cfg.SearchProvider = provider
			}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
				cfg.DeviceLatitude, cfg.DeviceLongitude = &lat, &lon
			}

			log := opts.logger()
			p, err := search.NewProvider(search.ProviderConfig{
				Kind:          cfg.SearchProvider,
				GoogleAPIKey:  cfg.GooglePlacesAPIKey,
				GoogleBaseURL: cfg.GooglePlacesBaseURL,
				ElasticURL:    cfg.ElasticsearchURL,
				ElasticIndex:  cfg.ElasticsearchIndex,
			}, log)
			if err != nil {
				return err
			}
			if p == nil {
				return errors.New("no search provider configured (set SEARCH_PROVIDER or --provider)")
			}

			// One query per invocation, so neither debounce nor rate limiting apply
			coordinator, err := search.NewCoordinator(p, location.FromConfig(cfg.DeviceLatitude, cfg.DeviceLongitude), search.Options{
				MinQueryLength: cfg.SearchMinQueryLength,
				RadiusMeters:   cfg.SearchRadiusMeters,
			})
			if err != nil {
				return err
			}
			defer coordinator.Close()
			coordinator.SetLogger(log)

			outcome := coordinator.Search(cmd.Context(), strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if errors.Is(outcome.Err, search.ErrNoResults) {
				fmt.Fprintf(out, "No places found for %q\n", outcome.Query)
				return nil
			}
			if outcome.Err != nil {
				return fmt.Errorf("search failed: %w", outcome.Err)
			}

			results := outcome.Results
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}
			fmt.Fprintf(out, "Results for %q near %s:\n", outcome.Query, outcome.Anchor)
			for _, r := range results {
				fmt.Fprintf(out, "  %s  %s [%s]  %s  %s\n", r.ID, r.Name, r.Category, models.FormatDistance(r.DistanceMeters), r.Address)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Search provider: google or elastic (default from config)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude to search around (requires --lon)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude to search around (requires --lat)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results to print, 0 for all")
	return cmd
}
