package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benvon/trip-planner/internal/itinerary"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/benvon/trip-planner/internal/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// NewTripsCmd creates the trips command with list, show, create and delete subcommands
func NewTripsCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Manage trips",
	}
	cmd.AddCommand(newTripsListCmd(opts))
	cmd.AddCommand(newTripsShowCmd(opts))
	cmd.AddCommand(newTripsCreateCmd(opts))
	cmd.AddCommand(newTripsDeleteCmd(opts))
	return cmd
}

func newTripsListCmd(opts *Options) *cobra.Command {
	var filter, searchText string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trips, latest start date first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateTripFilter(filter); err != nil {
				return err
			}
			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			trips := p.Trips().Filtered(searchText, models.TripFilter(filter))
			out := cmd.OutOrStdout()
			if len(trips) == 0 {
				fmt.Fprintln(out, "No trips found")
				return nil
			}
			for _, t := range trips {
				fmt.Fprintf(out, "%s  %s  (%s)  %d places\n", t.ID, t.DisplayName(), t.FormattedDateRange(), len(t.Itinerary))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(models.TripFilterAll), "Filter: all, upcoming or past")
	cmd.Flags().StringVar(&searchText, "search", "", "Only trips whose destination or description contains this text")
	return cmd
}

func newTripsShowCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trip-id>",
		Short: "Show a trip and its itinerary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTripID(args[0])
			if err != nil {
				return err
			}
			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			trip := p.Trips().Get(id)
			if trip == nil {
				return fmt.Errorf("trip %s: %w", id, planner.ErrTripNotFound)
			}
			printTrip(cmd.OutOrStdout(), trip)
			return nil
		},
	}
}

func newTripsCreateCmd(opts *Options) *cobra.Command {
	var name, destination, description, start, end string
	var staged []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a trip, optionally moving staged places into it",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDate("start", start)
			if err != nil {
				return err
			}
			endDate, err := parseDate("end", end)
			if err != nil {
				return err
			}
			trip := models.NewTrip(name, destination, startDate, endDate)
			trip.Description = description
			if err := validation.ValidateTrip(trip); err != nil {
				return fmt.Errorf("invalid trip: %w", err)
			}

			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			writes, err := p.CreateTrip(cmd.Context(), trip, staged)
			if err != nil {
				return fmt.Errorf("failed to create trip: %w", err)
			}
			if err := saved("trip", writes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created trip %s (%d places)\n", trip.ID, len(trip.Itinerary))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Trip name")
	cmd.Flags().StringVar(&destination, "destination", "", "Destination (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&start, "start", "", "Start date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&end, "end", "", "End date, YYYY-MM-DD (required)")
	cmd.Flags().StringSliceVar(&staged, "staged", nil, "Staged place ids to move into the trip, in order")
	return cmd
}

func newTripsDeleteCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trip-id>",
		Short: "Delete a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTripID(args[0])
			if err != nil {
				return err
			}
			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			res, deleted := p.DeleteTrip(cmd.Context(), id)
			if !deleted {
				return fmt.Errorf("trip %s: %w", id, planner.ErrTripNotFound)
			}
			if err := saved("trips", planner.Writes{res}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted trip %s\n", id)
			return nil
		},
	}
}

func parseTripID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid trip id %q: %w", raw, err)
	}
	return id, nil
}

func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("--%s is required (YYYY-MM-DD)", flag)
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q: %w", flag, value, err)
	}
	return t, nil
}

func printTrip(out io.Writer, trip *models.Trip) {
	fmt.Fprintf(out, "Trip: %s\n", trip.DisplayName())
	fmt.Fprintf(out, "  ID: %s\n", trip.ID)
	fmt.Fprintf(out, "  Destination: %s\n", trip.Destination)
	fmt.Fprintf(out, "  Dates: %s (%d days)\n", trip.FormattedDateRange(), trip.DurationInDays())
	if trip.Description != "" {
		fmt.Fprintf(out, "  Description: %s\n", trip.Description)
	}
	if len(trip.Itinerary) == 0 {
		fmt.Fprintln(out, "  Itinerary: empty")
		return
	}
	fmt.Fprintf(out, "  Itinerary (%s total):\n", models.FormatDistance(itinerary.RouteDistance(trip.DestinationCoordinate, trip.Itinerary)))
	for i, place := range trip.Itinerary {
		fmt.Fprintf(out, "    %d. %s [%s]", i+1, place.Name, place.ResolvedCategory())
		if i+1 < len(trip.Itinerary) {
			fmt.Fprintf(out, "  -> %s", models.FormatDistance(place.Coordinate.DistanceTo(trip.Itinerary[i+1].Coordinate)))
		}
		fmt.Fprintln(out)
	}
}
