package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/benvon/trip-planner/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// Snapshot is the export/import document: every trip plus the staging list
type Snapshot struct {
	Trips  []*models.Trip          `json:"trips" yaml:"trips"`
	Staged []models.ItineraryPlace `json:"staged" yaml:"staged"`
}

// NewExportCmd creates the export command
func NewExportCmd(opts *Options) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trips and staged places as JSON or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			snap := Snapshot{Trips: p.Trips().All(), Staged: p.Staging().All()}
			data, err := encodeSnapshot(snap, format)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d trips and %d staged places to %s\n", len(snap.Trips), len(snap.Staged), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

// NewImportCmd creates the import command. Trips whose id already exists are skipped, as are
// staged places that already belong to a trip.
func NewImportCmd(opts *Options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import trips and staged places from a JSON or YAML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if format == "" {
				format = formatFromPath(path)
			}
			raw, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			snap, err := decodeSnapshot(raw, format)
			if err != nil {
				return err
			}

			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := importSnapshot(cmd, p, snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d trips (%d skipped) and %d staged places (%d skipped)\n",
				report.trips, report.tripsSkipped, report.staged, report.stagedSkipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Input format: json or yaml (default from file extension)")
	return cmd
}

type importReport struct {
	trips, tripsSkipped   int
	staged, stagedSkipped int
}

func importSnapshot(cmd *cobra.Command, p *planner.Planner, snap Snapshot) (importReport, error) {
	ctx := cmd.Context()
	var report importReport
	for _, trip := range snap.Trips {
		if trip == nil {
			continue
		}
		if p.Trips().Get(trip.ID) != nil {
			report.tripsSkipped++
			continue
		}
		if err := validation.ValidateTrip(trip); err != nil {
			return report, fmt.Errorf("invalid trip %s: %w", trip.ID, err)
		}
		writes, err := p.CreateTrip(ctx, trip, nil)
		if err != nil {
			return report, fmt.Errorf("failed to import trip %s: %w", trip.ID, err)
		}
		if err := saved("trip", writes); err != nil {
			return report, err
		}
		report.trips++
	}

	for i := range snap.Staged {
		place := snap.Staged[i]
		if err := validation.ValidatePlace(&place); err != nil {
			return report, fmt.Errorf("invalid staged place %q: %w", place.ID, err)
		}
		res, added, err := p.StagePlace(ctx, place)
		if errors.Is(err, planner.ErrAlreadyCommitted) || (err == nil && !added) {
			report.stagedSkipped++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to stage %s: %w", place.ID, err)
		}
		if err := saved("staging", planner.Writes{res}); err != nil {
			return report, err
		}
		report.staged++
	}
	return report, nil
}

func encodeSnapshot(snap Snapshot, format string) ([]byte, error) {
	if snap.Trips == nil {
		snap.Trips = []*models.Trip{}
	}
	if snap.Staged == nil {
		snap.Staged = []models.ItineraryPlace{}
	}
	switch strings.ToLower(format) {
	case formatJSON:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		return append(data, '\n'), nil
	case formatYAML, "yml":
		data, err := yaml.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
}

func decodeSnapshot(data []byte, format string) (Snapshot, error) {
	var snap Snapshot
	switch strings.ToLower(format) {
	case formatJSON:
		if err := json.Unmarshal(data, &snap); err != nil {
			return snap, fmt.Errorf("failed to parse JSON import: %w", err)
		}
	case formatYAML, "yml":
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return snap, fmt.Errorf("failed to parse YAML import: %w", err)
		}
	default:
		return snap, fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
	return snap, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
