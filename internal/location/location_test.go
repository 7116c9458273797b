package location

import (
	"context"
	"testing"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	lat, lon := 48.85, 2.35
	badLat := 120.0

	tests := []struct {
		name    string
		lat     *float64
		lon     *float64
		wantFix bool
	}{
		{name: "both set", lat: &lat, lon: &lon, wantFix: true},
		{name: "missing latitude", lat: nil, lon: &lon, wantFix: false},
		{name: "missing longitude", lat: &lat, lon: nil, wantFix: false},
		{name: "out of range", lat: &badLat, lon: &lon, wantFix: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FromConfig(tt.lat, tt.lon).CurrentLocation(context.Background())
			if err != nil {
				t.Fatalf("CurrentLocation() error = %v", err)
			}
			if (got != nil) != tt.wantFix {
				t.Fatalf("CurrentLocation() = %v, want fix %v", got, tt.wantFix)
			}
			if got != nil && (got.Latitude != lat || got.Longitude != lon) {
				t.Errorf("CurrentLocation() = %v, want %v,%v", got, lat, lon)
			}
		})
	}
}

func TestStaticProvider_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStaticProvider(1, 2).CurrentLocation(ctx); err == nil {
		t.Error("expected context error")
	}
}
