package geo

import (
	"io"
	"log/slog"
	"testing"
)

func testValidator() *Validator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewValidator(41.613889, -72.7725, 67, logger)
}

func TestValidAcceptsNearbyPosition(t *testing.T) {
	if !testValidator().Valid(41.6, -72.7) {
		t.Fatal("expected position near the center to be valid")
	}
}

func TestValidRejectsNullIsland(t *testing.T) {
	if testValidator().Valid(0, 0) {
		t.Fatal("expected (0, 0) to fail the distance check")
	}
}

func TestValidRejectsOutOfRangeCoordinates(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude above 90", 95, -72.7},
		{"latitude below -90", -95, -72.7},
		{"longitude above 180", 41.6, 181},
		{"longitude below -180", 41.6, -181},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if testValidator().Valid(tc.lat, tc.lon) {
				t.Fatalf("expected (%v, %v) to fail the bounding-box check", tc.lat, tc.lon)
			}
		})
	}
}

func TestValidRejectsBeyondMaxDistance(t *testing.T) {
	// Boston is roughly 80 miles from the Connecticut center.
	if testValidator().Valid(42.36, -71.06) {
		t.Fatal("expected position beyond 67 miles to be rejected")
	}
}

func TestValidAcceptsExactCenter(t *testing.T) {
	if !testValidator().Valid(41.613889, -72.7725) {
		t.Fatal("expected the center itself to be valid")
	}
}
