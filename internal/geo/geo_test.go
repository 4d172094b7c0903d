package geo

import (
	"errors"
	"strings"
	"testing"

	"github.com/apexsim/raceline/pkg/core"
)

func TestParseDatum_Valid(t *testing.T) {
	d, err := ParseDatum("52.07, -1.01")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Latitude != 52.07 {
		t.Errorf("expected latitude=52.07, got %f", d.Latitude)
	}
	if d.Longitude != -1.01 {
		t.Errorf("expected longitude=-1.01, got %f", d.Longitude)
	}
}

func TestParseDatum_MissingComponent(t *testing.T) {
	_, err := ParseDatum("52.07")
	if !errors.Is(err, ErrInvalidDatum) {
		t.Errorf("expected ErrInvalidDatum, got %v", err)
	}
}

func TestParseDatum_NotNumeric(t *testing.T) {
	_, err := ParseDatum("fifty two,minus one")
	if !errors.Is(err, ErrInvalidDatum) {
		t.Errorf("expected ErrInvalidDatum, got %v", err)
	}
}

func TestParseDatum_OutOfRange(t *testing.T) {
	_, err := ParseDatum("91,0")
	if !errors.Is(err, ErrInvalidDatum) {
		t.Errorf("expected ErrInvalidDatum, got %v", err)
	}
	_, err = ParseDatum("0,181")
	if !errors.Is(err, ErrInvalidDatum) {
		t.Errorf("expected ErrInvalidDatum, got %v", err)
	}
}

func TestTraceWKT_Shape(t *testing.T) {
	points := core.PointList{
		{X: 0, Y: 0, Z: 0},
		{X: 100, Y: 2, Z: 0},
		{X: 100, Y: 2, Z: 100},
	}
	datum := Datum{Latitude: 52.07, Longitude: -1.01}

	wkt, err := TraceWKT(points, datum)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(wkt, "LINESTRING") {
		t.Errorf("expected LINESTRING WKT, got %q", wkt)
	}
	if strings.Count(wkt, ",") != 2 {
		t.Errorf("expected 3 coordinates in %q", wkt)
	}
}

func TestTraceLineString_PreservesSpacingRoughly(t *testing.T) {
	// Two points 100m apart east-west should land ~100m apart in
	// mercator scaled by 1/cos(lat).
	points := core.PointList{{X: 0}, {X: 100}}
	datum := Datum{Latitude: 0, Longitude: 0}

	ls, err := TraceLineString(points, datum)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq := ls.Coordinates()
	if seq.Length() != 2 {
		t.Fatalf("expected 2 coordinates, got %d", seq.Length())
	}
	dx := seq.Get(1).X - seq.Get(0).X
	if dx < 95 || dx > 105 {
		t.Errorf("expected ~100m mercator spacing at the equator, got %f", dx)
	}
}

func TestTraceLineString_TooFewPoints(t *testing.T) {
	_, err := TraceLineString(core.PointList{{X: 1}}, Datum{})
	if !errors.Is(err, core.ErrInsufficientPoints) {
		t.Errorf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestTraceWKT_PropagatesError(t *testing.T) {
	_, err := TraceWKT(core.PointList{{X: 1}}, Datum{})
	if !errors.Is(err, core.ErrInsufficientPoints) {
		t.Errorf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestParseTrace_Valid(t *testing.T) {
	points, err := ParseTrace("[[0,0,0],[10,1,5],[20,0,10]]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[1].Z != 5 {
		t.Errorf("expected Z=5, got %f", points[1].Z)
	}
}

func TestParseTrace_InvalidJSON(t *testing.T) {
	_, err := ParseTrace("not json")
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseTrace_TooFewPoints(t *testing.T) {
	_, err := ParseTrace("[[1,2,3]]")
	if err == nil {
		t.Error("expected error for single-point trace")
	}
}
