// internal/geo/geo.go
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/apexsim/raceline/pkg/core"
)

// Traces are georeferenced in EPSG:3857 (web mercator) so they can be
// dropped onto any slippy-map viewer next to real telemetry; the datum
// anchors the track's local frame to a WGS84 coordinate.

// ErrInvalidDatum is returned when a datum string cannot be parsed.
var ErrInvalidDatum = errors.New("invalid datum provided")

// Meters per degree at the equator, for the local tangent-plane
// approximation around the datum.
const (
	metersPerDegLat = 110540.0
	metersPerDegLon = 111320.0
)

// Datum is the geographic anchor of a track's local coordinate frame:
// the WGS84 position of the world origin. Curve-space +X maps to east,
// +Z to north.
type Datum struct {
	Latitude  float64
	Longitude float64
}

// ParseDatum parses a "lat,lon" string into a Datum.
func ParseDatum(s string) (Datum, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Datum{}, ErrInvalidDatum
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Datum{}, ErrInvalidDatum
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Datum{}, ErrInvalidDatum
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Datum{}, ErrInvalidDatum
	}
	return Datum{Latitude: lat, Longitude: lon}, nil
}

// TraceLineString georeferences a curve-space point sequence into an
// EPSG:3857 LineString. The vertical (Y) component is dropped; the
// ground projection is what map viewers consume.
func TraceLineString(points core.PointList, datum Datum) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, core.ErrInsufficientPoints
	}

	epsg := wgs84.EPSG()
	toMercator := epsg.Transform(4326, 3857)

	lonScale := metersPerDegLon * math.Cos(datum.Latitude*math.Pi/180)

	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		lon := datum.Longitude + p.X/lonScale
		lat := datum.Latitude + p.Z/metersPerDegLat
		x, y, _ := toMercator(lon, lat, 0)
		flat = append(flat, x, y)
	}

	seq := geom.NewSequence(flat, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("building trace linestring: %w", err)
	}
	return ls, nil
}

// TraceWKT returns the georeferenced ground trace of a path as WKT.
func TraceWKT(points core.PointList, datum Datum) (string, error) {
	ls, err := TraceLineString(points, datum)
	if err != nil {
		return "", err
	}
	return ls.AsText(), nil
}
