// pkg/core/point.go
package core

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point3 represents a 3D coordinate in world or curve space.
// It is a value type: copied, never aliased across ownership boundaries.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns p + q.
func (p Point3) Add(q Point3) Point3 {
	return Point3{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Sub returns p - q.
func (p Point3) Sub(q Point3) Point3 {
	return Point3{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Scale returns p scaled by s.
func (p Point3) Scale(s float64) Point3 {
	return Point3{X: p.X * s, Y: p.Y * s, Z: p.Z * s}
}

// Dot returns the dot product of p and q.
func (p Point3) Dot(q Point3) float64 {
	return p.X*q.X + p.Y*q.Y + p.Z*q.Z
}

// Cross returns the cross product of p and q.
func (p Point3) Cross(q Point3) Point3 {
	return Point3{
		X: p.Y*q.Z - p.Z*q.Y,
		Y: p.Z*q.X - p.X*q.Z,
		Z: p.X*q.Y - p.Y*q.X,
	}
}

// Length returns the Euclidean norm of p.
func (p Point3) Length() float64 {
	return math.Sqrt(p.Dot(p))
}

// Distance returns the Euclidean distance between p and q.
func (p Point3) Distance(q Point3) float64 {
	return p.Sub(q).Length()
}

// DistanceSq returns the squared distance between p and q.
// Used for threshold comparisons without the sqrt.
func (p Point3) DistanceSq(q Point3) float64 {
	d := p.Sub(q)
	return d.Dot(d)
}

// Normalize returns p scaled to unit length. A near-zero vector
// normalizes to +X so downstream orientation math stays finite.
func (p Point3) Normalize() Point3 {
	l := p.Length()
	if l < 1e-12 {
		return Point3{X: 1}
	}
	return p.Scale(1 / l)
}

// Lerp returns the linear interpolation between p and q at fraction t.
func (p Point3) Lerp(q Point3, t float64) Point3 {
	return p.Add(q.Sub(p).Scale(t))
}

// PointList is an ordered sequence of points. On the wire it is encoded
// as an array of [x,y,z] triples, not as objects; previously saved
// records depend on this exact shape.
type PointList []Point3

// MarshalJSON encodes the list as [[x,y,z],...].
func (l PointList) MarshalJSON() ([]byte, error) {
	triples := make([][3]float64, len(l))
	for i, p := range l {
		triples[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return json.Marshal(triples)
}

// UnmarshalJSON decodes [[x,y,z],...] into the list. Triples with fewer
// than 3 values are rejected.
func (l *PointList) UnmarshalJSON(data []byte) error {
	var triples [][]float64
	if err := json.Unmarshal(data, &triples); err != nil {
		return fmt.Errorf("failed to parse point list: %w", err)
	}
	points := make(PointList, len(triples))
	for i, t := range triples {
		if len(t) < 3 {
			return fmt.Errorf("point %d has %d values, want 3", i, len(t))
		}
		points[i] = Point3{X: t[0], Y: t[1], Z: t[2]}
	}
	*l = points
	return nil
}

// Clone returns an independent copy of the list.
func (l PointList) Clone() PointList {
	out := make(PointList, len(l))
	copy(out, l)
	return out
}
