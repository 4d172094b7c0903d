// internal/curve/curve.go
package curve

import (
	"fmt"
	"math"

	"github.com/apexsim/raceline/pkg/core"
)

// tangentEpsilon is the half-width of the central-difference window used
// by TangentAt, in curve-parameter space.
const tangentEpsilon = 1e-4

// minKnotInterval keeps the centripetal knot spacing away from zero for
// duplicate or near-duplicate control points. Near-zero segments are not
// rejected but can locally destabilize the tangent.
const minKnotInterval = 1e-6

// Curve is a smooth parametric curve through an ordered set of control
// points, using centripetal Catmull-Rom interpolation. Once built it is
// immutable; two curves never share mutable state.
type Curve struct {
	points core.PointList
	closed bool
}

// New builds a curve through the given points. A closed curve wraps so
// position and tangent at parameter 1 equal parameter 0.
// Fewer than 2 points is a degenerate request and fails with
// core.ErrInsufficientPoints; 2-3 points produce a straight/loose
// fallback rather than a visually smooth spline.
func New(points []core.Point3, closed bool) (*Curve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: got %d, want at least 2", core.ErrInsufficientPoints, len(points))
	}
	pts := make(core.PointList, len(points))
	copy(pts, points)
	return &Curve{points: pts, closed: closed}, nil
}

// Closed reports whether the curve wraps around.
func (c *Curve) Closed() bool {
	return c.closed
}

// ControlPoints returns a copy of the control points.
func (c *Curve) ControlPoints() core.PointList {
	return c.points.Clone()
}

// PointAt evaluates the curve at parameter t. Open curves clamp t to
// [0,1]; closed curves wrap it modulo 1.
func (c *Curve) PointAt(t float64) core.Point3 {
	n := len(c.points)

	if c.closed {
		t = wrap01(t)
		segCount := n
		f := t * float64(segCount)
		seg := int(math.Floor(f))
		if seg >= segCount {
			seg = segCount - 1
		}
		local := f - float64(seg)
		p0 := c.points[mod(seg-1, n)]
		p1 := c.points[mod(seg, n)]
		p2 := c.points[mod(seg+1, n)]
		p3 := c.points[mod(seg+2, n)]
		return catmullRom(p0, p1, p2, p3, local)
	}

	t = clamp01(t)
	if n == 2 {
		return c.points[0].Lerp(c.points[1], t)
	}
	segCount := n - 1
	f := t * float64(segCount)
	seg := int(math.Floor(f))
	if seg >= segCount {
		seg = segCount - 1
	}
	local := f - float64(seg)

	p1 := c.points[seg]
	p2 := c.points[seg+1]
	var p0, p3 core.Point3
	if seg == 0 {
		// Phantom start: reflect the first segment.
		p0 = p1.Add(p1.Sub(p2))
	} else {
		p0 = c.points[seg-1]
	}
	if seg+2 >= n {
		// Phantom end: reflect the last segment.
		p3 = p2.Add(p2.Sub(p1))
	} else {
		p3 = c.points[seg+2]
	}
	return catmullRom(p0, p1, p2, p3, local)
}

// TangentAt returns the unit tangent at parameter t via central finite
// difference on PointAt. On open curves the sampling window clamps to
// stay inside [0,1], so exact endpoint tangents are approximate.
func (c *Curve) TangentAt(t float64) core.Point3 {
	var lo, hi float64
	if c.closed {
		lo = t - tangentEpsilon
		hi = t + tangentEpsilon
	} else {
		t = clamp01(t)
		lo = math.Max(0, t-tangentEpsilon)
		hi = math.Min(1, t+tangentEpsilon)
	}
	d := c.PointAt(hi).Sub(c.PointAt(lo))
	return d.Normalize()
}

// Length approximates the curve length by sampling divisions segments
// and summing consecutive distances. Converges monotonically as
// divisions increases.
func (c *Curve) Length(divisions int) float64 {
	if divisions < 1 {
		divisions = 1
	}
	total := 0.0
	prev := c.PointAt(0)
	for i := 1; i <= divisions; i++ {
		p := c.PointAt(float64(i) / float64(divisions))
		total += prev.Distance(p)
		prev = p
	}
	return total
}

// Resample returns count points at equal arc-length spacing along the
// curve, the first at t=0. For closed curves the last point does not
// duplicate the first.
func (c *Curve) Resample(count int) (core.PointList, error) {
	if count < 2 {
		return nil, fmt.Errorf("%w: resample count %d, want at least 2", core.ErrInvalidArgument, count)
	}

	divisions := 4 * len(c.points)
	if divisions < 512 {
		divisions = 512
	}

	// Cumulative arc-length table over uniform parameter samples.
	lengths := make([]float64, divisions+1)
	prev := c.PointAt(0)
	for i := 1; i <= divisions; i++ {
		p := c.PointAt(float64(i) / float64(divisions))
		lengths[i] = lengths[i-1] + prev.Distance(p)
		prev = p
	}
	total := lengths[divisions]

	out := make(core.PointList, count)
	var step float64
	if c.closed {
		step = total / float64(count)
	} else {
		step = total / float64(count-1)
	}

	idx := 0
	for i := 0; i < count; i++ {
		target := float64(i) * step
		for idx < divisions && lengths[idx+1] < target {
			idx++
		}
		segLen := lengths[idx+1] - lengths[idx]
		frac := 0.0
		if segLen > 0 {
			frac = (target - lengths[idx]) / segLen
		}
		t := (float64(idx) + frac) / float64(divisions)
		out[i] = c.PointAt(t)
	}
	return out, nil
}

// catmullRom evaluates one centripetal Catmull-Rom segment between p1
// and p2 at local parameter t in [0,1], using the Barry-Goldman
// pyramidal formulation with alpha = 0.5 knot spacing.
func catmullRom(p0, p1, p2, p3 core.Point3, t float64) core.Point3 {
	t0 := 0.0
	t1 := t0 + knotInterval(p0, p1)
	t2 := t1 + knotInterval(p1, p2)
	t3 := t2 + knotInterval(p2, p3)

	u := t1 + t*(t2-t1)

	a1 := interpolate(p0, p1, t0, t1, u)
	a2 := interpolate(p1, p2, t1, t2, u)
	a3 := interpolate(p2, p3, t2, t3, u)
	b1 := interpolate(a1, a2, t0, t2, u)
	b2 := interpolate(a2, a3, t1, t3, u)
	return interpolate(b1, b2, t1, t2, u)
}

// knotInterval returns the centripetal knot spacing |b-a|^0.5, floored
// to keep duplicate points from collapsing the parameterization.
func knotInterval(a, b core.Point3) float64 {
	d := math.Sqrt(a.Distance(b))
	if d < minKnotInterval {
		return minKnotInterval
	}
	return d
}

func interpolate(a, b core.Point3, ta, tb, u float64) core.Point3 {
	span := tb - ta
	if span < 1e-12 {
		return a
	}
	w := (u - ta) / span
	return a.Scale(1 - w).Add(b.Scale(w))
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func wrap01(t float64) float64 {
	t = math.Mod(t, 1)
	if t < 0 {
		t += 1
	}
	return t
}

func mod(i, n int) int {
	return ((i % n) + n) % n
}
