// pkg/core/record.go
package core

import "time"

// Params is a freeform snapshot of settings captured alongside a path.
// The "speed" key is always present for records produced by the recorder.
type Params map[string]any

// Speed returns the speed parameter, or the given fallback when absent
// or not numeric.
func (p Params) Speed(fallback float64) float64 {
	v, ok := p["speed"]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	default:
		return fallback
	}
}

// Clone returns a shallow copy of the parameter map.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// PathRecord is the persisted unit of the path store: a named point
// sequence in curve space plus the world transform and parameter
// snapshot captured when it was saved. Records are never mutated in
// place; re-saving under the same name fully replaces the record.
type PathRecord struct {
	Name      string    `json:"name"`
	CreatedAt int64     `json:"createdAt"` // unix milliseconds
	Transform Transform `json:"transform"`
	Params    Params    `json:"params"`
	Points    PointList `json:"points"`
}

// NewPathRecord builds a record stamped with the current time.
func NewPathRecord(name string, transform Transform, params Params, points PointList) *PathRecord {
	return &PathRecord{
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
		Transform: transform,
		Params:    params.Clone(),
		Points:    points.Clone(),
	}
}

// Clone returns an independent deep copy of the record.
func (r *PathRecord) Clone() *PathRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Params = r.Params.Clone()
	out.Points = r.Points.Clone()
	return &out
}
