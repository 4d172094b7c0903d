// internal/geo/polyline.go
package geo

import (
	"encoding/json"
	"fmt"

	"github.com/apexsim/raceline/pkg/core"
)

// ParseTrace parses a JSON array of coordinates into a point list.
// Input format: "[[x1,y1,z1],[x2,y2,z2],...]" — the same shape the
// editor puts on the clipboard and the store writes to disk.
func ParseTrace(input string) (core.PointList, error) {
	var points core.PointList
	if err := json.Unmarshal([]byte(input), &points); err != nil {
		return nil, fmt.Errorf("failed to parse trace JSON: %w", err)
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("trace must have at least 2 points, got %d", len(points))
	}

	return points, nil
}
