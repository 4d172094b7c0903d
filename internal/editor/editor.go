// internal/editor/editor.go
package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"

	"github.com/apexsim/raceline/internal/geo"
	"github.com/apexsim/raceline/internal/store"
	"github.com/apexsim/raceline/pkg/core"
)

// Ray is a world-space ray produced from a screen position.
type Ray struct {
	Origin core.Point3
	Dir    core.Point3
}

// RayCaster converts screen coordinates into a world ray using the
// active camera. Implemented by the rendering layer.
type RayCaster interface {
	ScreenRay(screenX, screenY float64) Ray
}

// Surface is a reference mesh the editor places points onto, typically
// the track surface.
type Surface interface {
	Intersect(r Ray) (core.Point3, bool)
}

// ClipboardFunc copies text out of the process. Failures are tolerated.
type ClipboardFunc func(text string) error

// RebuildFunc replaces the editor's visual polyline and markers with a
// fresh point set. Called with the full list on every change; the
// visual is rebuilt from scratch, never patched incrementally.
type RebuildFunc func(points core.PointList)

// Editor is the interactive point-placement tool: modifier-gated
// pointer clicks become world points via ray intersection against the
// reference surface, falling back to the horizontal plane through the
// world origin.
type Editor struct {
	caster    RayCaster
	surface   Surface // may be nil
	store     *store.Store
	clipboard ClipboardFunc
	rebuild   RebuildFunc
	datum     *geo.Datum // georeferences exports when set
	logger    *slog.Logger

	points core.PointList
}

// Option configures an Editor.
type Option func(*Editor)

// WithSurface registers the reference surface for click intersection.
func WithSurface(s Surface) Option {
	return func(e *Editor) { e.surface = s }
}

// WithClipboard overrides the clipboard writer (the system clipboard by
// default).
func WithClipboard(f ClipboardFunc) Option {
	return func(e *Editor) { e.clipboard = f }
}

// WithRebuild registers the visual polyline rebuild callback.
func WithRebuild(f RebuildFunc) Option {
	return func(e *Editor) { e.rebuild = f }
}

// WithDatum anchors the track's local frame to a WGS84 coordinate so
// exports also produce a georeferenced ground trace.
func WithDatum(d geo.Datum) Option {
	return func(e *Editor) { e.datum = &d }
}

// New creates an editor.
func New(caster RayCaster, st *store.Store, logger *slog.Logger, opts ...Option) *Editor {
	e := &Editor{
		caster:    caster,
		store:     st,
		clipboard: clipboard.WriteAll,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Points returns a copy of the accumulated points.
func (e *Editor) Points() core.PointList {
	return e.points.Clone()
}

// HandleClick places a point for a pointer click at the given screen
// coordinates. Clicks without the modifier held are ignored. Returns
// true when a point was placed.
func (e *Editor) HandleClick(screenX, screenY float64, modifier bool) bool {
	if !modifier {
		return false
	}

	ray := e.caster.ScreenRay(screenX, screenY)

	var point core.Point3
	hit := false
	if e.surface != nil {
		point, hit = e.surface.Intersect(ray)
	}
	if !hit {
		point, hit = intersectGroundPlane(ray)
	}
	if !hit {
		e.logger.Debug("Click ray missed surface and ground plane",
			"x", screenX, "y", screenY)
		return false
	}

	e.points = append(e.points, point)
	e.rebuildVisual()
	e.logger.Debug("Placed path point", "index", len(e.points)-1, "point", point)
	return true
}

// Export saves the accumulated points as a new uniquely-named record
// and best-effort copies the serialized form to the clipboard. A
// clipboard failure is logged and does not prevent the save. When a
// datum is configured the georeferenced WKT ground trace is logged too,
// ready to paste into GIS tools. Returns nil when no points have been
// placed.
func (e *Editor) Export() *core.PathRecord {
	if len(e.points) == 0 {
		e.logger.Warn("Nothing to export, no points placed")
		return nil
	}

	name := fmt.Sprintf("edited_%s", time.Now().Format("20060102_150405"))
	record := core.NewPathRecord(name, core.IdentityTransform(), core.Params{"speed": 0.05}, e.points)
	e.store.Save(name, record)

	serialized, err := json.Marshal(record.Points)
	if err == nil {
		if cbErr := e.clipboard(string(serialized)); cbErr != nil {
			e.logger.Warn("Clipboard copy failed, record saved anyway",
				"name", name, "error", cbErr)
		}
	}

	if e.datum != nil {
		wkt, traceErr := geo.TraceWKT(record.Points, *e.datum)
		if traceErr != nil {
			e.logger.Warn("Ground trace skipped", "name", name, "error", traceErr)
		} else {
			e.logger.Info("Ground trace", "name", name, "wkt", wkt)
		}
	}

	e.logger.Info("Exported edited path", "name", name, "points", len(e.points))
	return record
}

// Clear empties the point list and visual state. Idempotent.
func (e *Editor) Clear() {
	e.points = nil
	e.rebuildVisual()
}

func (e *Editor) rebuildVisual() {
	if e.rebuild == nil {
		return
	}
	e.rebuild(e.points.Clone())
}

// intersectGroundPlane intersects the ray with the y=0 plane. Misses
// when the ray is parallel to the plane or points away from it.
func intersectGroundPlane(r Ray) (core.Point3, bool) {
	if r.Dir.Y > -1e-12 && r.Dir.Y < 1e-12 {
		return core.Point3{}, false
	}
	t := -r.Origin.Y / r.Dir.Y
	if t < 0 {
		return core.Point3{}, false
	}
	return r.Origin.Add(r.Dir.Scale(t)), true
}
