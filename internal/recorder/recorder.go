// internal/recorder/recorder.go
package recorder

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/apexsim/raceline/internal/curve"
	"github.com/apexsim/raceline/internal/store"
	"github.com/apexsim/raceline/pkg/core"
)

// PositionProvider reports the current world position of the recording
// subject. The bool is false when no position is available this tick.
type PositionProvider func() (core.Point3, bool)

// session holds transient state while a recording is active. It is
// created on Start and consumed on Stop; at most one session is live
// per Recorder.
type session struct {
	name               string
	minSampleDistance  float64
	speed              float64
	params             core.Params
	referenceTransform core.Transform
	refInverse         mgl64.Mat4

	sampledPoints    core.PointList // world space
	lastSampledPoint *core.Point3
}

// Recorder captures a driven trajectory by sampling the subject's world
// position whenever it has moved farther than a minimum distance from
// the last sample. Each Recorder owns its session exclusively; the
// application may create several independent recorders.
type Recorder struct {
	provider PositionProvider
	store    *store.Store
	logger   *slog.Logger

	sess *session
}

// New creates a recorder. The provider may be nil and registered later
// via SetPositionProvider; Start fails until one is present.
func New(provider PositionProvider, st *store.Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		provider: provider,
		store:    st,
		logger:   logger,
	}
}

// SetPositionProvider registers the agent-position callback.
func (r *Recorder) SetPositionProvider(p PositionProvider) {
	r.provider = p
}

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool {
	return r.sess != nil
}

// SampleCount returns the number of points captured so far in the
// active session, or 0 when idle.
func (r *Recorder) SampleCount() int {
	if r.sess == nil {
		return 0
	}
	return len(r.sess.sampledPoints)
}

// Start begins a new recording session, discarding any previous one.
// The reference transform is snapshotted and inverted up front; sampled
// world points are converted to curve space with it on Stop.
// Returns false (and logs) when no position provider is registered or
// the name is empty.
func (r *Recorder) Start(name string, minSampleDistance, speed float64, params core.Params, reference core.Transform) bool {
	if r.provider == nil {
		r.logger.Error("Cannot start recording", "error", core.ErrNotInitialized)
		return false
	}
	if name == "" {
		r.logger.Error("Cannot start recording", "error", core.ErrInvalidName)
		return false
	}

	r.sess = &session{
		name:               name,
		minSampleDistance:  minSampleDistance,
		speed:              speed,
		params:             params.Clone(),
		referenceTransform: reference,
		refInverse:         reference.Mat4().Inv(),
	}
	r.logger.Info("Recording started", "name", name, "minSampleDistance", minSampleDistance)
	return true
}

// Tick samples the subject's position. No-op unless recording. A point
// is appended only when it is the first sample or farther than the
// minimum distance from the last one, so spatial density stays roughly
// uniform regardless of speed or frame rate.
func (r *Recorder) Tick(delta float64) {
	_ = delta // sampling is distance-gated, not time-gated
	if r.sess == nil {
		return
	}
	pos, ok := r.provider()
	if !ok {
		return
	}

	s := r.sess
	if s.lastSampledPoint != nil {
		minSq := s.minSampleDistance * s.minSampleDistance
		if pos.DistanceSq(*s.lastSampledPoint) <= minSq {
			return
		}
	}
	s.sampledPoints = append(s.sampledPoints, pos)
	last := pos
	s.lastSampledPoint = &last
	pointsSampled.Add(ctx(), 1)
}

// Stop ends the session and persists the captured path. Returns nil
// when not recording.
//
// Sampled world points are converted to curve space via the cached
// inverse reference transform. With closeLoop a copy of the first point
// is appended so the raw stored polyline returns to its start; when the
// path is then resampled the duplicate is stripped and the curve is
// built closed instead, which is the canonical loop representation.
// With at least 4 points and a positive resampleCount the points are
// replaced by resampleCount evenly spaced ones; otherwise the raw
// converted points are stored.
//
// The session is always cleared, even when curve construction or
// persistence fails, so the recorder can never get stuck recording.
// The produced record is returned even if the save was not durable.
func (r *Recorder) Stop(closeLoop bool, resampleCount int) *core.PathRecord {
	if r.sess == nil {
		return nil
	}
	s := r.sess
	defer func() {
		r.sess = nil
		sessionsCompleted.Add(ctx(), 1)
	}()

	points := make(core.PointList, 0, len(s.sampledPoints)+1)
	for _, p := range s.sampledPoints {
		points = append(points, core.TransformPoint(s.refInverse, p))
	}
	if closeLoop && len(points) > 0 {
		points = append(points, points[0])
	}

	if len(points) >= 4 && resampleCount > 0 {
		ctrl := points
		if closeLoop {
			ctrl = ctrl[:len(ctrl)-1]
		}
		c, err := curve.New(ctrl, closeLoop)
		if err != nil {
			r.logger.Warn("Curve build failed, storing raw points", "name", s.name, "error", err)
		} else {
			resampled, err := c.Resample(resampleCount)
			if err != nil {
				r.logger.Warn("Resample failed, storing raw points", "name", s.name, "error", err)
			} else {
				points = resampled
			}
		}
	}

	params := s.params
	if params == nil {
		params = core.Params{}
	}
	params["speed"] = s.speed
	params["closed"] = closeLoop

	record := core.NewPathRecord(s.name, s.referenceTransform, params, points)
	r.store.Save(s.name, record)
	r.logger.Info("Recording stopped",
		"name", s.name, "sampled", len(s.sampledPoints), "stored", len(points),
		"closeLoop", closeLoop)
	return record
}
