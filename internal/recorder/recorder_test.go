package recorder

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexsim/raceline/internal/store"
	"github.com/apexsim/raceline/pkg/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	slot, err := store.NewFileSlot(filepath.Join(t.TempDir(), "paths.json"))
	require.NoError(t, err)
	return store.New(slot, testLogger())
}

// movingProvider walks a subject along a script of positions, one per
// call.
type movingProvider struct {
	positions []core.Point3
	idx       int
}

func (m *movingProvider) next() (core.Point3, bool) {
	if m.idx >= len(m.positions) {
		if len(m.positions) == 0 {
			return core.Point3{}, false
		}
		return m.positions[len(m.positions)-1], true
	}
	p := m.positions[m.idx]
	m.idx++
	return p, true
}

func TestStartRequiresProvider(t *testing.T) {
	r := New(nil, testStore(t), testLogger())
	assert.False(t, r.Start("loop1", 1, 0.1, nil, core.IdentityTransform()))
	assert.False(t, r.Recording())
}

func TestStartRequiresName(t *testing.T) {
	r := New(func() (core.Point3, bool) { return core.Point3{}, true }, testStore(t), testLogger())
	assert.False(t, r.Start("", 1, 0.1, nil, core.IdentityTransform()))
	assert.False(t, r.Recording())
}

func TestStartDiscardsPreviousSession(t *testing.T) {
	prov := &movingProvider{positions: []core.Point3{{X: 0}, {X: 5}, {X: 10}}}
	r := New(prov.next, testStore(t), testLogger())

	require.True(t, r.Start("first", 1, 0.1, nil, core.IdentityTransform()))
	r.Tick(0.016)
	r.Tick(0.016)
	assert.Equal(t, 2, r.SampleCount())

	require.True(t, r.Start("second", 1, 0.1, nil, core.IdentityTransform()))
	assert.Equal(t, 0, r.SampleCount())
}

func TestDistanceGatedSampling(t *testing.T) {
	// A subject moving along a straight line at constant speed must
	// produce a point count that depends on distance travelled, not on
	// how many ticks happened.
	const speed = 10.0 // units per second
	const duration = 4.0
	const minDist = 1.0

	counts := map[int]int{}
	for _, hz := range []int{120, 240, 480} {
		ticks := int(duration * float64(hz))
		dt := 1.0 / float64(hz)

		x := 0.0
		r := New(func() (core.Point3, bool) {
			return core.Point3{X: x}, true
		}, testStore(t), testLogger())
		require.True(t, r.Start("line", minDist, 0.1, nil, core.IdentityTransform()))

		for i := 0; i < ticks; i++ {
			r.Tick(dt)
			x += speed * dt
		}
		counts[hz] = r.SampleCount()
	}

	// ~40 units of travel at 1 unit spacing. The sampler overshoots the
	// threshold by at most one step, so counts agree within rounding.
	assert.InDelta(t, counts[240], counts[120], 3)
	assert.InDelta(t, counts[240], counts[480], 3)
	for hz, n := range counts {
		assert.InDelta(t, 40, n, 4, "hz=%d", hz)
	}
}

func TestTickIgnoredWhenIdle(t *testing.T) {
	prov := &movingProvider{positions: []core.Point3{{X: 0}}}
	r := New(prov.next, testStore(t), testLogger())
	r.Tick(0.016)
	assert.Equal(t, 0, r.SampleCount())
}

func TestStopWhenIdleReturnsNil(t *testing.T) {
	r := New(func() (core.Point3, bool) { return core.Point3{}, true }, testStore(t), testLogger())
	assert.Nil(t, r.Stop(false, 16))
}

func TestStopStoresRawPointsWhenTooFew(t *testing.T) {
	prov := &movingProvider{positions: []core.Point3{{X: 0}, {X: 5}, {X: 10}}}
	st := testStore(t)
	r := New(prov.next, st, testLogger())

	require.True(t, r.Start("short", 1, 0.2, nil, core.IdentityTransform()))
	for i := 0; i < 3; i++ {
		r.Tick(0.016)
	}
	rec := r.Stop(false, 16)

	require.NotNil(t, rec)
	assert.Len(t, rec.Points, 3)
	assert.False(t, r.Recording())
	assert.NotNil(t, st.Load("short"))
}

func TestStopConvertsToCurveSpace(t *testing.T) {
	prov := &movingProvider{positions: []core.Point3{{X: 10}, {X: 15}}}
	r := New(prov.next, testStore(t), testLogger())

	ref := core.Transform{
		Position: core.Point3{X: 10},
		Scale:    core.Point3{X: 1, Y: 1, Z: 1},
	}
	require.True(t, r.Start("offset", 1, 0.1, nil, ref))
	r.Tick(0.016)
	r.Tick(0.016)
	rec := r.Stop(false, 0)

	require.NotNil(t, rec)
	require.Len(t, rec.Points, 2)
	assert.InDelta(t, 0, rec.Points[0].X, 1e-9)
	assert.InDelta(t, 5, rec.Points[1].X, 1e-9)
	assert.Equal(t, ref, rec.Transform)
}

func TestRecordPlaybackLoopScenario(t *testing.T) {
	// 20 positions along a 20-unit circle at ~1 unit spacing.
	positions := make([]core.Point3, 20)
	radius := 20.0 / (2 * math.Pi)
	for i := range positions {
		a := 2 * math.Pi * float64(i) / 20
		positions[i] = core.Point3{X: radius * math.Cos(a), Z: radius * math.Sin(a)}
	}
	prov := &movingProvider{positions: positions}
	st := testStore(t)
	r := New(prov.next, st, testLogger())

	require.True(t, r.Start("loop1", 0.5, 0.1, core.Params{"surface": "tarmac"}, core.IdentityTransform()))
	for range positions {
		r.Tick(1.0 / 60)
	}
	rec := r.Stop(true, 16)

	require.NotNil(t, rec)
	assert.Len(t, rec.Points, 16)
	assert.Contains(t, st.List(), "loop1")
	assert.Equal(t, 0.1, rec.Params["speed"])
	assert.Equal(t, "tarmac", rec.Params["surface"])
	assert.Equal(t, true, rec.Params["closed"])
	assert.False(t, r.Recording())
}

func TestStopCloseLoopWithoutResampleAppendsFirstPoint(t *testing.T) {
	prov := &movingProvider{positions: []core.Point3{{X: 0}, {X: 5}, {X: 5, Z: 5}}}
	r := New(prov.next, testStore(t), testLogger())

	require.True(t, r.Start("tri", 1, 0.1, nil, core.IdentityTransform()))
	for i := 0; i < 3; i++ {
		r.Tick(0.016)
	}
	rec := r.Stop(true, 0)

	require.NotNil(t, rec)
	require.Len(t, rec.Points, 4)
	assert.Equal(t, rec.Points[0], rec.Points[3])
}
