package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexsim/raceline/internal/curve"
	"github.com/apexsim/raceline/pkg/core"
)

func testCurve(t *testing.T) *curve.Curve {
	t.Helper()
	c, err := curve.New(core.PointList{{X: 0}, {X: 10}, {X: 20}, {X: 30}}, false)
	require.NoError(t, err)
	return c
}

func TestCurveCache_New(t *testing.T) {
	cache := NewCurveCache()

	require.NotNil(t, cache)
	assert.Equal(t, 0, cache.Len())
}

func TestCurveCache_AddAndGet(t *testing.T) {
	cache := NewCurveCache()
	cv := testCurve(t)

	cache.Add("lap1", cv)

	got, ok := cache.Get("lap1")
	require.True(t, ok, "expected to find curve lap1")
	assert.Same(t, cv, got)
}

func TestCurveCache_Get_NotFound(t *testing.T) {
	cache := NewCurveCache()

	_, ok := cache.Get("missing")
	assert.False(t, ok, "expected not to find curve missing")
}

func TestCurveCache_Invalidate(t *testing.T) {
	cache := NewCurveCache()
	cache.Add("lap1", testCurve(t))

	cache.Invalidate("lap1")

	_, ok := cache.Get("lap1")
	assert.False(t, ok, "expected lap1 to be dropped")

	// Invalidating an absent entry is a no-op.
	cache.Invalidate("missing")
}

func TestCurveCache_Reset(t *testing.T) {
	cache := NewCurveCache()
	cache.Add("lap1", testCurve(t))
	cache.Add("lap2", testCurve(t))
	assert.Equal(t, 2, cache.Len())

	cache.Reset()
	assert.Equal(t, 0, cache.Len())

	// Still usable after reset.
	cache.Add("lap3", testCurve(t))
	_, ok := cache.Get("lap3")
	assert.True(t, ok, "expected to find curve added after reset")
}

func TestCurveCache_Map_IsCopy(t *testing.T) {
	cache := NewCurveCache()
	cache.Add("lap1", testCurve(t))

	m := cache.Map()
	require.Len(t, m, 1)

	delete(m, "lap1")
	_, ok := cache.Get("lap1")
	assert.True(t, ok, "mutating the copy must not touch the cache")
}

func TestCurveCache_Concurrent(t *testing.T) {
	cache := NewCurveCache()
	cv := testCurve(t)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			cache.Add(string(rune('a'+i%26)), cv)
		}(i)
		go func(i int) {
			defer wg.Done()
			cache.Get(string(rune('a' + i%26)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, cache.Len())
}

// SafeCounter tests

func TestSafeCounter_InitialValue(t *testing.T) {
	c := &SafeCounter{}
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Set(t *testing.T) {
	c := &SafeCounter{}

	c.Set(42)
	assert.Equal(t, int(42), c.Value())

	c.Set(0)
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Inc(t *testing.T) {
	c := &SafeCounter{}

	c.Inc()
	c.Inc()
	c.Inc()
	assert.Equal(t, int(3), c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	c := &SafeCounter{}
	var wg sync.WaitGroup

	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, int(1000), c.Value())
}
