package cache

import (
	"sync"

	"github.com/apexsim/raceline/internal/curve"
)

// CurveCache caches built playback curves keyed by path name so an
// assignment does not rebuild the interpolation tables every time.
// Latency in these calls is critical: lookups happen on the sim tick.
type CurveCache struct {
	m      sync.Mutex
	curves map[string]*curve.Curve
}

func NewCurveCache() *CurveCache {
	return &CurveCache{
		curves: make(map[string]*curve.Curve),
	}
}

func (c *CurveCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.curves = make(map[string]*curve.Curve)
}

func (c *CurveCache) Get(name string) (*curve.Curve, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if cv, ok := c.curves[name]; ok {
		return cv, true
	}
	return nil, false
}

func (c *CurveCache) Add(name string, cv *curve.Curve) {
	c.m.Lock()
	defer c.m.Unlock()
	c.curves[name] = cv
}

// Invalidate drops one entry, typically after its record was deleted or
// re-recorded under the same name.
func (c *CurveCache) Invalidate(name string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.curves, name)
}

func (c *CurveCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.curves)
}

// Map returns a shallow copy of the cached curves for bulk consumers.
func (c *CurveCache) Map() map[string]*curve.Curve {
	c.m.Lock()
	defer c.m.Unlock()
	out := make(map[string]*curve.Curve, len(c.curves))
	for name, cv := range c.curves {
		out[name] = cv
	}
	return out
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
