package session

import (
	"log/slog"
	"sync"
	"time"
)

// Context holds the current playback session state shared across
// subsystems: the session id, the path driving playback and whether a
// recording is in progress.
type Context struct {
	mu         sync.RWMutex
	id         string
	start      time.Time
	activePath string
	recording  bool
}

// NewContext creates a Context for a session starting at the given
// time. The session id is derived from the start time.
func NewContext(start time.Time) *Context {
	return &Context{
		id:    start.Format("20060102_150405"),
		start: start,
	}
}

// ID returns the session identifier.
func (c *Context) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Start returns the session start time.
func (c *Context) Start() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.start
}

// ActivePath returns the path currently driving playback, or "" when
// none is set.
func (c *Context) ActivePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activePath
}

// SetActivePath records the path driving playback.
func (c *Context) SetActivePath(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activePath = name
}

// Recording reports whether a recording session is in progress.
func (c *Context) Recording() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recording
}

// SetRecording flags a recording session.
func (c *Context) SetRecording(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = on
}

// Attrs returns the session state as slog attributes for injection into
// every log record.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()

	attrs := []slog.Attr{slog.String("session", c.id)}
	if c.activePath != "" {
		attrs = append(attrs, slog.String("activePath", c.activePath))
	}
	if c.recording {
		attrs = append(attrs, slog.Bool("recording", true))
	}
	return attrs
}
