package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is one path command from the CLI or an embedding host: a
// dotted command name plus positional string arguments.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is the minimal logging surface the dispatcher needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Dispatcher routes events to registered handlers. Handlers run
// synchronously unless registered Buffered, in which case a per-command
// goroutine drains a queue and Dispatch returns "queued" immediately.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu      sync.RWMutex
	buffers map[string]chan Event // per-command queues, observed by the gauge
}

// New creates a dispatcher. Metrics attach to the global OTel meter,
// which is a no-op unless a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.initMetrics(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) initMetrics() error {
	m := meter()

	var err error
	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"))
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, buf := range d.buffers {
			o.ObserveInt64(d.queueSize, int64(len(buf)),
				metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, d.queueSize)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"))
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"))
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	return nil
}

// regConfig accumulates registration options.
type regConfig struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Option configures handler registration.
type Option func(*regConfig)

// Buffered queues events for the handler instead of running it inline.
func Buffered(size int) Option {
	return func(c *regConfig) { c.bufferSize = size }
}

// Blocking makes a buffered handler wait on a full queue instead of
// dropping the event.
func Blocking() Option {
	return func(c *regConfig) { c.blocking = true }
}

// Logged wraps the handler with debug/error logging and timing.
func Logged() Option {
	return func(c *regConfig) { c.logged = true }
}

// Register binds a handler to a command name. Later registrations for
// the same command replace earlier ones.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &regConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg.bufferSize, cfg.blocking, handler)
	}
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}
	d.handlers[command] = handler
}

// Dispatch routes an event to its handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler reports whether a command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)
	go func() {
		for e := range buffer {
			h(e)
			d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			buffer <- e
			return "queued", nil
		}
	}
	return func(e Event) (any, error) {
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}
		return result, err
	}
}
