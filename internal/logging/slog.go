package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Indirections for tests that capture console output.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager owns the process-wide slog configuration: a text handler
// on the console or a session log file, plus an optional OTel bridge.
type SlogManager struct {
	logger *slog.Logger
	base   slog.Handler

	// Dynamic per-record attrs, e.g. the active session.
	contextProvider ContextProvider

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes logging. When file is non-nil records go there,
// otherwise to stdout; a non-nil provider additionally bridges records
// into OTel.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler("raceline", otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	m.base = NewMultiHandler(handlers...)
	m.rebuild()
	m.logger.Info("Logging initialized", "level", level)
}

// SetContextProvider injects dynamic attributes into every record. Call
// after Setup; a nil provider removes the injection.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.contextProvider = p
	if m.base != nil {
		m.rebuild()
	}
}

func (m *SlogManager) rebuild() {
	h := m.base
	if m.contextProvider != nil {
		h = NewContextHandler(h, m.contextProvider)
	}
	m.logger = slog.New(h)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Setup not called yet
		return slog.Default()
	}
	return m.logger
}

// Component returns a logger tagged for one subsystem, e.g. "recorder"
// or "store".
func (m *SlogManager) Component(name string) *slog.Logger {
	return m.Logger().With("component", name)
}

// Flush forces a flush of bridged OTel logs if a provider is attached.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
