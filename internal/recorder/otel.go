// internal/recorder/otel.go
package recorder

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/apexsim/raceline/internal/recorder"

// Counters come from the global OTel meter, which is a no-op unless the
// application configured a provider.
var (
	pointsSampled     metric.Int64Counter
	sessionsCompleted metric.Int64Counter
)

func init() {
	m := otel.Meter(instrumentationName)
	pointsSampled, _ = m.Int64Counter(
		"recorder.points.sampled",
		metric.WithDescription("Total path points captured by the distance-gated sampler"),
	)
	sessionsCompleted, _ = m.Int64Counter(
		"recorder.sessions.completed",
		metric.WithDescription("Total recording sessions stopped"),
	)
}

func ctx() context.Context {
	return context.Background()
}
