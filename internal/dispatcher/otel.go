package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/apexsim/raceline/internal/dispatcher"

// meter resolves lazily so an OTel provider installed after package
// init is still picked up.
func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
