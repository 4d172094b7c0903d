package otel

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds OTel configuration.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // file to mirror OTel logs into (required when enabled)
	Endpoint     string    // OTLP endpoint, unused when empty
	Insecure     bool      // plain-HTTP OTLP
}

// Provider owns the OpenTelemetry log pipeline. At least one of
// LogWriter and Endpoint must be configured when enabled; both may be
// active at once, each behind its own batch processor.
type Provider struct {
	logProvider *sdklog.LoggerProvider
	config      Config
}

// New creates a provider. A disabled config yields a no-op provider so
// callers never need to branch.
func New(cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	processors, err := buildProcessors(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(processors) == 0 {
		return nil, fmt.Errorf("otel enabled but neither log writer nor endpoint configured")
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}
	p.logProvider = sdklog.NewLoggerProvider(opts...)
	return p, nil
}

func buildProcessors(ctx context.Context, cfg Config) ([]sdklog.Processor, error) {
	var processors []sdklog.Processor

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(
			stdoutlog.WithWriter(cfg.LogWriter),
			stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating file log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	if cfg.Endpoint != "" {
		otlpOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	return processors, nil
}

// LoggerProvider returns the log provider for the otelslog bridge, nil
// when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a no-op meter; the command and recorder counters attach
// to the global meter provider instead.
func (p *Provider) Meter(name string) metric.Meter {
	return noop.Meter{}
}

// Flush exports all pending logs. Called when a recording session is
// persisted so its telemetry lands alongside it.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown stops the pipeline. Call once at process exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}

// Enabled reports whether the pipeline is active.
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
