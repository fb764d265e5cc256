// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling, and provides the span and instrument helpers the
// application layer records with.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"github.com/grafana/pyroscope-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled           bool // traces and metrics
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	ServiceVersion    string
	SamplingRatio     float64
	MetricsInterval   time.Duration // Default: 60s
	LogsEnabled       bool

	ProfilerEnabled bool
	ProfilerServer  string
}

// Option overrides how Setup builds its pipelines.
type Option func(*setupOptions)

type setupOptions struct {
	spanExporter sdktrace.SpanExporter
	metricReader sdkmetric.Reader
	logExporter  sdklog.Exporter
}

// WithSpanExporter replaces the OTLP trace exporter.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *setupOptions) { o.spanExporter = exp }
}

// WithMetricReader replaces the periodic OTLP metric reader.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *setupOptions) { o.metricReader = r }
}

// WithLogExporter replaces the OTLP log exporter.
func WithLogExporter(exp sdklog.Exporter) Option {
	return func(o *setupOptions) { o.logExporter = exp }
}

// Providers owns every telemetry pipeline of the process. A disabled
// pipeline leaves its field nil and callers fall back to the global no-op.
type Providers struct {
	logger   *zap.Logger
	config   Config
	tracer   *sdktrace.TracerProvider
	meter    *sdkmetric.MeterProvider
	logs     *sdklog.LoggerProvider
	profiler *pyroscope.Profiler
}

// Setup builds the configured pipelines and installs them as the otel
// globals. On failure everything already started is shut down again.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger, opts ...Option) (_ *Providers, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}

	p := &Providers{logger: logger, config: cfg}
	if !cfg.Enabled && !cfg.LogsEnabled && !cfg.ProfilerEnabled {
		logger.Info("Telemetry disabled, using no-op providers")
		return p, nil
	}
	defer func() {
		if err != nil {
			_ = p.Shutdown(context.Background())
		}
	}()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if cfg.Enabled {
		if err := p.startTraces(ctx, res, o.spanExporter); err != nil {
			return nil, err
		}
		if err := p.startMetrics(ctx, res, o.metricReader); err != nil {
			return nil, err
		}
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}
	if cfg.LogsEnabled {
		if err := p.startLogs(ctx, res, o.logExporter); err != nil {
			return nil, err
		}
	}
	if cfg.ProfilerEnabled {
		if err := p.startProfiler(); err != nil {
			return nil, err
		}
	}

	logger.Info("Telemetry initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("traces_metrics", cfg.Enabled),
		zap.Bool("logs", cfg.LogsEnabled),
		zap.Bool("profiler", cfg.ProfilerEnabled),
	)
	return p, nil
}

func (p *Providers) startTraces(ctx context.Context, res *resource.Resource, exp sdktrace.SpanExporter) error {
	if exp == nil {
		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.CollectorEndpoint)}
		if p.config.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		var err error
		if exp, err = otlptracegrpc.New(ctx, exporterOpts...); err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
	}

	p.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(p.config.SamplingRatio)),
	)
	otel.SetTracerProvider(p.tracer)
	return nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func (p *Providers) startMetrics(ctx context.Context, res *resource.Resource, reader sdkmetric.Reader) error {
	if reader == nil {
		exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.config.CollectorEndpoint)}
		if p.config.Insecure {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, exporterOpts...)
		if err != nil {
			return fmt.Errorf("failed to create metric exporter: %w", err)
		}
		interval := p.config.MetricsInterval
		if interval <= 0 {
			interval = 60 * time.Second
		}
		reader = sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))
	}

	p.meter = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(p.meter)
	return nil
}

func (p *Providers) startLogs(ctx context.Context, res *resource.Resource, exp sdklog.Exporter) error {
	if exp == nil {
		exporterOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.config.CollectorEndpoint)}
		if p.config.Insecure {
			exporterOpts = append(exporterOpts, otlploggrpc.WithInsecure())
		}
		var err error
		if exp, err = otlploggrpc.New(ctx, exporterOpts...); err != nil {
			return fmt.Errorf("failed to create log exporter: %w", err)
		}
	}

	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)
	return nil
}

// startProfiler starts Pyroscope and, when traces are on, labels CPU samples
// with the active span so profiles can be opened from a trace.
func (p *Providers) startProfiler() error {
	if p.config.ProfilerServer == "" {
		return errors.New("profiler server address is required when profiling is enabled")
	}

	tags := map[string]string{}
	if hostname, err := os.Hostname(); err == nil {
		tags["hostname"] = hostname
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: p.config.ServiceName,
		ServerAddress:   p.config.ProfilerServer,
		Logger:          pyroscopeLogger{p.logger.Sugar()},
		Tags:            tags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start profiler: %w", err)
	}
	p.profiler = profiler

	if p.tracer != nil {
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(p.tracer))
	}
	return nil
}

type pyroscopeLogger struct{ *zap.SugaredLogger }

func (l pyroscopeLogger) Infof(format string, args ...any)  { l.SugaredLogger.Debugf(format, args...) }
func (l pyroscopeLogger) Debugf(format string, args ...any) { l.SugaredLogger.Debugf(format, args...) }
func (l pyroscopeLogger) Errorf(format string, args ...any) { l.SugaredLogger.Errorf(format, args...) }

// Meter returns a named meter, the global no-op one when metrics are off.
func (p *Providers) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.meter == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.meter.Meter(name, opts...)
}

// Tracer returns a named tracer.
func (p *Providers) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.tracer == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.tracer.Tracer(name, opts...)
}

// LoggerProvider returns the logs pipeline for the zap bridge, or nil.
func (p *Providers) LoggerProvider() otellog.LoggerProvider {
	if p.logs == nil {
		return nil
	}
	return p.logs
}

// TracingEnabled reports whether spans are exported.
func (p *Providers) TracingEnabled() bool { return p.tracer != nil }

// MetricsEnabled reports whether metrics are exported.
func (p *Providers) MetricsEnabled() bool { return p.meter != nil }

// ForceFlush exports everything buffered so far.
func (p *Providers) ForceFlush(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.ForceFlush(ctx))
	}
	if p.meter != nil {
		errs = append(errs, p.meter.ForceFlush(ctx))
	}
	if p.logs != nil {
		errs = append(errs, p.logs.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops every pipeline. It is safe to call on a
// disabled or partially started Providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if p.profiler != nil {
		if err := p.profiler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop profiler: %w", err))
		}
		p.profiler = nil
	}
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
		p.tracer = nil
	}
	if p.meter != nil {
		if err := p.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
		p.meter = nil
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown logger provider: %w", err))
		}
		p.logs = nil
	}

	if err := errors.Join(errs...); err != nil {
		p.logger.Error("Telemetry shutdown failed", zap.Error(err))
		return err
	}
	p.logger.Debug("Telemetry shut down")
	return nil
}
