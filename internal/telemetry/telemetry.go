// Package telemetry installs the OpenTelemetry providers. Metrics are always
// bridged into the Prometheus registry served on /metrics; traces and logs
// are exported over OTLP/gRPC only when an endpoint is configured.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"

	"github.com/shaharia-lab/formrelay/internal/build"
)

// Config controls which exporters are installed.
type Config struct {
	// OTLPEnabled turns on trace, metric and log export. Endpoint and
	// headers come from the standard OTEL_EXPORTER_OTLP_* variables.
	OTLPEnabled bool
	// Registerer receives the Prometheus bridge. Nil means the default registry.
	Registerer prometheus.Registerer
}

// Providers owns the installed SDK providers.
type Providers struct {
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
	logs   *sdklog.LoggerProvider
}

// Setup builds the providers and installs them as the otel globals.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", build.Name),
		attribute.String("service.version", build.Version),
	)

	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	promExporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	meterOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	}

	p := &Providers{}
	if cfg.OTLPEnabled {
		dialUA := grpc.WithUserAgent(build.UserAgent())

		traceExp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithDialOption(dialUA))
		if err != nil {
			return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
		}
		p.tracer = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(p.tracer)

		metricExp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithDialOption(dialUA))
		if err != nil {
			return nil, fmt.Errorf("creating otlp metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))

		logExp, err := otlploggrpc.New(ctx, otlploggrpc.WithDialOption(dialUA))
		if err != nil {
			return nil, fmt.Errorf("creating otlp log exporter: %w", err)
		}
		p.logs = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(p.logs)
	}

	p.meter = sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(p.meter)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return p, nil
}

// LogHandler returns a slog handler exporting records over OTLP, or nil when
// log export is off.
func (p *Providers) LogHandler() slog.Handler {
	if p.logs == nil {
		return nil
	}
	return otelslog.NewHandler(build.Name, otelslog.WithLoggerProvider(p.logs))
}

// Shutdown flushes and stops every provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.Shutdown(ctx))
	}
	if p.logs != nil {
		errs = append(errs, p.logs.Shutdown(ctx))
	}
	if p.meter != nil {
		errs = append(errs, p.meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
