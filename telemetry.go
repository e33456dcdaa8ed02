package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// SetupOTelSDK bootstraps the OpenTelemetry pipeline and installs the
// default slog logger. If it does not return an error, call shutdown for
// proper cleanup.
func SetupOTelSDK(ctx context.Context, cfg *Settings) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.App.Name),
			semconv.ServiceVersionKey.String(cfg.App.Version),
			semconv.DeploymentEnvironmentKey.String(cfg.App.Env),
		),
	)
	if err != nil {
		return nil, err
	}

	// shutdown runs every registered cleanup once and joins the errors.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracerProvider, err := newTraceProvider(ctx, cfg, res)
	if err != nil {
		handleErr(err)
		return nil, err
	}
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	loggerProvider, err := newLoggerProvider(ctx, cfg, res)
	if err != nil {
		handleErr(err)
		return nil, err
	}
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	meterProvider, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		handleErr(err)
		return nil, err
	}
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	if cfg.OpenTelemetry.Enabled {
		err = runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			handleErr(err)
			return nil, err
		}
	}

	return shutdown, err
}

func newTraceProvider(ctx context.Context, cfg *Settings, res *resource.Resource) (*trace.TracerProvider, error) {
	if !cfg.OpenTelemetry.Enabled {
		return trace.NewTracerProvider(), nil
	}

	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(cfg.OpenTelemetry.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.OpenTelemetry.Traces.TimeoutInSec) * time.Second
	sampler := trace.ParentBased(
		trace.TraceIDRatioBased(float64(cfg.OpenTelemetry.Traces.SampleRate)),
	)

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter,
			trace.WithBatchTimeout(timeout),
			trace.WithMaxQueueSize(cfg.OpenTelemetry.Traces.MaxQueueSize),
			trace.WithMaxExportBatchSize(cfg.OpenTelemetry.Traces.BatchSize),
		),
		trace.WithSampler(sampler),
		trace.WithResource(res),
	), nil
}

func newLoggerProvider(ctx context.Context, cfg *Settings, res *resource.Resource) (*log.LoggerProvider, error) {
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	})

	if !cfg.OpenTelemetry.Enabled {
		slog.SetDefault(slog.New(jsonHandler))
		return log.NewLoggerProvider(), nil
	}

	exporter, err := otlploggrpc.New(
		ctx,
		otlploggrpc.WithEndpoint(cfg.OpenTelemetry.Endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.OpenTelemetry.Logs.IntervalInSec) * time.Second
	timeout := time.Duration(cfg.OpenTelemetry.Logs.TimeoutInSec) * time.Second

	processor := log.NewBatchProcessor(exporter,
		log.WithMaxQueueSize(cfg.OpenTelemetry.Logs.MaxQueueSize),
		log.WithExportMaxBatchSize(cfg.OpenTelemetry.Logs.BatchSize),
		log.WithExportTimeout(timeout),
		log.WithExportInterval(interval),
	)
	loggerProvider := log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(processor),
	)

	// Bridge OTel logging into slog so application code only ever sees
	// the slog API.
	otelHandler := otelslog.NewHandler(
		cfg.App.Name,
		otelslog.WithLoggerProvider(loggerProvider),
		otelslog.WithVersion(cfg.App.Version),
		otelslog.WithSource(true),
	)

	slog.SetDefault(slog.New(slogmulti.Fanout(jsonHandler, otelHandler)))

	return loggerProvider, nil
}

func newMeterProvider(ctx context.Context, cfg *Settings, res *resource.Resource) (*metric.MeterProvider, error) {
	if !cfg.OpenTelemetry.Enabled {
		return metric.NewMeterProvider(), nil
	}

	exporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OpenTelemetry.Endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.OpenTelemetry.Metrics.IntervalInSec) * time.Second
	timeout := time.Duration(cfg.OpenTelemetry.Metrics.TimeoutInSec) * time.Second

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(
			exporter,
			metric.WithInterval(interval),
			metric.WithTimeout(timeout),
		)),
		metric.WithResource(res),
	), nil
}
