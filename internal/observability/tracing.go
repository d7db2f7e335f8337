package observability

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/signalsfoundry/wifi-interference-sim/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Trace exporters accepted in TracingConfig.Exporter. An empty exporter is
// treated as ExporterNone.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Resource attribute keys identifying a simulator run.
const (
	AttrRunID = "simulation.run_id"
	AttrPhyID = "wifi.phy.id"
)

const (
	instrumentationName = "github.com/signalsfoundry/wifi-interference-sim/interference"
	defaultServiceName  = "wifi-interference-sim"
	defaultOTLPEndpoint = "localhost:4317"
	flushTimeout        = 5 * time.Second
)

// TracingConfig selects where spans of interference application go.
type TracingConfig struct {
	Exporter    string
	Endpoint    string // OTLP collector, host:port
	SampleRatio float64
	ServiceName string

	// Writer receives stdout exporter output. Defaults to os.Stderr so
	// spans do not interleave with log lines.
	Writer io.Writer
}

// TracingConfigFromEnv reads INTERFERENCE_TRACE_EXPORTER,
// INTERFERENCE_TRACE_ENDPOINT, INTERFERENCE_TRACE_SAMPLE_RATIO and
// INTERFERENCE_TRACE_SERVICE_NAME. The driver uses the result as flag
// defaults, so flags win over the environment.
func TracingConfigFromEnv() (TracingConfig, error) {
	cfg := TracingConfig{
		Exporter:    ExporterNone,
		SampleRatio: 1,
		ServiceName: defaultServiceName,
		Endpoint:    os.Getenv("INTERFERENCE_TRACE_ENDPOINT"),
	}
	if v := strings.TrimSpace(os.Getenv("INTERFERENCE_TRACE_EXPORTER")); v != "" {
		cfg.Exporter = strings.ToLower(v)
	}
	if v := os.Getenv("INTERFERENCE_TRACE_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}

	var result *multierror.Error
	if v := os.Getenv("INTERFERENCE_TRACE_SAMPLE_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("INTERFERENCE_TRACE_SAMPLE_RATIO: %w", err))
		} else {
			cfg.SampleRatio = ratio
		}
	}
	if err := cfg.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return cfg, result.ErrorOrNil()
}

// Validate reports every unusable setting at once.
func (c TracingConfig) Validate() error {
	var result *multierror.Error
	switch c.Exporter {
	case "", ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		result = multierror.Append(result, fmt.Errorf("trace exporter %q: want none, stdout or otlp", c.Exporter))
	}
	if math.IsNaN(c.SampleRatio) || c.SampleRatio < 0 || c.SampleRatio > 1 {
		result = multierror.Append(result, fmt.Errorf("trace sample ratio %v outside [0, 1]", c.SampleRatio))
	}
	return result.ErrorOrNil()
}

// RunTracing is the tracer provider for one simulator run. Every span it
// produces carries the run ID and the PHY under test as resource
// attributes, so spans of separate runs stay apart in a collector.
type RunTracing struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
	log      logging.Logger
}

// NewRunTracing builds the provider for a run against phyID. With no
// exporter configured it returns a provider whose spans are never
// recorded.
func NewRunTracing(ctx context.Context, cfg TracingConfig, runID, phyID string, log logging.Logger) (*RunTracing, error) {
	if log == nil {
		log = logging.Noop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Exporter == "" || cfg.Exporter == ExporterNone {
		return &RunTracing{provider: noop.NewTracerProvider(), log: log}, nil
	}

	exp, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s trace exporter: %w", cfg.Exporter, err)
	}
	service := cfg.ServiceName
	if service == "" {
		service = defaultServiceName
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", service),
			attribute.String(AttrRunID, runID),
			attribute.String(AttrPhyID, phyID),
		)),
	)

	log.Info(ctx, "tracing interference application",
		logging.String("exporter", cfg.Exporter),
		logging.Float("sample_ratio", cfg.SampleRatio),
		logging.String("phy_id", phyID),
	)
	return &RunTracing{provider: tp, shutdown: tp.Shutdown, log: log}, nil
}

// Tracer returns the tracer handed to interference.WithTracer.
func (t *RunTracing) Tracer() trace.Tracer {
	return t.provider.Tracer(instrumentationName)
}

// Close flushes buffered spans. It waits at most flushTimeout and ignores
// cancellation of ctx so spans of a cancelled run are still exported.
func (t *RunTracing) Close(ctx context.Context) {
	if t == nil || t.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := t.shutdown(ctx); err != nil {
		t.log.Warn(ctx, "flushing traces failed", logging.Err(err))
	}
}

func newSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter == ExporterOTLP {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
}
