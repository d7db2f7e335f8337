package interference

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/wifi-interference-sim/core"
	"github.com/signalsfoundry/wifi-interference-sim/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/wifi-interference-sim/interference"

// Outcome labels reported to a MetricsRecorder.
const (
	OutcomeApplied     = "applied"
	OutcomePlaceholder = "placeholder"
	OutcomeError       = "error"
)

// MetricsRecorder receives application counts from a Manager. It is
// satisfied by observability.InterferenceCollector.
type MetricsRecorder interface {
	ObserveApply(kind, outcome string, elapsed time.Duration)
	SetModelsHeld(n int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveApply(string, string, time.Duration) {}
func (noopRecorder) SetModelsHeld(int)                          {}

// Manager owns an ordered list of interference models bound to a single
// Phy. Insertion order is application order.
//
// A Manager is not safe for concurrent use. Callers that drive it from more
// than one goroutine must serialise access to it and to its target.
type Manager struct {
	target *core.Phy
	models []Model

	handlers Handlers
	log      logging.Logger
	metrics  MetricsRecorder
	tracer   trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithHandlers sets the effect of traffic and number models. Nil fields keep
// the default placeholder behaviour.
func WithHandlers(h Handlers) Option {
	return func(m *Manager) { m.handlers = h }
}

func WithMetrics(r MetricsRecorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// NewManager binds a manager to target for its whole lifetime.
func NewManager(target *core.Phy, opts ...Option) (*Manager, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: manager needs a target phy", ErrConfiguration)
	}
	m := &Manager{
		target:   target,
		handlers: DefaultHandlers(),
		log:      logging.Noop(),
		metrics:  noopRecorder{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logging.String("phy_id", target.ID))
	return m, nil
}

// Target returns the bound PHY.
func (m *Manager) Target() *core.Phy { return m.target }

// Len returns the number of held models.
func (m *Manager) Len() int { return len(m.models) }

// Models returns a copy of the held models in application order.
func (m *Manager) Models() []Model {
	out := make([]Model, len(m.models))
	copy(out, m.models)
	return out
}

// AddInterferenceModel appends model to the end of the sequence. There is no
// deduplication; a model added twice is applied twice.
func (m *Manager) AddInterferenceModel(model Model) {
	m.models = append(m.models, model)
	m.metrics.SetModelsHeld(len(m.models))

	fields := []logging.Field{logging.Int("index", len(m.models)-1)}
	if model != nil {
		fields = append(fields, logging.String("kind", model.Kind().String()))
		fields = append(fields, paramFields(model.Params())...)
	}
	m.log.Debug(context.Background(), "interference model added", fields...)
}

// ApplyAllInterferenceModels applies every held model to the target in
// insertion order. It stops at the first failure and returns the results of
// the models applied so far together with an *ApplyError. Effects of
// earlier models are not rolled back.
func (m *Manager) ApplyAllInterferenceModels(ctx context.Context) ([]Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := m.tracer.Start(ctx, "interference.ApplyAll", trace.WithAttributes(
		attribute.String("phy.id", m.target.ID),
		attribute.Int("interference.models", len(m.models)),
	))
	defer span.End()

	results := make([]Result, 0, len(m.models))
	for i, model := range m.models {
		start := time.Now()
		res, err := Apply(m.target, model, m.handlers)
		elapsed := time.Since(start)

		kind := kindOf(model)
		if err != nil {
			m.metrics.ObserveApply(kind.String(), OutcomeError, elapsed)
			applyErr := &ApplyError{Index: i, Kind: kind, Err: err}
			span.RecordError(applyErr)
			span.SetStatus(codes.Error, applyErr.Error())
			m.log.Error(ctx, "interference model failed",
				logging.Int("index", i),
				logging.String("kind", kind.String()),
				logging.Int("applied", len(results)),
				logging.Err(err),
			)
			return results, applyErr
		}

		results = append(results, res)
		m.report(ctx, span, i, res, elapsed)
	}
	return results, nil
}

// ClearInterferenceModels drops every held model. The target keeps whatever
// state earlier applications left on it.
func (m *Manager) ClearInterferenceModels() {
	n := len(m.models)
	m.models = nil
	m.metrics.SetModelsHeld(0)
	m.log.Debug(context.Background(), "interference models cleared", logging.Int("discarded", n))
}

func (m *Manager) report(ctx context.Context, span trace.Span, index int, res Result, elapsed time.Duration) {
	fields := []logging.Field{
		logging.Int("index", index),
		logging.String("kind", res.Kind.String()),
	}
	fields = append(fields, paramFields(res.Params)...)

	span.AddEvent("interference.apply", trace.WithAttributes(
		attribute.Int("index", index),
		attribute.String("kind", res.Kind.String()),
		attribute.Bool("placeholder", res.Placeholder),
	))

	if res.Placeholder {
		m.metrics.ObserveApply(res.Kind.String(), OutcomePlaceholder, elapsed)
		m.log.Warn(ctx, "interference model has no effect on the phy; no formula is defined for this kind", fields...)
		return
	}

	m.metrics.ObserveApply(res.Kind.String(), OutcomeApplied, elapsed)
	if res.Attribute != "" {
		fields = append(fields,
			logging.String("attribute", res.Attribute),
			logging.Float("previous", res.Previous),
			logging.Float("value", res.Value),
		)
	}
	m.log.Info(ctx, "applied interference model", fields...)
}

func kindOf(model Model) Kind {
	if model == nil {
		return 0
	}
	return model.Kind()
}
