package interference

import (
	"context"
	"errors"
	"testing"

	"github.com/signalsfoundry/wifi-interference-sim/core"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestManager(t *testing.T, opts ...Option) (*Manager, *core.Phy) {
	t.Helper()
	p := core.NewPhy("ap0", nil)
	m, err := NewManager(p, opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, p
}

func TestNewManager_NilTarget(t *testing.T) {
	if _, err := NewManager(nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("NewManager(nil) err = %v, want ErrConfiguration", err)
	}
}

func TestManager_EmptyApplyIsNoop(t *testing.T) {
	m, p := newTestManager(t)
	before := p.Attributes()

	results, err := m.ApplyAllInterferenceModels(context.Background())
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %d, want 0", len(results))
	}
	if p.Attributes() != before {
		t.Fatalf("attributes changed on empty apply")
	}
}

func TestManager_LastNoiseWins(t *testing.T) {
	m, p := newTestManager(t)
	f := NewFactory()

	m.AddInterferenceModel(f.CreateNoiseModel(3))
	m.AddInterferenceModel(f.CreateNoiseModel(9))

	results, err := m.ApplyAllInterferenceModels(context.Background())
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if p.NoiseFigureDB() != 9 {
		t.Fatalf("noise figure = %v, want 9", p.NoiseFigureDB())
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	// The second model saw the first model's write.
	if results[0].Value != 3 || results[1].Previous != 3 || results[1].Value != 9 {
		t.Fatalf("results out of order: %+v", results)
	}
}

func TestManager_GradualScenario(t *testing.T) {
	m, p := newTestManager(t)
	f := NewFactory()
	ctx := context.Background()

	if p.NoiseFigureDB() != 0 {
		t.Fatalf("initial noise figure = %v, want 0", p.NoiseFigureDB())
	}

	m.AddInterferenceModel(f.CreateNoiseModel(5.0))
	if _, err := m.ApplyAllInterferenceModels(ctx); err != nil {
		t.Fatalf("first ApplyAll: %v", err)
	}
	if p.NoiseFigureDB() != 5.0 {
		t.Fatalf("noise figure = %v, want 5.0", p.NoiseFigureDB())
	}

	m.AddInterferenceModel(f.CreateNoiseModel(7.5))
	results, err := m.ApplyAllInterferenceModels(ctx)
	if err != nil {
		t.Fatalf("second ApplyAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("second apply results = %d, want 2", len(results))
	}
	if p.NoiseFigureDB() != 7.5 {
		t.Fatalf("noise figure = %v, want 7.5", p.NoiseFigureDB())
	}
}

func TestManager_ClearIsIdempotent(t *testing.T) {
	m, p := newTestManager(t)
	f := NewFactory()

	m.AddInterferenceModel(f.CreateNoiseModel(6))
	if _, err := m.ApplyAllInterferenceModels(context.Background()); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	m.ClearInterferenceModels()
	if m.Len() != 0 {
		t.Fatalf("Len after clear = %d, want 0", m.Len())
	}
	m.ClearInterferenceModels()
	if m.Len() != 0 {
		t.Fatalf("Len after second clear = %d, want 0", m.Len())
	}

	// Clearing does not undo earlier effects.
	if p.NoiseFigureDB() != 6 {
		t.Fatalf("noise figure after clear = %v, want 6", p.NoiseFigureDB())
	}

	p.SetNoiseFigureDB(1)
	results, err := m.ApplyAllInterferenceModels(context.Background())
	if err != nil {
		t.Fatalf("ApplyAll after clear: %v", err)
	}
	if len(results) != 0 || p.NoiseFigureDB() != 1 {
		t.Fatalf("apply after clear was not a no-op: results=%d nf=%v", len(results), p.NoiseFigureDB())
	}
}

func TestManager_DuplicatesAppliedEachTime(t *testing.T) {
	m, _ := newTestManager(t)
	model := NewFactory().CreateNumberModel(2)
	m.AddInterferenceModel(model)
	m.AddInterferenceModel(model)
	m.AddInterferenceModel(model)

	results, err := m.ApplyAllInterferenceModels(context.Background())
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
}

func TestManager_ModelsReturnsCopy(t *testing.T) {
	m, _ := newTestManager(t)
	f := NewFactory()
	m.AddInterferenceModel(f.CreateNoiseModel(1))
	m.AddInterferenceModel(f.CreateNumberModel(2))

	models := m.Models()
	models[0] = nil
	if m.Models()[0] == nil {
		t.Fatalf("Models() exposed internal slice")
	}
	if m.Models()[1].Kind() != KindNumber {
		t.Fatalf("order not preserved")
	}
}

func TestManager_TrafficAndNumberAreLogged(t *testing.T) {
	log := newRecordingLogger()
	m, p := newTestManager(t, WithLogger(log))
	f := NewFactory()
	before := p.Attributes()

	m.AddInterferenceModel(f.CreateTrafficModel(3, 0.5))
	m.AddInterferenceModel(f.CreateNumberModel(3))

	results, err := m.ApplyAllInterferenceModels(context.Background())
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if p.Attributes() != before {
		t.Fatalf("placeholder models changed the phy")
	}

	warns := log.at("warn")
	if len(warns) != 2 {
		t.Fatalf("warn entries = %d, want 2", len(warns))
	}
	traffic, number := warns[0].fields, warns[1].fields
	if traffic["kind"] != "traffic" || traffic["num_interferers"] != uint32(3) || traffic["traffic_rate"] != 0.5 {
		t.Fatalf("traffic log fields = %v", traffic)
	}
	if number["kind"] != "number" || number["num_interferers"] != uint32(3) {
		t.Fatalf("number log fields = %v", number)
	}
	if traffic["phy_id"] != "ap0" {
		t.Fatalf("phy_id field = %v, want ap0", traffic["phy_id"])
	}
}

func TestManager_NoiseLoggedAtInfo(t *testing.T) {
	log := newRecordingLogger()
	m, _ := newTestManager(t, WithLogger(log))
	m.AddInterferenceModel(NewFactory().CreateNoiseModel(5))

	if _, err := m.ApplyAllInterferenceModels(context.Background()); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	infos := log.at("info")
	if len(infos) != 1 {
		t.Fatalf("info entries = %d, want 1", len(infos))
	}
	if infos[0].fields["noise_figure_db"] != 5.0 || infos[0].fields["attribute"] != "NoiseFigure" {
		t.Fatalf("info fields = %v", infos[0].fields)
	}
}

func TestManager_FailureStopsWithoutRollback(t *testing.T) {
	rec := &fakeRecorder{}
	m, p := newTestManager(t, WithHandlers(StrictHandlers()), WithMetrics(rec))
	f := NewFactory()

	m.AddInterferenceModel(f.CreateNoiseModel(4))
	m.AddInterferenceModel(f.CreateTrafficModel(2, 1))
	m.AddInterferenceModel(f.CreateNoiseModel(8))

	results, err := m.ApplyAllInterferenceModels(context.Background())
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("err = %v, want ErrNotImplemented", err)
	}
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("err is %T, want *ApplyError", err)
	}
	if applyErr.Index != 1 || applyErr.Kind != KindTraffic {
		t.Fatalf("ApplyError = %+v, want index 1 kind traffic", applyErr)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	// First model stays applied, third never ran.
	if p.NoiseFigureDB() != 4 {
		t.Fatalf("noise figure = %v, want 4", p.NoiseFigureDB())
	}

	want := []observation{{"noise", OutcomeApplied}, {"traffic", OutcomeError}}
	if len(rec.observed) != len(want) {
		t.Fatalf("observed = %+v, want %+v", rec.observed, want)
	}
	for i := range want {
		if rec.observed[i] != want[i] {
			t.Fatalf("observed[%d] = %+v, want %+v", i, rec.observed[i], want[i])
		}
	}
}

func TestManager_NilModelIsConfigurationError(t *testing.T) {
	m, _ := newTestManager(t)
	m.AddInterferenceModel(NewFactory().CreateNoiseModel(1))
	m.AddInterferenceModel(nil)

	_, err := m.ApplyAllInterferenceModels(context.Background())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) || applyErr.Index != 1 {
		t.Fatalf("ApplyError = %+v", applyErr)
	}
}

func TestManager_MetricsHeldGauge(t *testing.T) {
	rec := &fakeRecorder{}
	m, _ := newTestManager(t, WithMetrics(rec))
	f := NewFactory()

	m.AddInterferenceModel(f.CreateNoiseModel(1))
	m.AddInterferenceModel(f.CreateNumberModel(1))
	m.ClearInterferenceModels()

	want := []int{1, 2, 0}
	if len(rec.held) != len(want) {
		t.Fatalf("held = %v, want %v", rec.held, want)
	}
	for i := range want {
		if rec.held[i] != want[i] {
			t.Fatalf("held = %v, want %v", rec.held, want)
		}
	}
}

func TestManager_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	m, _ := newTestManager(t, WithTracer(tp.Tracer("test")), WithHandlers(StrictHandlers()))
	f := NewFactory()
	m.AddInterferenceModel(f.CreateNoiseModel(2))
	m.AddInterferenceModel(f.CreateNumberModel(2))

	if _, err := m.ApplyAllInterferenceModels(context.Background()); err == nil {
		t.Fatalf("expected error from strict number model")
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "interference.ApplyAll" {
		t.Fatalf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Fatalf("span status = %v, want Error", span.Status().Code)
	}

	var applyEvents int
	for _, ev := range span.Events() {
		if ev.Name == "interference.apply" {
			applyEvents++
		}
	}
	if applyEvents != 1 {
		t.Fatalf("interference.apply events = %d, want 1", applyEvents)
	}
}
