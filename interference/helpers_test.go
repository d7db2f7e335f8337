package interference

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/wifi-interference-sim/internal/logging"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

// recordingLogger captures log calls so tests can assert on them.
type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	base    []logging.Field
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (r *recordingLogger) record(level, msg string, fields []logging.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[string]any, len(r.base)+len(fields))
	for _, f := range r.base {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	*r.entries = append(*r.entries, logEntry{level: level, msg: msg, fields: m})
}

func (r *recordingLogger) Debug(_ context.Context, msg string, f ...logging.Field) {
	r.record("debug", msg, f)
}
func (r *recordingLogger) Info(_ context.Context, msg string, f ...logging.Field) {
	r.record("info", msg, f)
}
func (r *recordingLogger) Warn(_ context.Context, msg string, f ...logging.Field) {
	r.record("warn", msg, f)
}
func (r *recordingLogger) Error(_ context.Context, msg string, f ...logging.Field) {
	r.record("error", msg, f)
}

func (r *recordingLogger) With(fields ...logging.Field) logging.Logger {
	base := append(append([]logging.Field{}, r.base...), fields...)
	return &recordingLogger{mu: r.mu, entries: r.entries, base: base}
}

func (r *recordingLogger) at(level string) []logEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []logEntry
	for _, e := range *r.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

type observation struct {
	kind, outcome string
}

// fakeRecorder is an in-memory MetricsRecorder.
type fakeRecorder struct {
	observed []observation
	held     []int
}

func (f *fakeRecorder) ObserveApply(kind, outcome string, _ time.Duration) {
	f.observed = append(f.observed, observation{kind: kind, outcome: outcome})
}

func (f *fakeRecorder) SetModelsHeld(n int) { f.held = append(f.held, n) }
