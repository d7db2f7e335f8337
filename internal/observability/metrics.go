package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InterferenceCollector bundles Prometheus metrics for interference
// application. It satisfies interference.MetricsRecorder so a Manager can
// drive it directly.
type InterferenceCollector struct {
	gatherer prometheus.Gatherer

	Applications  *prometheus.CounterVec
	ApplyDuration *prometheus.HistogramVec
	ModelsHeld    prometheus.Gauge
	NoiseFigure   *prometheus.GaugeVec
}

// NewInterferenceCollector registers interference metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewInterferenceCollector(reg prometheus.Registerer) (*InterferenceCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	applications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "interference_applications_total",
		Help: "Interference model applications, labeled by model kind and outcome (applied, placeholder, error).",
	}, []string{"kind", "outcome"})
	applications, err := registerCounterVec(reg, applications, "interference_applications_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interference_apply_duration_seconds",
		Help:    "Time spent applying a single interference model.",
		Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
	}, []string{"kind"})
	duration, err = registerHistogramVec(reg, duration, "interference_apply_duration_seconds")
	if err != nil {
		return nil, err
	}

	held, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "interference_models_held",
		Help: "Number of interference models currently held by the manager.",
	}), "interference_models_held")
	if err != nil {
		return nil, err
	}

	noiseFigure := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "phy_noise_figure_db",
		Help: "Current receiver noise figure of a PHY, in dB.",
	}, []string{"phy_id"})
	noiseFigure, err = registerGaugeVec(reg, noiseFigure, "phy_noise_figure_db")
	if err != nil {
		return nil, err
	}

	return &InterferenceCollector{
		gatherer:      gatherer,
		Applications:  applications,
		ApplyDuration: duration,
		ModelsHeld:    held,
		NoiseFigure:   noiseFigure,
	}, nil
}

// ObserveApply counts one application and records its duration.
func (c *InterferenceCollector) ObserveApply(kind, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Applications != nil {
		c.Applications.WithLabelValues(kind, outcome).Inc()
	}
	if c.ApplyDuration != nil {
		c.ApplyDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// SetModelsHeld updates the held-models gauge.
func (c *InterferenceCollector) SetModelsHeld(n int) {
	if c == nil || c.ModelsHeld == nil {
		return
	}
	c.ModelsHeld.Set(float64(n))
}

// SetNoiseFigure publishes the current noise figure of a PHY.
func (c *InterferenceCollector) SetNoiseFigure(phyID string, noiseFigureDB float64) {
	if c == nil || c.NoiseFigure == nil {
		return
	}
	c.NoiseFigure.WithLabelValues(phyID).Set(noiseFigureDB)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *InterferenceCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
