package interference

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/wifi-interference-sim/internal/logging"
)

// Spec is a scalar description of a model, as read from a profile or the
// command line. Fields that do not apply to Kind are ignored.
type Spec struct {
	Kind           Kind
	NoiseFigureDB  float64
	NumInterferers uint32
	TrafficRate    float64
}

// Factory constructs interference models. Construction never fails and
// accepts any value; range checking is the caller's job.
type Factory struct {
	log logging.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithFactoryLogger makes the factory log every model it creates at debug
// level.
func WithFactoryLogger(l logging.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{log: logging.Noop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateNoiseModel returns a model that sets the target noise figure to
// noiseFigureDB.
func (f *Factory) CreateNoiseModel(noiseFigureDB float64) Model {
	return f.created(NoiseModel{noiseFigureDB: noiseFigureDB})
}

// CreateTrafficModel returns a traffic model. Zero interferers is legal and
// means the model has nothing to contribute.
func (f *Factory) CreateTrafficModel(numInterferers uint32, trafficRate float64) Model {
	return f.created(TrafficModel{numInterferers: numInterferers, trafficRate: trafficRate})
}

// CreateNumberModel returns a number model. Zero interferers is legal.
func (f *Factory) CreateNumberModel(numInterferers uint32) Model {
	return f.created(NumberModel{numInterferers: numInterferers})
}

// Create builds a model from a Spec. The only failure is an unknown kind.
func (f *Factory) Create(s Spec) (Model, error) {
	switch s.Kind {
	case KindNoise:
		return f.CreateNoiseModel(s.NoiseFigureDB), nil
	case KindTraffic:
		return f.CreateTrafficModel(s.NumInterferers, s.TrafficRate), nil
	case KindNumber:
		return f.CreateNumberModel(s.NumInterferers), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, s.Kind)
	}
}

func (f *Factory) created(m Model) Model {
	if f != nil && f.log != nil {
		fields := append([]logging.Field{logging.String("kind", m.Kind().String())}, paramFields(m.Params())...)
		f.log.Debug(context.Background(), "created interference model", fields...)
	}
	return m
}

func paramFields(params []Param) []logging.Field {
	fields := make([]logging.Field, 0, len(params))
	for _, p := range params {
		if p.Name == ParamNumInterferers {
			fields = append(fields, logging.Uint32(p.Name, uint32(p.Value)))
			continue
		}
		fields = append(fields, logging.Float(p.Name, p.Value))
	}
	return fields
}
