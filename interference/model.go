// Package interference configures interference effects on a simulated WiFi
// PHY. Interference models are small immutable values; a Manager holds an
// ordered list of them bound to one core.Phy and applies them in order.
//
// The set of model kinds is closed: NoiseModel, TrafficModel and
// NumberModel. Only NoiseModel currently changes the PHY. Traffic and
// number models have no agreed interference formula yet, so by default they
// are applied as logged no-ops (Result.Placeholder is set). Supply Handlers
// to give them an effect, or StrictHandlers to make them fail with
// ErrNotImplemented.
package interference

import (
	"fmt"
	"strings"
)

// Kind identifies an interference model variant.
type Kind uint8

const (
	KindNoise Kind = iota + 1
	KindTraffic
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindNoise:
		return "noise"
	case KindTraffic:
		return "traffic"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

// ParseKind maps a case-insensitive kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "noise":
		return KindNoise, nil
	case "traffic":
		return KindTraffic, nil
	case "number":
		return KindNumber, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Param names reported by Model.Params.
const (
	ParamNoiseFigure    = "noise_figure_db"
	ParamNumInterferers = "num_interferers"
	ParamTrafficRate    = "traffic_rate"
)

// Param is one named configuration value of a model, used for logging and
// reporting.
type Param struct {
	Name  string
	Value float64
}

// Model is one unit of interference configuration. The interface is sealed;
// the only implementations are the variants in this package.
type Model interface {
	Kind() Kind
	// Params lists the model's configuration in a stable order.
	Params() []Param

	sealed()
}

// NoiseModel adjusts the receiver noise figure of the target.
type NoiseModel struct {
	noiseFigureDB float64
}

func (NoiseModel) Kind() Kind { return KindNoise }
func (NoiseModel) sealed()    {}
func (m NoiseModel) String() string {
	return fmt.Sprintf("noise(noise_figure_db=%g)", m.noiseFigureDB)
}

// NoiseFigureDB is the noise figure, in dB, written to the target.
func (m NoiseModel) NoiseFigureDB() float64 { return m.noiseFigureDB }

func (m NoiseModel) Params() []Param {
	return []Param{{Name: ParamNoiseFigure, Value: m.noiseFigureDB}}
}

// TrafficModel describes interference from a population of competing
// transmitters at a given load.
type TrafficModel struct {
	numInterferers uint32
	trafficRate    float64
}

func (TrafficModel) Kind() Kind { return KindTraffic }
func (TrafficModel) sealed()    {}
func (m TrafficModel) String() string {
	return fmt.Sprintf("traffic(num_interferers=%d, traffic_rate=%g)", m.numInterferers, m.trafficRate)
}

func (m TrafficModel) NumInterferers() uint32 { return m.numInterferers }
func (m TrafficModel) TrafficRate() float64   { return m.trafficRate }

func (m TrafficModel) Params() []Param {
	return []Param{
		{Name: ParamNumInterferers, Value: float64(m.numInterferers)},
		{Name: ParamTrafficRate, Value: m.trafficRate},
	}
}

// NumberModel describes interference that scales with the interferer
// population only.
type NumberModel struct {
	numInterferers uint32
}

func (NumberModel) Kind() Kind { return KindNumber }
func (NumberModel) sealed()    {}
func (m NumberModel) String() string {
	return fmt.Sprintf("number(num_interferers=%d)", m.numInterferers)
}

func (m NumberModel) NumInterferers() uint32 { return m.numInterferers }

func (m NumberModel) Params() []Param {
	return []Param{{Name: ParamNumInterferers, Value: float64(m.numInterferers)}}
}
