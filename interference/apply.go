package interference

import (
	"fmt"

	"github.com/signalsfoundry/wifi-interference-sim/core"
)

// Result describes what applying one model did to the target. The apply
// routine never logs; callers decide what to do with a Result.
type Result struct {
	Kind     Kind
	TargetID string
	Params   []Param

	// Attribute is the core.Phy attribute written, empty when none was.
	Attribute string
	Previous  float64
	Value     float64

	// Placeholder is set when the model kind has no defined effect and
	// the target was left untouched.
	Placeholder bool
}

// Changed reports whether the written attribute ended up with a different
// value.
func (r Result) Changed() bool {
	return r.Attribute != "" && r.Previous != r.Value
}

// TrafficFunc gives a TrafficModel its effect on the target.
type TrafficFunc func(target *core.Phy, m TrafficModel) (Result, error)

// NumberFunc gives a NumberModel its effect on the target.
type NumberFunc func(target *core.Phy, m NumberModel) (Result, error)

// Handlers is the extension point for the model kinds whose interference
// formula is not defined here. A nil field falls back to the default
// placeholder behaviour.
type Handlers struct {
	Traffic TrafficFunc
	Number  NumberFunc
}

// DefaultHandlers leaves the target untouched for traffic and number models
// and marks the result as a placeholder.
func DefaultHandlers() Handlers {
	return Handlers{
		Traffic: func(*core.Phy, TrafficModel) (Result, error) { return Result{Placeholder: true}, nil },
		Number:  func(*core.Phy, NumberModel) (Result, error) { return Result{Placeholder: true}, nil },
	}
}

// StrictHandlers fails traffic and number models with ErrNotImplemented.
func StrictHandlers() Handlers {
	return Handlers{
		Traffic: func(*core.Phy, TrafficModel) (Result, error) {
			return Result{}, fmt.Errorf("%w: %s", ErrNotImplemented, KindTraffic)
		},
		Number: func(*core.Phy, NumberModel) (Result, error) {
			return Result{}, fmt.Errorf("%w: %s", ErrNotImplemented, KindNumber)
		},
	}
}

func (h Handlers) withDefaults() Handlers {
	def := DefaultHandlers()
	if h.Traffic == nil {
		h.Traffic = def.Traffic
	}
	if h.Number == nil {
		h.Number = def.Number
	}
	return h
}

// Apply applies m to target. Kind, TargetID and Params of the returned Result
// are always filled in from m and target.
func Apply(target *core.Phy, m Model, h Handlers) (Result, error) {
	if target == nil {
		return Result{}, fmt.Errorf("%w: nil target", ErrConfiguration)
	}
	if m == nil {
		return Result{TargetID: target.ID}, fmt.Errorf("%w: nil model", ErrConfiguration)
	}
	h = h.withDefaults()

	var (
		res Result
		err error
	)
	switch v := m.(type) {
	case NoiseModel:
		res = applyNoise(target, v)
	case TrafficModel:
		res, err = h.Traffic(target, v)
	case NumberModel:
		res, err = h.Number(target, v)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownKind, m)
	}

	res.Kind = m.Kind()
	res.TargetID = target.ID
	res.Params = m.Params()
	return res, err
}

func applyNoise(target *core.Phy, m NoiseModel) Result {
	prev := target.NoiseFigureDB()
	target.SetNoiseFigureDB(m.noiseFigureDB)
	return Result{
		Attribute: core.AttrNoiseFigure,
		Previous:  prev,
		Value:     m.noiseFigureDB,
	}
}
