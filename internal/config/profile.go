// Package config loads interference profiles: which PHY to target and which
// interference models to apply at which simulation offsets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/signalsfoundry/wifi-interference-sim/interference"
	"gopkg.in/yaml.v3"
)

// Profile is an interference schedule for one PHY. It is read from YAML;
// JSON documents are accepted too since they are valid YAML.
type Profile struct {
	Phy   string `yaml:"phy"`
	Steps []Step `yaml:"steps"`
}

// Step is applied once simulation time reaches At. If Clear is set the
// manager drops its held models before adding Models.
type Step struct {
	At     Offset      `yaml:"at"`
	Clear  bool        `yaml:"clear"`
	Models []ModelSpec `yaml:"models"`
}

// Offset is a step's distance from the start of the run. In a profile it is
// either a Go duration string ("1m30s") or a plain number of seconds (90).
type Offset time.Duration

// Duration returns o as a time.Duration.
func (o Offset) Duration() time.Duration { return time.Duration(o) }

func (o Offset) String() string { return time.Duration(o).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Offset) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: at: want a duration such as \"2s\" or a number of seconds", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		secs, err := strconv.ParseFloat(node.Value, 64)
		if err != nil || !finite(secs) || math.Abs(secs) > maxOffsetSeconds {
			return fmt.Errorf("line %d: at: %q is not a usable number of seconds", node.Line, node.Value)
		}
		*o = Offset(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: at: %q is not a duration; use a form such as \"2s\" or \"1m30s\", or a number of seconds", node.Line, node.Value)
	}
	*o = Offset(d)
	return nil
}

var maxOffsetSeconds = float64(math.MaxInt64) / float64(time.Second)

// ModelSpec is the file form of one interference model. Pointers tell a
// missing value apart from zero.
type ModelSpec struct {
	Kind           string   `yaml:"kind"`
	NoiseFigureDB  *float64 `yaml:"noise_figure_db,omitempty"`
	NumInterferers *int64   `yaml:"num_interferers,omitempty"`
	TrafficRate    *float64 `yaml:"traffic_rate,omitempty"`
}

// Load reads and validates a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %q: %w", path, err)
	}
	p, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a profile. Steps are returned sorted by At;
// steps with equal offsets keep their file order.
func Parse(r io.Reader) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty profile")
		}
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(p.Steps, func(i, j int) bool { return p.Steps[i].At < p.Steps[j].At })
	return &p, nil
}

// FromFlags builds the single-step profile the driver uses when no profile
// file is given: one noise, one traffic and one number model at t=0.
func FromFlags(phy string, noiseFigureDB float64, numInterferers uint32, trafficRate float64) *Profile {
	n := int64(numInterferers)
	return &Profile{
		Phy: phy,
		Steps: []Step{{
			Models: []ModelSpec{
				{Kind: "noise", NoiseFigureDB: &noiseFigureDB},
				{Kind: "traffic", NumInterferers: &n, TrafficRate: &trafficRate},
				{Kind: "number", NumInterferers: &n},
			},
		}},
	}
}

// Validate reports every problem in the profile at once.
func (p *Profile) Validate() error {
	var result *multierror.Error
	if p.Phy == "" {
		result = multierror.Append(result, errors.New("phy: must not be empty"))
	}
	if len(p.Steps) == 0 {
		result = multierror.Append(result, errors.New("steps: at least one step is required"))
	}
	for i, step := range p.Steps {
		if step.At < 0 {
			result = multierror.Append(result, fmt.Errorf("steps[%d].at: must not be negative", i))
		}
		for j, m := range step.Models {
			if _, err := m.ToSpec(); err != nil {
				result = multierror.Append(result, fmt.Errorf("steps[%d].models[%d]: %w", i, j, err))
			}
		}
	}
	return result.ErrorOrNil()
}

// ToSpec checks the model description and converts it for
// interference.Factory.Create.
func (m ModelSpec) ToSpec() (interference.Spec, error) {
	kind, err := interference.ParseKind(m.Kind)
	if err != nil {
		return interference.Spec{}, err
	}
	spec := interference.Spec{Kind: kind}

	switch kind {
	case interference.KindNoise:
		if m.NoiseFigureDB == nil {
			return spec, errors.New("noise_figure_db is required for noise models")
		}
		if !finite(*m.NoiseFigureDB) {
			return spec, errors.New("noise_figure_db must be finite")
		}
		spec.NoiseFigureDB = *m.NoiseFigureDB
	case interference.KindTraffic:
		n, err := interferers(m.NumInterferers)
		if err != nil {
			return spec, err
		}
		if m.TrafficRate == nil {
			return spec, errors.New("traffic_rate is required for traffic models")
		}
		if !finite(*m.TrafficRate) || *m.TrafficRate < 0 {
			return spec, errors.New("traffic_rate must be a finite non-negative number")
		}
		spec.NumInterferers = n
		spec.TrafficRate = *m.TrafficRate
	case interference.KindNumber:
		n, err := interferers(m.NumInterferers)
		if err != nil {
			return spec, err
		}
		spec.NumInterferers = n
	}
	return spec, nil
}

func interferers(v *int64) (uint32, error) {
	if v == nil {
		return 0, errors.New("num_interferers is required")
	}
	if *v < 0 || *v > math.MaxUint32 {
		return 0, fmt.Errorf("num_interferers %d out of range", *v)
	}
	return uint32(*v), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
