package core

import (
	"errors"
	"fmt"
)

// Attribute names accepted by Phy.Set and Phy.Get.
const (
	AttrNoiseFigure           = "NoiseFigure"
	AttrTxPower               = "TxPower"
	AttrTxGain                = "TxGain"
	AttrRxGain                = "RxGain"
	AttrInterferenceThreshold = "InterferenceThreshold"
	AttrChannelWidth          = "ChannelWidth"
)

const defaultChannelWidthMHz = 20

var ErrUnknownAttribute = errors.New("unknown phy attribute")

// PhyAttributes is the configurable state of a Phy. It is a plain value so
// callers can snapshot and compare it.
type PhyAttributes struct {
	NoiseFigureDB            float64
	TxPowerDBw               float64
	GainTxDBi                float64
	GainRxDBi                float64
	InterferenceThresholdDBw float64
	ChannelWidthMHz          float64
}

// Phy is the physical-layer device under configuration: one simulated WiFi
// radio. It is owned by the simulation setup and borrowed by whatever
// configures it.
//
// Phy does no locking. Callers that share a Phy between goroutines must
// serialise access themselves.
type Phy struct {
	ID            string
	TransceiverID string

	attrs PhyAttributes
}

// NewPhy creates a Phy whose attributes are seeded from model. A nil model
// yields zero attributes and the default channel width.
func NewPhy(id string, model *TransceiverModel) *Phy {
	p := &Phy{
		ID: id,
		attrs: PhyAttributes{
			ChannelWidthMHz: defaultChannelWidthMHz,
		},
	}
	if model == nil {
		return p
	}

	p.TransceiverID = model.ID
	p.attrs.NoiseFigureDB = model.InitialNoiseFigureDB()
	p.attrs.TxPowerDBw = model.TxPowerDBw
	p.attrs.GainTxDBi = model.GainTxDBi
	p.attrs.GainRxDBi = model.GainRxDBi
	p.attrs.InterferenceThresholdDBw = model.InterferenceThresholdDBw
	if model.ChannelWidthMHz > 0 {
		p.attrs.ChannelWidthMHz = model.ChannelWidthMHz
	}
	return p
}

// NoiseFigureDB returns the receiver noise figure in dB.
func (p *Phy) NoiseFigureDB() float64 { return p.attrs.NoiseFigureDB }

// SetNoiseFigureDB overwrites the receiver noise figure.
func (p *Phy) SetNoiseFigureDB(v float64) { p.attrs.NoiseFigureDB = v }

// Attributes returns a snapshot of the current attribute values.
func (p *Phy) Attributes() PhyAttributes { return p.attrs }

// Set assigns the named attribute.
func (p *Phy) Set(name string, value float64) error {
	field, err := p.field(name)
	if err != nil {
		return err
	}
	*field = value
	return nil
}

// Get reads the named attribute.
func (p *Phy) Get(name string) (float64, error) {
	field, err := p.field(name)
	if err != nil {
		return 0, err
	}
	return *field, nil
}

func (p *Phy) field(name string) (*float64, error) {
	switch name {
	case AttrNoiseFigure:
		return &p.attrs.NoiseFigureDB, nil
	case AttrTxPower:
		return &p.attrs.TxPowerDBw, nil
	case AttrTxGain:
		return &p.attrs.GainTxDBi, nil
	case AttrRxGain:
		return &p.attrs.GainRxDBi, nil
	case AttrInterferenceThreshold:
		return &p.attrs.InterferenceThresholdDBw, nil
	case AttrChannelWidth:
		return &p.attrs.ChannelWidthMHz, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
}
