package core

// FrequencyBand represents a simple [min,max] GHz band.
type FrequencyBand struct {
	MinGHz float64 `json:"MinGHz"`
	MaxGHz float64 `json:"MaxGHz"`
}

// TransceiverModel describes RF characteristics for a family of WiFi
// radios. A Phy is instantiated from one of these and then carries its own
// mutable copy of the attributes.
type TransceiverModel struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`

	Band FrequencyBand `json:"Band"`

	// ChannelWidthMHz is the default channel width for PHYs of this
	// family (20, 40, 80, 160). 0 = 20 MHz.
	ChannelWidthMHz float64 `json:"ChannelWidthMHz,omitempty"`

	TxPowerDBw float64 `json:"TxPowerDBw,omitempty"`
	GainTxDBi  float64 `json:"GainTxDBi,omitempty"`
	GainRxDBi  float64 `json:"GainRxDBi,omitempty"`

	// SystemNoiseFigureDB is the receiver noise figure a new Phy starts
	// with. A pointer is used to distinguish between unset (nil) and
	// explicitly set to 0.
	SystemNoiseFigureDB *float64 `json:"SystemNoiseFigureDB,omitempty"`

	// InterferenceThresholdDBw is the allowed interference level before the
	// receiver is considered blocked. 0=use default.
	InterferenceThresholdDBw float64 `json:"InterferenceThresholdDBw,omitempty"`
}

// IsCompatible returns true if the frequency bands overlap at all.
func (tm *TransceiverModel) IsCompatible(other *TransceiverModel) bool {
	return !(tm.Band.MaxGHz < other.Band.MinGHz || tm.Band.MinGHz > other.Band.MaxGHz)
}

// InitialNoiseFigureDB returns the configured noise figure, or 0 dB when the
// model leaves it unset.
func (tm *TransceiverModel) InitialNoiseFigureDB() float64 {
	if tm == nil || tm.SystemNoiseFigureDB == nil {
		return 0
	}
	return *tm.SystemNoiseFigureDB
}
