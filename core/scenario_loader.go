// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
)

// PhyScenario is a small summary of what was loaded from JSON.
// It is mainly useful for logging or debugging from main().
type PhyScenario struct {
	TransceiverIDs []string
	PhyIDs         []string
}

// JSON shapes stay unexported; the file format is not part of the API.
type phyScenarioJSON struct {
	Transceivers []*TransceiverModel `json:"transceivers"`
	Phys         []phyJSON           `json:"phys"`
}

type phyJSON struct {
	ID            string `json:"id"`
	TransceiverID string `json:"transceiver_id"`
	// NoiseFigureDB overrides the model's SystemNoiseFigureDB for this PHY.
	NoiseFigureDB *float64 `json:"noise_figure_db"`
}

// LoadPhyScenario reads a JSON scenario from r, registers its transceiver
// models and PHYs in kb, and returns a summary of what was loaded.
// Transceivers are registered before PHYs so that PHYs may reference any
// model in the same file.
func LoadPhyScenario(kb *KnowledgeBase, r io.Reader) (*PhyScenario, error) {
	if kb == nil {
		return nil, fmt.Errorf("LoadPhyScenario: kb is nil")
	}

	var payload phyScenarioJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadPhyScenario: decode failed: %w", err)
	}

	result := &PhyScenario{
		TransceiverIDs: make([]string, 0, len(payload.Transceivers)),
		PhyIDs:         make([]string, 0, len(payload.Phys)),
	}

	// 1) Transceiver models
	for _, trx := range payload.Transceivers {
		if err := kb.AddTransceiverModel(trx); err != nil {
			return nil, fmt.Errorf("LoadPhyScenario: %w", err)
		}
		result.TransceiverIDs = append(result.TransceiverIDs, trx.ID)
	}

	// 2) PHYs
	for _, jsPhy := range payload.Phys {
		if jsPhy.ID == "" {
			return nil, fmt.Errorf("LoadPhyScenario: phy with empty id")
		}
		p, err := kb.NewPhyFromModel(jsPhy.ID, jsPhy.TransceiverID)
		if err != nil {
			return nil, fmt.Errorf("LoadPhyScenario: %w", err)
		}
		if jsPhy.NoiseFigureDB != nil {
			p.SetNoiseFigureDB(*jsPhy.NoiseFigureDB)
		}
		result.PhyIDs = append(result.PhyIDs, jsPhy.ID)
	}

	return result, nil
}
