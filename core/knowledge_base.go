package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrPhyExists           = errors.New("phy already exists")
	ErrPhyNotFound         = errors.New("phy not found")
	ErrPhyBadInput         = errors.New("invalid phy")
	ErrTransceiverNotFound = errors.New("transceiver model not found")
)

// KnowledgeBase stores transceiver models and the PHY instances created from
// them.
//
// The registry itself is concurrency-safe via an internal RWMutex. The Phy
// values it hands out are not; see Phy.
type KnowledgeBase struct {
	mu sync.RWMutex

	transceivers map[string]*TransceiverModel
	phys         map[string]*Phy
}

// NewKnowledgeBase creates an empty knowledge base.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		transceivers: make(map[string]*TransceiverModel),
		phys:         make(map[string]*Phy),
	}
}

//
// ---------- Transceiver models ----------
//

func (kb *KnowledgeBase) AddTransceiverModel(trx *TransceiverModel) error {
	if trx == nil || trx.ID == "" {
		return fmt.Errorf("nil or empty transceiver model")
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.transceivers[trx.ID]; exists {
		return fmt.Errorf("transceiver model %q already exists", trx.ID)
	}
	kb.transceivers[trx.ID] = trx
	return nil
}

func (kb *KnowledgeBase) GetTransceiverModel(id string) *TransceiverModel {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.transceivers[id]
}

//
// ---------- PHYs ----------
//

// AddPhy registers a PHY. If the PHY names a transceiver model, that model
// must already be present.
func (kb *KnowledgeBase) AddPhy(p *Phy) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w", ErrPhyBadInput)
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.phys[p.ID]; exists {
		return fmt.Errorf("%w: %q", ErrPhyExists, p.ID)
	}
	if p.TransceiverID != "" {
		if _, ok := kb.transceivers[p.TransceiverID]; !ok {
			return fmt.Errorf("%w: %q (phy %q)", ErrTransceiverNotFound, p.TransceiverID, p.ID)
		}
	}
	kb.phys[p.ID] = p
	return nil
}

// NewPhyFromModel instantiates a PHY from a registered transceiver model and
// adds it to the KB.
func (kb *KnowledgeBase) NewPhyFromModel(id, transceiverID string) (*Phy, error) {
	trx := kb.GetTransceiverModel(transceiverID)
	if trx == nil {
		return nil, fmt.Errorf("%w: %q", ErrTransceiverNotFound, transceiverID)
	}
	p := NewPhy(id, trx)
	if err := kb.AddPhy(p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPhy returns the PHY with the given ID.
func (kb *KnowledgeBase) GetPhy(id string) (*Phy, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	p, ok := kb.phys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPhyNotFound, id)
	}
	return p, nil
}

// AllPhys returns every PHY sorted by ID.
func (kb *KnowledgeBase) AllPhys() []*Phy {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	out := make([]*Phy, 0, len(kb.phys))
	for _, p := range kb.phys {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CoChannelPhys returns the other PHYs whose transceiver band overlaps the
// band of the given PHY, sorted by ID. These are the radios that could act
// as interferers for it. PHYs without a transceiver model are skipped.
func (kb *KnowledgeBase) CoChannelPhys(id string) ([]*Phy, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	target, ok := kb.phys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPhyNotFound, id)
	}
	targetTrx := kb.transceivers[target.TransceiverID]
	if targetTrx == nil {
		return nil, nil
	}

	var out []*Phy
	for _, p := range kb.phys {
		if p.ID == id {
			continue
		}
		trx := kb.transceivers[p.TransceiverID]
		if trx == nil || !targetTrx.IsCompatible(trx) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
