package main

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/wifi-interference-sim/internal/config"
	"github.com/signalsfoundry/wifi-interference-sim/internal/logging"
	"github.com/signalsfoundry/wifi-interference-sim/internal/observability"
	"github.com/signalsfoundry/wifi-interference-sim/interference"
	"github.com/signalsfoundry/wifi-interference-sim/timectrl"
)

// stepRunner feeds profile steps into a manager as simulation time passes.
// Step offsets are measured from the clock's time when the runner was
// created. It is driven from the time controller's listener and is not safe
// for concurrent use.
type stepRunner struct {
	steps     []config.Step
	clock     timectrl.SimClock
	start     time.Time
	factory   *interference.Factory
	manager   *interference.Manager
	collector *observability.InterferenceCollector
	log       logging.Logger

	next    int
	applied int
}

func newStepRunner(
	profile *config.Profile,
	clock timectrl.SimClock,
	factory *interference.Factory,
	manager *interference.Manager,
	collector *observability.InterferenceCollector,
	log logging.Logger,
) *stepRunner {
	if log == nil {
		log = logging.Noop()
	}
	return &stepRunner{
		steps:     profile.Steps,
		clock:     clock,
		start:     clock.Now(),
		factory:   factory,
		manager:   manager,
		collector: collector,
		log:       log,
	}
}

// applyDue applies, in order, every step whose offset has been reached on
// the clock. It stops at the first failing step.
func (r *stepRunner) applyDue(ctx context.Context) error {
	elapsed := r.clock.Now().Sub(r.start)
	for r.next < len(r.steps) && r.steps[r.next].At.Duration() <= elapsed {
		idx := r.next
		r.next++
		if err := r.applyStep(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func (r *stepRunner) applyStep(ctx context.Context, idx int) error {
	step := r.steps[idx]
	if step.Clear {
		r.manager.ClearInterferenceModels()
	}
	for j, ms := range step.Models {
		spec, err := ms.ToSpec()
		if err != nil {
			return fmt.Errorf("step %d model %d: %w", idx, j, err)
		}
		model, err := r.factory.Create(spec)
		if err != nil {
			return fmt.Errorf("step %d model %d: %w", idx, j, err)
		}
		r.manager.AddInterferenceModel(model)
	}

	results, err := r.manager.ApplyAllInterferenceModels(ctx)
	target := r.manager.Target()
	r.collector.SetNoiseFigure(target.ID, target.NoiseFigureDB())
	if err != nil {
		return fmt.Errorf("step %d at %s: %w", idx, step.At, err)
	}
	r.applied++

	placeholders := 0
	for _, res := range results {
		if res.Placeholder {
			placeholders++
		}
	}
	r.log.Info(ctx, "interference step applied",
		logging.Int("step", idx),
		logging.String("at", step.At.String()),
		logging.Bool("cleared", step.Clear),
		logging.Int("models_held", r.manager.Len()),
		logging.Int("placeholders", placeholders),
		logging.Float("noise_figure_db", target.NoiseFigureDB()),
	)
	return nil
}

// pending returns the number of steps not yet reached.
func (r *stepRunner) pending() int { return len(r.steps) - r.next }
