package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/wifi-interference-sim/core"
	"github.com/signalsfoundry/wifi-interference-sim/internal/config"
	"github.com/signalsfoundry/wifi-interference-sim/internal/logging"
	"github.com/signalsfoundry/wifi-interference-sim/internal/observability"
	"github.com/signalsfoundry/wifi-interference-sim/interference"
	"github.com/signalsfoundry/wifi-interference-sim/timectrl"
)

type options struct {
	scenarioPath   string
	profilePath    string
	phyID          string
	noiseFigureDB  float64
	numInterferers uint
	trafficRate    float64
	tick           time.Duration
	duration       time.Duration
	accelerated    bool
	strict         bool
	metricsAddr    string
	tracing        observability.TracingConfig
}

type runSummary struct {
	Phy          *core.Phy
	StepsApplied int
	StepsPending int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, log := logging.WithRunLogger(ctx, logging.NewFromEnv())

	var opts options
	envTracing, err := observability.TracingConfigFromEnv()
	if err != nil {
		log.Error(ctx, "invalid tracing environment", logging.Err(err))
		os.Exit(1)
	}
	opts.tracing = envTracing

	flag.StringVar(&opts.scenarioPath, "scenario", "configs/phy_scenario.json", "JSON file with transceiver models and PHYs")
	flag.StringVar(&opts.profilePath, "profile", "", "interference profile (YAML or JSON); when empty a single step is built from -phy, -noise-figure, -num-interferers and -traffic-rate")
	flag.StringVar(&opts.phyID, "phy", "ap0", "PHY to configure when no profile is given")
	flag.Float64Var(&opts.noiseFigureDB, "noise-figure", 7, "receiver noise figure in dB")
	flag.UintVar(&opts.numInterferers, "num-interferers", 0, "number of interfering transmitters")
	flag.Float64Var(&opts.trafficRate, "traffic-rate", 0, "offered load per interferer")
	flag.DurationVar(&opts.tick, "tick", time.Second, "tick interval")
	flag.DurationVar(&opts.duration, "duration", 10*time.Second, "total simulation duration")
	flag.BoolVar(&opts.accelerated, "accelerated", true, "run in accelerated mode (vs real-time)")
	flag.BoolVar(&opts.strict, "strict", false, "fail on traffic and number models instead of applying them as no-ops")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics; disabled when empty")
	flag.StringVar(&opts.tracing.Exporter, "trace-exporter", envTracing.Exporter, "span exporter: none, stdout or otlp (env INTERFERENCE_TRACE_EXPORTER)")
	flag.StringVar(&opts.tracing.Endpoint, "trace-endpoint", envTracing.Endpoint, "OTLP collector host:port (env INTERFERENCE_TRACE_ENDPOINT)")
	flag.Float64Var(&opts.tracing.SampleRatio, "trace-sample-ratio", envTracing.SampleRatio, "fraction of runs traced, 0 to 1 (env INTERFERENCE_TRACE_SAMPLE_RATIO)")
	flag.Parse()

	if _, err := run(ctx, opts, log); err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, log logging.Logger) (*runSummary, error) {
	if log == nil {
		log = logging.Noop()
	}
	if opts.numInterferers > math.MaxUint32 {
		return nil, fmt.Errorf("num-interferers %d out of range", opts.numInterferers)
	}

	netKB := core.NewKnowledgeBase()
	if err := loadScenario(ctx, log, netKB, opts.scenarioPath); err != nil {
		return nil, err
	}

	profile, err := loadProfile(opts)
	if err != nil {
		return nil, err
	}

	target, err := netKB.GetPhy(profile.Phy)
	if err != nil {
		return nil, err
	}
	if peers, err := netKB.CoChannelPhys(target.ID); err == nil {
		log.Info(ctx, "target phy selected",
			logging.String("phy_id", target.ID),
			logging.String("transceiver_id", target.TransceiverID),
			logging.Float("noise_figure_db", target.NoiseFigureDB()),
			logging.Int("co_channel_phys", len(peers)),
		)
	}

	tracing, err := observability.NewRunTracing(ctx, opts.tracing, logging.RunIDFromContext(ctx), target.ID, log)
	if err != nil {
		return nil, fmt.Errorf("initialise tracing: %w", err)
	}
	defer tracing.Close(ctx)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewInterferenceCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("initialise metrics: %w", err)
	}
	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	handlers := interference.DefaultHandlers()
	if opts.strict {
		handlers = interference.StrictHandlers()
	}
	factory := interference.NewFactory(interference.WithFactoryLogger(log))
	manager, err := interference.NewManager(target,
		interference.WithLogger(log),
		interference.WithHandlers(handlers),
		interference.WithMetrics(collector),
		interference.WithTracer(tracing.Tracer()),
	)
	if err != nil {
		return nil, err
	}

	mode := timectrl.RealTime
	if opts.accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTimeController(time.Now().UTC(), opts.tick, mode)

	runner := newStepRunner(profile, tc, factory, manager, collector, log)
	if err := runner.applyDue(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var stepErr error
	tc.AddListener(func(time.Time) {
		if stepErr != nil {
			return
		}
		if err := runner.applyDue(runCtx); err != nil {
			stepErr = err
			cancel()
		}
	})

	log.Info(ctx, "starting simulation",
		logging.String("duration", opts.duration.String()),
		logging.String("tick", opts.tick.String()),
		logging.String("mode", mode.String()),
		logging.Int("steps", len(profile.Steps)),
	)
	runErr := tc.Run(runCtx, opts.duration)
	if stepErr != nil {
		return nil, stepErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return nil, runErr
	}

	summary := &runSummary{
		Phy:          target,
		StepsApplied: runner.applied,
		StepsPending: runner.pending(),
	}
	if summary.StepsPending > 0 {
		log.Warn(ctx, "simulation ended before every interference step was reached",
			logging.Int("pending_steps", summary.StepsPending),
		)
	}

	log.Info(ctx, "simulation complete",
		logging.String("phy_id", target.ID),
		logging.Int("steps_applied", summary.StepsApplied),
		logging.Any("attributes", target.Attributes()),
	)
	return summary, nil
}

func loadScenario(ctx context.Context, log logging.Logger, netKB *core.KnowledgeBase, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open phy scenario %q: %w", path, err)
	}
	defer f.Close()

	scenario, err := core.LoadPhyScenario(netKB, f)
	if err != nil {
		return fmt.Errorf("load phy scenario %q: %w", path, err)
	}
	log.Info(ctx, "loaded phy scenario",
		logging.String("path", path),
		logging.Int("transceivers", len(scenario.TransceiverIDs)),
		logging.Int("phys", len(scenario.PhyIDs)),
	)
	return nil
}

func loadProfile(opts options) (*config.Profile, error) {
	if opts.profilePath != "" {
		return config.Load(opts.profilePath)
	}
	profile := config.FromFlags(opts.phyID, opts.noiseFigureDB, uint32(opts.numInterferers), opts.trafficRate)
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

func serveMetrics(addr string, collector *observability.InterferenceCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
