package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/beambalancer/axis/fake"
	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
	"go.viam.com/beambalancer/logging"
	"go.viam.com/beambalancer/supervisor"
	"go.viam.com/beambalancer/telemetry"
	"go.viam.com/beambalancer/warning"
)

// sampleEvery decimates the balancing statistics to one sample per millisecond at 10 kHz.
const sampleEvery = 10

type simOptions struct {
	seconds      float64
	realtime     bool
	beam         beam.Variant
	perturbation float64
	dryRun       bool
	broker       string
}

type simResult struct {
	ticks     uint64
	state     supervisor.State
	warnings  warning.Flags
	published uint64
	fs        float64
	rec       *recorder
}

func simulateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	variant, err := beam.ParseVariant(c.String(flagBeam))
	if err != nil {
		return err
	}
	logs, err := newLoggers(cfg.Log, c.Bool(flagDebug))
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(logs.Close)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	res, err := simulate(ctx, cfg, simOptions{
		seconds:      c.Float64(flagSeconds),
		realtime:     c.Bool(flagRealtime),
		beam:         variant,
		perturbation: c.Float64(flagPerturbation),
		dryRun:       c.Bool(flagDryRun),
		broker:       c.String(flagBroker),
	}, logs)
	if err != nil {
		return err
	}
	return printSummary(c.App.Writer, res)
}

func simulate(ctx context.Context, cfg *config.Config, opts simOptions, logs *loggers) (*simResult, error) {
	if !(opts.seconds > 0) {
		return nil, errors.Errorf("simulated time must be positive, got %v", opts.seconds)
	}
	if opts.dryRun {
		cfg.Supervisor.AutoStart = false
	}
	if opts.broker != "" {
		cfg.Telemetry.Broker = opts.broker
	}

	params, closeParams, err := openParameters(cfg, logs.named("params"))
	if err != nil {
		return nil, err
	}
	defer closeParams()

	sim := fake.NewDevice(cfg, fake.Options{Beam: opts.beam, Perturbation: opts.perturbation})
	regs := telemetry.NewRegisters()
	sup, err := supervisor.New(supervisor.Deps{
		Config:    cfg,
		Device:    sim,
		Params:    params,
		Telemetry: regs,
		Logger:    logs.named("supervisor"),
	})
	if err != nil {
		return nil, err
	}

	commands := supervisor.NewCommandSource()
	switch {
	case opts.dryRun:
		commands.Set(supervisor.CommandMoveDynamic)
	case !cfg.Supervisor.AutoStart:
		commands.Set(supervisor.CommandStart)
	}
	rec := newRecorder(sup)
	runner := supervisor.NewRunner(sup, commands, sim.Step, rec.sample)
	loop, err := control.NewLoop(logs.named("loop"), control.LoopConfig{Frequency: cfg.SamplingFrequency}, nil, runner)
	if err != nil {
		return nil, err
	}

	var pub *telemetry.Publisher
	if cfg.Telemetry.Broker != "" {
		pub, err = telemetry.NewPublisher(cfg.Telemetry, regs, nil, logs.named("telemetry"))
		if err != nil {
			return nil, err
		}
		if err := pub.Start(ctx); err != nil {
			return nil, err
		}
		defer pub.Close()
	}

	if opts.realtime {
		if err := loop.Start(); err != nil {
			return nil, err
		}
		utils.SelectContextOrWait(ctx, time.Duration(opts.seconds*float64(time.Second)))
		loop.Stop()
		if n := loop.Overruns(); n > 0 {
			logs.root.Warnw("ticks overran their period", "overruns", n, "ticks", loop.Ticks())
		}
	} else if err := loop.RunTicks(ctx, cfg.Ticks(opts.seconds)); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	res := &simResult{
		ticks:    sup.Ticks(),
		state:    sup.State(),
		warnings: sup.Warnings(),
		fs:       cfg.SamplingFrequency,
		rec:      rec,
	}
	if pub != nil {
		res.published = pub.Published()
	}
	return res, nil
}

func openParameters(cfg *config.Config, logger logging.Logger) (config.Parameters, func(), error) {
	if cfg.ParametersFile == "" {
		return config.NewMemoryParameters(config.DefaultTunables()), func() {}, nil
	}
	fp, err := config.NewFileParameters(cfg.ParametersFile, logger)
	if err != nil {
		return nil, nil, err
	}
	return fp, func() {
		if err := fp.Close(); err != nil {
			logger.Warnw("closing parameter file failed", "error", err)
		}
	}, nil
}

// recorder samples the balancing quality while the stabilizer is engaged. It runs on the tick
// goroutine and must only be read once the loop has stopped.
type recorder struct {
	sup      *supervisor.Supervisor
	tiltDeg  []float64
	trackMM  []float64
	inState  map[supervisor.State]uint64
	switches int
	last     supervisor.State
}

func newRecorder(sup *supervisor.Supervisor) *recorder {
	return &recorder{sup: sup, inState: map[supervisor.State]uint64{}, last: sup.State()}
}

func (r *recorder) sample() {
	state := r.sup.State()
	r.inState[state]++
	if state != r.last {
		r.switches++
		r.last = state
	}
	if !r.sup.ControllerEnabled() || r.sup.Ticks()%sampleEvery != 0 {
		return
	}
	x, y := r.sup.Sensor().Tilt()
	r.tiltDeg = append(r.tiltDeg, config.RadToDeg(math.Hypot(x.Pos, y.Pos)))
	pose := r.sup.Robot().Pose()
	xRef, yRef := r.sup.Composer().State()
	r.trackMM = append(r.trackMM, 1000*math.Hypot(pose.X-xRef.Pos, pose.Y-yRef.Pos))
}

type summary struct {
	Mean   float64
	StdDev float64
	P95    float64
	Max    float64
}

func summarize(data []float64) (summary, error) {
	var s summary
	var err, e error
	s.Mean, e = stats.Mean(data)
	err = multierr.Append(err, e)
	s.StdDev, e = stats.StandardDeviation(data)
	err = multierr.Append(err, e)
	s.P95, e = stats.Percentile(data, 95)
	err = multierr.Append(err, e)
	s.Max, e = stats.Max(data)
	err = multierr.Append(err, e)
	return s, err
}

func printSummary(w io.Writer, res *simResult) error {
	fmt.Fprintf(w, "ticks: %d\nfinal state: %v\nwarnings: %v\n", res.ticks, res.state, res.warnings)
	if res.published > 0 {
		fmt.Fprintf(w, "telemetry messages: %d\n", res.published)
	}

	states := lo.Keys(res.rec.inState)
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	fmt.Fprintf(w, "state changes: %d\n", res.rec.switches)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"State", "Time [s]"})
	for _, s := range states {
		t.AppendRow(table.Row{s, fmt.Sprintf("%.3f", float64(res.rec.inState[s])/res.fs)})
	}
	t.Render()

	if len(res.rec.tiltDeg) == 0 {
		fmt.Fprintln(w, "no balancing samples")
		return nil
	}
	tilt, err := summarize(res.rec.tiltDeg)
	if err != nil {
		return err
	}
	track, err := summarize(res.rec.trackMM)
	if err != nil {
		return err
	}
	t = table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"", "Mean", "Std", "P95", "Max"})
	for _, row := range []struct {
		name string
		s    summary
	}{
		{"tilt [deg]", tilt},
		{"tracking [mm]", track},
	} {
		t.AppendRow(table.Row{
			row.name,
			fmt.Sprintf("%.4f", row.s.Mean),
			fmt.Sprintf("%.4f", row.s.StdDev),
			fmt.Sprintf("%.4f", row.s.P95),
			fmt.Sprintf("%.4f", row.s.Max),
		})
	}
	t.Render()
	return nil
}
