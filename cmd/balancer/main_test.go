package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"go.viam.com/utils"

	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/logging"
	"go.viam.com/beambalancer/supervisor"
)

func testLoggers(t *testing.T) *loggers {
	t.Helper()
	return &loggers{root: logging.NewTestLogger(t), registry: logging.NewRegistry()}
}

func TestGainsCommand(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	test.That(t, app.Run([]string{"balancer", "gains"}), test.ShouldBeNil)

	out := buf.String()
	test.That(t, out, test.ShouldContainSubstring, "low beam")
	test.That(t, out, test.ShouldContainSubstring, "very_short beam")
	test.That(t, out, test.ShouldContainSubstring, "stable true")
	test.That(t, out, test.ShouldNotContainSubstring, "stable false")
}

func TestConfigFlag(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"balancer", "--config", filepath.Join(t.TempDir(), "missing.json"), "gains"})
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "machine.json")
	test.That(t, os.WriteFile(path, []byte(`{"controller": {"max_acc_out": 8}}`), 0o600), test.ShouldBeNil)
	test.That(t, app.Run([]string{"balancer", "-c", path, "gains"}), test.ShouldBeNil)
}

func TestProfileSeries(t *testing.T) {
	d, err := profileSeries(10000, 0.2, 0.5, 2, 20)
	test.That(t, err, test.ShouldBeNil)
	last := len(d.t) - 1
	test.That(t, d.pos[last], test.ShouldAlmostEqual, 0.2, 1e-4)
	test.That(t, d.vel[last], test.ShouldAlmostEqual, 0)
	for i := range d.vel {
		test.That(t, d.vel[i], test.ShouldBeLessThanOrEqualTo, 0.5*1.01)
		test.That(t, math.Abs(d.acc[i]), test.ShouldBeLessThanOrEqualTo, 2*1.01)
	}

	_, err = profileSeries(10000, 0, 0.5, 2, 20)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestProfileCommandWritesPlots(t *testing.T) {
	dir := t.TempDir()
	app := newApp()
	test.That(t, app.Run([]string{"balancer", "profile", "--distance", "0.1", "--out", dir}), test.ShouldBeNil)
	for _, name := range []string{"profile_pos.png", "profile_vel.png", "profile_acc.png", "profile_jrk.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
	}
}

func TestSequencePath(t *testing.T) {
	cfg := config.Default()
	xs, ys, err := sequencePath(&cfg, config.SequenceFast, beam.Low)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(xs), test.ShouldBeGreaterThan, 0)

	home := xs[0]
	homeY := ys[0]
	for i := range xs {
		test.That(t, math.IsNaN(xs[i]) || math.IsNaN(ys[i]), test.ShouldBeFalse)
	}
	test.That(t, xs[len(xs)-1], test.ShouldAlmostEqual, home, 1e-6)
	test.That(t, ys[len(ys)-1], test.ShouldAlmostEqual, homeY, 1e-6)

	_, _, err = sequencePath(&cfg, "slow", beam.Low)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPathCommandWritesPlot(t *testing.T) {
	dir := t.TempDir()
	app := newApp()
	test.That(t, app.Run([]string{"balancer", "path", "--sequence", "dynamic", "--out", dir}), test.ShouldBeNil)
	_, err := os.Stat(filepath.Join(dir, "path_dynamic.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, app.Run([]string{"balancer", "path", "--variant", "medium"}), test.ShouldNotBeNil)
}

func TestSimulateBalances(t *testing.T) {
	cfg := config.Default()
	cfg.ParametersFile = filepath.Join(t.TempDir(), "params.json")
	res, err := simulate(context.Background(), &cfg, simOptions{seconds: 3, beam: beam.Low}, testLoggers(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.ticks, test.ShouldEqual, uint64(30000))
	test.That(t, res.state, test.ShouldEqual, supervisor.StateCalibration)
	test.That(t, len(res.rec.tiltDeg), test.ShouldBeGreaterThan, 0)

	tilt, err := summarize(res.rec.tiltDeg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tilt.Max, test.ShouldBeLessThan, cfg.Beam.LockInDeg)

	_, err = os.Stat(cfg.ParametersFile)
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, printSummary(&buf, res), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "final state: calibration")
	test.That(t, buf.String(), test.ShouldContainSubstring, "tilt [deg]")
}

func TestSimulateDryRun(t *testing.T) {
	cfg := config.Default()
	res, err := simulate(context.Background(), &cfg, simOptions{seconds: 2, beam: beam.Invalid, dryRun: true}, testLoggers(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.rec.inState[supervisor.StateMoveDynamic], test.ShouldBeGreaterThan, 0)
	test.That(t, res.rec.tiltDeg, test.ShouldBeEmpty)

	var buf bytes.Buffer
	test.That(t, printSummary(&buf, res), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "no balancing samples")
}

func TestSimulateValidates(t *testing.T) {
	cfg := config.Default()
	_, err := simulate(context.Background(), &cfg, simOptions{}, testLoggers(t))
	test.That(t, err, test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := simulate(ctx, &cfg, simOptions{seconds: 1, beam: beam.Low}, testLoggers(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.ticks, test.ShouldEqual, uint64(0))
}

func TestLoggers(t *testing.T) {
	_, err := newLoggers(config.LogConfig{Level: "loud"}, false)
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "balancer.log")
	logs, err := newLoggers(config.LogConfig{
		Level:    "info",
		Patterns: []logging.LevelPattern{{Pattern: "balancer.quiet", Level: "error"}},
		File:     logging.FileConfig{Path: path, MaxSizeMB: 1},
	}, false)
	test.That(t, err, test.ShouldBeNil)

	quiet := logs.named("quiet")
	test.That(t, quiet.GetLevel(), test.ShouldEqual, logging.ERROR)
	test.That(t, logs.named("supervisor").GetLevel(), test.ShouldEqual, logging.INFO)
	test.That(t, logs.named("quiet"), test.ShouldEqual, quiet)

	logs.named("supervisor").Info("written to file")
	quiet.Info("dropped")
	utils.UncheckedError(logs.Close())

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "written to file")
	test.That(t, string(contents), test.ShouldNotContainSubstring, "dropped")

	debug, err := newLoggers(config.LogConfig{Level: "info"}, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, debug.root.GetLevel(), test.ShouldEqual, logging.DEBUG)
}
