package beam

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
	"go.viam.com/beambalancer/logging"
	"go.viam.com/beambalancer/warning"
)

const (
	lowLevel  = 0.5
	highLevel = 2.5
)

type sensorFixture struct {
	cfg      config.Config
	params   *config.MemoryParameters
	warnings *warning.Field
	sensor   *Sensor
}

func newFixture(t *testing.T) *sensorFixture {
	t.Helper()
	logger := logging.NewTestLogger(t)
	f := &sensorFixture{
		cfg:      config.Default(),
		params:   config.NewMemoryParameters(config.DefaultTunables()),
		warnings: warning.NewField(logger),
	}
	f.sensor = NewSensor(&f.cfg, f.params, f.warnings, logger)
	return f
}

// rawFor returns channel readings that produce the given B/A tilt in radians on the low beam.
func (f *sensorFixture) rawFor(b, a float64, offsets config.Offsets) Channels {
	low := f.cfg.Beam.Variants.Low
	return Channels{B: b/low.HallGainB - offsets.B, A: a/low.HallGainA - offsets.A}
}

func TestIdentifyBeam(t *testing.T) {
	f := newFixture(t)
	s := f.sensor
	test.That(t, s.Variant(), test.ShouldEqual, Invalid)

	for _, tc := range []struct {
		level float64
		want  Variant
	}{
		{lowLevel, Low},
		{1.5, Invalid},
		{highLevel, High},
		{f.cfg.Beam.LowLevel, Invalid},
	} {
		for i := 0; i < 3; i++ {
			test.That(t, s.IdentifyBeam(tc.level), test.ShouldEqual, tc.want)
		}
	}
	test.That(t, f.warnings.Flags(), test.ShouldEqual, warning.None)

	s.RequestVeryShortBeam()
	test.That(t, s.IdentifyBeam(lowLevel), test.ShouldEqual, VeryShort)
	test.That(t, s.IdentifyBeam(highLevel), test.ShouldEqual, High)

	test.That(t, s.IdentifyBeam(0.1), test.ShouldEqual, VeryShort)
	test.That(t, f.warnings.Has(warning.BeamDetectionUndervoltage), test.ShouldBeTrue)

	s.Invalidate()
	test.That(t, s.VeryShortRequested(), test.ShouldBeFalse)
	test.That(t, s.IdentifyBeam(lowLevel), test.ShouldEqual, Low)
}

func TestBeamReadyAndLost(t *testing.T) {
	f := newFixture(t)
	stored := config.Offsets{B: -120, A: 45}
	f.params.SetOffsets(config.SlotLow, stored)
	s := f.sensor

	level := func() Channels { return f.rawFor(0, 0, stored) }

	// The first call configures the beam.
	s.CalcInclination(level(), 0)
	test.That(t, s.IsBeamReady(lowLevel), test.ShouldBeFalse)
	test.That(t, s.Variant(), test.ShouldEqual, Low)
	test.That(t, s.Offsets(), test.ShouldResemble, stored)
	test.That(t, s.L0(), test.ShouldAlmostEqual, f.cfg.Gravity/81)

	s.CalcInclination(level(), 0)
	test.That(t, s.IsBeamReady(lowLevel), test.ShouldBeTrue)

	// Re-identifying the same beam keeps the calibration and the gains.
	gains := s.Gains()
	for i := 0; i < 5; i++ {
		test.That(t, s.IsBeamReady(lowLevel), test.ShouldBeTrue)
	}
	test.That(t, s.Offsets(), test.ShouldResemble, stored)
	test.That(t, s.Gains(), test.ShouldResemble, gains)
	test.That(t, s.GainCache().Derivations(), test.ShouldEqual, 1)

	lockIn := config.DegToRad(f.cfg.Beam.LockInDeg)
	lockOut := config.DegToRad(f.cfg.Beam.LockOutDeg)

	s.CalcInclination(f.rawFor(1.5*lockIn, 0, stored), 0)
	test.That(t, s.IsBeamReady(lowLevel), test.ShouldBeFalse)
	test.That(t, s.IsBeamLost(lowLevel), test.ShouldBeFalse)

	s.CalcInclination(f.rawFor(0, 1.1*lockOut, stored), 0)
	test.That(t, s.IsBeamLost(lowLevel), test.ShouldBeTrue)

	s.CalcInclination(level(), 0)
	test.That(t, s.IsBeamLost(lowLevel), test.ShouldBeFalse)
	test.That(t, s.IsBeamLost(highLevel), test.ShouldBeTrue)

	// A different beam is configured but not ready on the same call.
	test.That(t, s.IsBeamReady(highLevel), test.ShouldBeFalse)
	test.That(t, s.Variant(), test.ShouldEqual, High)
	test.That(t, s.L0(), test.ShouldAlmostEqual, f.cfg.Gravity/25)
	test.That(t, s.GainCache().Derivations(), test.ShouldEqual, 2)
}

func TestInclinationRotation(t *testing.T) {
	f := newFixture(t)
	s := f.sensor
	s.SetParameters(Low)

	ch := f.rawFor(0.01, 0.02, config.Offsets{})
	s.CalcInclination(ch, 0)
	x, y := s.Tilt()
	test.That(t, x.Pos, test.ShouldAlmostEqual, 0.01, 1e-12)
	test.That(t, y.Pos, test.ShouldAlmostEqual, 0.02, 1e-12)

	s.CalcInclination(ch, math.Pi/2)
	x, y = s.Tilt()
	test.That(t, x.Pos, test.ShouldAlmostEqual, -0.02, 1e-12)
	test.That(t, y.Pos, test.ShouldAlmostEqual, 0.01, 1e-12)
}

func TestInclinationVelocity(t *testing.T) {
	f := newFixture(t)
	s := f.sensor
	s.SetParameters(Low)

	const rate = 0.2
	var x control.Tilt
	for i := 0; i < int(f.cfg.SamplingFrequency); i++ {
		tilt := rate * float64(i) / f.cfg.SamplingFrequency
		s.CalcInclination(f.rawFor(tilt, 0, config.Offsets{}), 0)
		x, _ = s.Tilt()
	}
	test.That(t, x.Vel, test.ShouldAlmostEqual, rate, 1e-6)
}

func TestCalibration(t *testing.T) {
	f := newFixture(t)
	s := f.sensor
	s.SetParameters(Low)

	raw := Channels{B: 200, A: -100}
	test.That(t, s.CalcCalibValues(raw), test.ShouldBeTrue)
	drifted := true
	for i := 0; i < 10*int(f.cfg.SamplingFrequency); i++ {
		drifted = s.CalcCalibValues(raw)
	}
	test.That(t, drifted, test.ShouldBeFalse)

	s.CalibOffset()
	test.That(t, s.Offsets().B, test.ShouldAlmostEqual, -200, 1)
	test.That(t, s.Offsets().A, test.ShouldAlmostEqual, 100, 1)
	test.That(t, f.params.Offsets(config.SlotLow), test.ShouldResemble, s.Offsets())

	s.CalcInclination(raw, 0)
	x, y := s.Tilt()
	test.That(t, math.Abs(x.Pos), test.ShouldBeLessThan, 1e-3)
	test.That(t, math.Abs(y.Pos), test.ShouldBeLessThan, 1e-3)

	// The very short beam never stores its offsets.
	s.SetParameters(VeryShort)
	for i := 0; i < 1000; i++ {
		s.CalcCalibValues(Channels{B: 500, A: 500})
	}
	s.CalibOffset()
	test.That(t, f.params.Offsets(config.SlotLow).B, test.ShouldAlmostEqual, -200, 1)
	test.That(t, f.params.Offsets(config.SlotHigh), test.ShouldResemble, config.Offsets{})
}

func TestVeryShortGains(t *testing.T) {
	f := newFixture(t)
	variants := f.cfg.Beam.Variants
	test.That(t, GainFreqSq(Low, variants), test.ShouldAlmostEqual, 81)
	test.That(t, GainFreqSq(High, variants), test.ShouldAlmostEqual, 25)
	test.That(t, GainFreqSq(VeryShort, variants), test.ShouldAlmostEqual, 9*15)

	f.sensor.SetParameters(VeryShort)
	test.That(t, f.sensor.L0(), test.ShouldAlmostEqual, f.cfg.Gravity/225, 1e-12)

	tunables := config.DefaultTunables()
	ts := f.cfg.SamplingTime()
	want := control.DeriveGains(control.GainInputs{
		Damping:       tunables.Damping,
		StateFreqHz:   tunables.StateFreqHz,
		IntFreqHz:     tunables.IntFreqHz,
		NaturalFreqSq: 9 * 15,
	}, ts, f.cfg.Gravity, config.DegToRad(f.cfg.Controller.IntegratorLimitDeg))
	test.That(t, f.sensor.Gains(), test.ShouldResemble, want)
	test.That(t, f.warnings.Has(warning.GainsUnstable), test.ShouldBeFalse)
}

func TestUnstableGainsWarn(t *testing.T) {
	f := newFixture(t)
	tunables := config.DefaultTunables()
	tunables.Damping = -0.3
	f.params.SetTunables(tunables)

	f.sensor.SetParameters(High)
	test.That(t, f.warnings.Has(warning.GainsUnstable), test.ShouldBeTrue)

	f.sensor.SetParameters(Variant(42))
	test.That(t, f.warnings.Has(warning.InternalUndefinedCase), test.ShouldBeTrue)
}

func TestGainCache(t *testing.T) {
	gc := NewGainCache(1e-4, 9.81, config.DegToRad(2.5))
	in := control.GainInputs{Damping: 0.7, StateFreqHz: 2, IntFreqHz: 0.2, NaturalFreqSq: 81}

	g1, stable := gc.Get(Low, in)
	test.That(t, stable, test.ShouldBeTrue)
	g2, _ := gc.Get(Low, in)
	test.That(t, g2, test.ShouldResemble, g1)
	test.That(t, gc.Derivations(), test.ShouldEqual, 1)

	in.StateFreqHz = 3
	g3, _ := gc.Get(Low, in)
	test.That(t, g3.K[4], test.ShouldNotEqual, g1.K[4])
	test.That(t, gc.Derivations(), test.ShouldEqual, 2)

	gc.Get(High, in)
	test.That(t, gc.Derivations(), test.ShouldEqual, 3)
}

func TestVariantString(t *testing.T) {
	test.That(t, Low.String(), test.ShouldEqual, "low")
	test.That(t, VeryShort.String(), test.ShouldEqual, "very_short")
	test.That(t, Variant(9).String(), test.ShouldEqual, "unknown")
	test.That(t, Invalid.Valid(), test.ShouldBeFalse)
	test.That(t, High.Valid(), test.ShouldBeTrue)

	v, err := ParseVariant("very_short")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, VeryShort)
	_, err = ParseVariant("medium")
	test.That(t, err, test.ShouldNotBeNil)
}
