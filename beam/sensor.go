package beam

import (
	"math"

	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
	"go.viam.com/beambalancer/logging"
	"go.viam.com/beambalancer/warning"
)

// Channels are the raw readings of the two hall sensors measuring the beam tilt.
type Channels struct {
	B float64
	A float64
}

// Sensor fuses the hall channels into platform x/y tilt, identifies the mounted beam from its
// identification level and keeps the calibration baseline of the channels.
type Sensor struct {
	logger   logging.Logger
	cfg      config.BeamConfig
	params   config.Parameters
	warnings *warning.Field
	cache    *GainCache

	fs      float64
	gravity float64
	lockIn  float64
	lockOut float64

	variant            Variant
	identified         Variant
	veryShortRequested bool

	offsets config.Offsets
	gainB   float64
	gainA   float64
	l0      float64
	gains   control.Gains

	x     control.Tilt
	y     control.Tilt
	xRate *control.Differentiator
	yRate *control.Differentiator

	calibB *control.SinglePole
	calibA *control.SinglePole
}

// NewSensor returns a sensor with no beam identified.
func NewSensor(cfg *config.Config, params config.Parameters, warnings *warning.Field, logger logging.Logger) *Sensor {
	ts := cfg.SamplingTime()
	velHz := params.Tunables().VelFilterHz
	return &Sensor{
		logger:   logger,
		cfg:      cfg.Beam,
		params:   params,
		warnings: warnings,
		cache:    NewGainCache(ts, cfg.Gravity, config.DegToRad(cfg.Controller.IntegratorLimitDeg)),
		fs:       cfg.SamplingFrequency,
		gravity:  cfg.Gravity,
		lockIn:   config.DegToRad(cfg.Beam.LockInDeg),
		lockOut:  config.DegToRad(cfg.Beam.LockOutDeg),
		xRate:    control.NewDifferentiator(velHz, cfg.SamplingFrequency),
		yRate:    control.NewDifferentiator(velHz, cfg.SamplingFrequency),
		calibB:   control.NewSinglePole(cfg.Beam.CalibFilterFreq, ts),
		calibA:   control.NewSinglePole(cfg.Beam.CalibFilterFreq, ts),
	}
}

// CalcInclination rotates the calibrated channels by the platform orientation xi into x/y tilt
// and updates the filtered tilt rate. It runs every tick to keep the rate filter settled.
func (s *Sensor) CalcInclination(ch Channels, xi float64) {
	cosXi, sinXi := math.Cos(xi), math.Sin(xi)
	b := (ch.B + s.offsets.B) * s.gainB
	a := (ch.A + s.offsets.A) * s.gainA

	s.x.Pos = cosXi*b - sinXi*a
	s.y.Pos = sinXi*b + cosXi*a
	s.x.Vel = s.xRate.Next(s.x.Pos)
	s.y.Vel = s.yRate.Next(s.y.Pos)
}

// IdentifyBeam classifies the identification level. A level below the low threshold is the low
// beam, or the very short beam when one was requested.
func (s *Sensor) IdentifyBeam(level float64) Variant {
	if level < s.cfg.UndervoltageLevel {
		s.warnings.Set(warning.BeamDetectionUndervoltage)
	}
	switch {
	case level < s.cfg.LowLevel:
		if s.veryShortRequested {
			s.identified = VeryShort
		} else {
			s.identified = Low
		}
	case level > s.cfg.HighLevel:
		s.identified = High
	default:
		s.identified = Invalid
	}
	return s.identified
}

// IsBeamReady reports whether the configured beam is mounted and resting within the lock-in
// threshold. When it is, the tilt state is cleared so detection transients do not reach the
// controller. A different valid beam is configured instead and reported as not ready.
func (s *Sensor) IsBeamReady(level float64) bool {
	id := s.IdentifyBeam(level)
	if id == Invalid {
		return false
	}
	if id != s.variant {
		s.SetParameters(id)
		return false
	}
	if math.Abs(s.x.Pos) >= s.lockIn || math.Abs(s.y.Pos) >= s.lockIn {
		return false
	}
	s.x, s.y = control.Tilt{}, control.Tilt{}
	s.xRate.Reset(0)
	s.yRate.Reset(0)
	return true
}

// IsBeamLost reports whether the mounted beam changed or either tilt exceeds the lock-out
// threshold.
func (s *Sensor) IsBeamLost(level float64) bool {
	return s.IdentifyBeam(level) != s.variant ||
		math.Abs(s.x.Pos) > s.lockOut || math.Abs(s.y.Pos) > s.lockOut
}

// SetParameters configures the sensor and the controller gains for beam v. The calibration
// baseline restarts from the stored offsets of the beam.
func (s *Sensor) SetParameters(v Variant) {
	vc, slot, ok := variantParams(v, s.cfg.Variants)
	if !ok {
		s.warnings.Set(warning.InternalUndefinedCase)
	}
	s.variant = v

	tunables := s.params.Tunables()
	s.l0 = s.gravity / (vc.NaturalFreq * vc.NaturalFreq)
	s.offsets = s.params.Offsets(slot)
	s.gainB = vc.HallGainB
	s.gainA = vc.HallGainA

	alpha := control.PoleCoefficient(tunables.VelFilterHz, 1/s.fs)
	s.xRate.Alpha = alpha
	s.yRate.Alpha = alpha

	gains, stable := s.cache.Get(v, control.GainInputs{
		Damping:       tunables.Damping,
		StateFreqHz:   tunables.StateFreqHz,
		IntFreqHz:     tunables.IntFreqHz,
		NaturalFreqSq: GainFreqSq(v, s.cfg.Variants),
	})
	s.gains = gains
	if !stable {
		s.warnings.Set(warning.GainsUnstable)
	}

	s.calibB.Reset(-s.offsets.B)
	s.calibA.Reset(-s.offsets.A)
	s.logger.Infow("beam parameters set", "variant", v, "l0", s.l0, "stable", stable)
}

// CalcCalibValues advances the calibration baseline and reports whether the current readings
// deviate from it by more than the drift threshold.
func (s *Sensor) CalcCalibValues(ch Channels) bool {
	b := s.calibB.Next(ch.B)
	a := s.calibA.Next(ch.A)
	return math.Abs(b-ch.B) > s.cfg.CalibDriftRaw || math.Abs(a-ch.A) > s.cfg.CalibDriftRaw
}

// CalibOffset takes the calibration baseline as the new zero of both channels and stores it for
// the low and high beams. The very short beam shares the low beam offsets without storing them.
func (s *Sensor) CalibOffset() {
	s.offsets = config.Offsets{B: -s.calibB.Value(), A: -s.calibA.Value()}
	s.x.Vel, s.y.Vel = 0, 0
	s.xRate.Reset(0)
	s.yRate.Reset(0)

	switch s.variant {
	case Low:
		s.params.SetOffsets(config.SlotLow, s.offsets)
	case High:
		s.params.SetOffsets(config.SlotHigh, s.offsets)
	}
	s.logger.Debugw("calibration offsets applied", "variant", s.variant, "b", s.offsets.B, "a", s.offsets.A)
}

// Invalidate forgets the mounted beam and any very short beam request.
func (s *Sensor) Invalidate() {
	s.variant = Invalid
	s.veryShortRequested = false
}

// RequestVeryShortBeam makes the next low level identification report the very short beam.
func (s *Sensor) RequestVeryShortBeam() {
	s.veryShortRequested = true
}

// VeryShortRequested reports whether a very short beam request is pending.
func (s *Sensor) VeryShortRequested() bool {
	return s.veryShortRequested
}

// Variant returns the configured beam.
func (s *Sensor) Variant() Variant {
	return s.variant
}

// Identified returns the result of the last identification.
func (s *Sensor) Identified() Variant {
	return s.identified
}

// Tilt returns the x and y tilt of the beam.
func (s *Sensor) Tilt() (control.Tilt, control.Tilt) {
	return s.x, s.y
}

// L0 returns the equivalent pendulum length of the configured beam.
func (s *Sensor) L0() float64 {
	return s.l0
}

// Gains returns the controller gains of the configured beam.
func (s *Sensor) Gains() control.Gains {
	return s.gains
}

// Offsets returns the channel offsets in use.
func (s *Sensor) Offsets() config.Offsets {
	return s.offsets
}

// GainCache returns the cache the sensor derives gains through.
func (s *Sensor) GainCache() *GainCache {
	return s.cache
}
