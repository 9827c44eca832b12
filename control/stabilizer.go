package control

import (
	"github.com/samber/lo"
)

// StabilizerAxis is the state of one platform axis of the stabilizer.
type StabilizerAxis struct {
	// Z is the normal form state: integrator, centre of mass position, velocity, and the
	// acceleration and jerk implied by the tilt.
	Z   [5]float64
	Out MotionState
}

// Stabilizer is the state-feedback controller with integral action that keeps the beam upright.
// It integrates its own acceleration command into the platform reference it outputs.
type Stabilizer struct {
	ts        float64
	gravity   float64
	maxAccOut float64

	l0    float64
	gains Gains

	x StabilizerAxis
	y StabilizerAxis
}

// NewStabilizer returns a stabilizer for the given sampling time, gravity and output
// acceleration clamp.
func NewStabilizer(samplingTime, gravity, maxAccOut float64) *Stabilizer {
	return &Stabilizer{ts: samplingTime, gravity: gravity, maxAccOut: maxAccOut}
}

// SetPlant installs the pendulum length and gains of the identified beam.
func (s *Stabilizer) SetPlant(l0 float64, gains Gains) {
	s.l0 = l0
	s.gains = gains
}

// Gains returns the installed gains.
func (s *Stabilizer) Gains() Gains {
	return s.gains
}

// Reset puts the output at rest at (x, y) and clears the integrators.
func (s *Stabilizer) Reset(x, y float64) {
	s.x.Out = MotionState{Pos: x}
	s.y.Out = MotionState{Pos: y}
	s.ResetIntegrator()
}

// ResetIntegrator clears both integrators.
func (s *Stabilizer) ResetIntegrator() {
	s.x.Z[0] = 0
	s.y.Z[0] = 0
}

// Step runs one control period for both axes from the measured tilt and the reference.
func (s *Stabilizer) Step(xTilt, yTilt Tilt, xRef, yRef MotionState) {
	s.stepAxis(&s.x, xTilt, xRef)
	s.stepAxis(&s.y, yTilt, yRef)
}

func (s *Stabilizer) stepAxis(ax *StabilizerAxis, tilt Tilt, ref MotionState) {
	k := &s.gains.K
	ax.Z[4] = -s.gravity * tilt.Vel
	ax.Z[3] = -s.gravity * tilt.Pos
	ax.Z[2] = ax.Out.Vel - tilt.Vel*s.l0
	ax.Z[1] = ax.Out.Pos - tilt.Pos*s.l0

	limit := s.gains.IntegratorLimit
	ax.Z[0] = lo.Clamp(ax.Z[0]+(ref.Pos-ax.Z[1])*k[0], -limit, limit)

	acc := ax.Z[0] +
		k[1]*(ref.Pos-ax.Z[1]) +
		k[2]*(ref.Vel-ax.Z[2]) +
		k[3]*(ref.Acc-ax.Z[3]) +
		k[4]*(ref.Jrk-ax.Z[4])
	ax.Out.Acc = lo.Clamp(acc, -s.maxAccOut, s.maxAccOut)

	ax.Out.Pos += ax.Out.Vel*s.ts + 0.5*ax.Out.Acc*s.ts*s.ts
	ax.Out.Vel += ax.Out.Acc * s.ts
}

// Output returns the platform reference for both axes.
func (s *Stabilizer) Output() (MotionState, MotionState) {
	return s.x.Out, s.y.Out
}

// Axes returns the full internal state of both axes.
func (s *Stabilizer) Axes() (StabilizerAxis, StabilizerAxis) {
	return s.x, s.y
}
