package control

import (
	"math"
)

// Segments are the integer tick counts of a profile and its peak jerk per tick cubed.
type Segments struct {
	Jerk     int
	Acc      int
	Vel      int
	PeakJerk float64
}

// Profile1D is a jerk-limited scalar move generator. Internally velocity, acceleration and jerk
// are kept in per-tick units (v·Ts, a·Ts², j·Ts³) so that integration is a sum of increments;
// the accessors scale back to SI units. Each move starts at position 0.
type Profile1D struct {
	fs float64
	ts float64

	pos    float64
	velAct float64
	accAct float64
	jrkAct float64

	nJrk    int
	nAcc    int
	nVel    int
	posEnd  float64
	jrkMax  float64
	isVel   bool
	stopped bool

	cntJrkPos int
	cntJrkNeg int
	cntAcc    int
	cntVel    int
}

// NewProfile1D returns an idle profile for the given sampling frequency in Hz.
func NewProfile1D(samplingFrequency float64) *Profile1D {
	return &Profile1D{fs: samplingFrequency, ts: 1 / samplingFrequency}
}

// Pos returns the position travelled since the move was initialized.
func (p *Profile1D) Pos() float64 { return p.pos }

// Vel returns the velocity.
func (p *Profile1D) Vel() float64 { return p.velAct * p.fs }

// Acc returns the acceleration.
func (p *Profile1D) Acc() float64 { return p.accAct * p.fs * p.fs }

// Jrk returns the jerk applied during the next tick.
func (p *Profile1D) Jrk() float64 { return p.jrkAct * p.fs * p.fs * p.fs }

// State returns the profile output as a MotionState.
func (p *Profile1D) State() MotionState {
	return MotionState{Pos: p.Pos(), Vel: p.Vel(), Acc: p.Acc(), Jrk: p.Jrk()}
}

// Segments returns the segment counts of the last initialized move.
func (p *Profile1D) Segments() Segments {
	return Segments{Jerk: p.nJrk, Acc: p.nAcc, Vel: p.nVel, PeakJerk: p.jrkMax}
}

// reset prepares the counters for a new move. The first jerk tick is scheduled by the caller.
func (p *Profile1D) reset() {
	p.cntJrkPos = 1
	p.cntAcc = 0
	p.cntJrkNeg = 0
	p.cntVel = 0
	p.jrkAct = 0
	p.accAct = 0
	p.velAct = 0
	p.pos = 0
	p.stopped = false
}

// zero leaves the profile in a state where the next Step reports done without moving.
func (p *Profile1D) zero() {
	p.nJrk, p.nAcc, p.nVel = 0, 0, 0
	p.jrkMax = 0
	p.reset()
	p.cntJrkPos = 0
}

// InitPositionMove plans a move over distance with the given limits. The segment counts are the
// smallest integers meeting every limit, after which the peak jerk is recomputed so that the move
// ends exactly at distance. A zero argument yields a move that is done on its first step.
func (p *Profile1D) InitPositionMove(distance, vMax, aMax, jMax float64) {
	p.isVel = false
	if distance == 0 || vMax == 0 || aMax == 0 || jMax == 0 {
		p.zero()
		return
	}
	p.posEnd = distance

	// Work in units of the peak jerk so that every count comes out in ticks.
	invJerk := 1 / (math.Abs(jMax) * p.ts * p.ts * p.ts)
	pos := math.Abs(distance) * invJerk
	vel := math.Abs(vMax) * invJerk * p.ts
	acc := math.Abs(aMax) * invJerk * p.ts * p.ts

	n := math.Min(acc, math.Min(math.Sqrt(vel), math.Cbrt(0.5*pos)))
	p.nJrk = 1
	if n > 1 {
		p.nJrk = int(n)
	}
	nJrk := float64(p.nJrk)

	n = math.Min(vel/nJrk-nJrk, -1.5*nJrk+math.Sqrt(0.25*nJrk*nJrk+pos/nJrk))
	p.nAcc = int(math.Max(n, 0))
	nAcc := float64(p.nAcc)

	n = pos/((nJrk+nAcc)*nJrk) - (2*nJrk + nAcc)
	p.nVel = int(math.Ceil(math.Max(n, 0)))
	nVel := float64(p.nVel)

	p.jrkMax = p.posEnd / ((2*nJrk + nAcc + nVel) * (nJrk + nAcc) * nJrk)
	p.reset()
	p.jrkAct = p.jrkMax
}

// InitVelocityMove plans a move that ramps to vel and holds it until Step is called with
// run=false, after which it decelerates along the mirrored ramp.
func (p *Profile1D) InitVelocityMove(vel, aMax, jMax float64) {
	p.isVel = true
	if vel == 0 || aMax == 0 || jMax == 0 {
		p.zero()
		return
	}
	p.nVel = 0
	p.posEnd = 0

	invJerk := 1 / (math.Abs(jMax) * p.ts * p.ts * p.ts)
	velN := math.Abs(vel) * invJerk * p.ts
	acc := math.Abs(aMax) * invJerk * p.ts * p.ts

	n := math.Min(acc, math.Sqrt(velN))
	p.nJrk = 1
	if n > 1 {
		p.nJrk = int(n)
	}
	nJrk := float64(p.nJrk)

	p.nAcc = int(math.Ceil(math.Max(velN/nJrk-nJrk, 0)))
	nAcc := float64(p.nAcc)

	// The reached velocity per tick is jrkMax·nJrk·(nJrk+nAcc).
	p.jrkMax = vel * p.ts / (nJrk * (nJrk + nAcc))
	p.reset()
	p.jrkAct = p.jrkMax
}

// Step advances the profile by one tick and reports whether the move is complete. Passing
// run=false latches a stop: the profile decelerates along the mirror of its ramp from whatever
// phase it is in. On the tick that reports done, velocity, acceleration and jerk are zero.
func (p *Profile1D) Step(run bool) bool {
	p.stopped = p.stopped || !run

	p.pos += p.velAct + 0.5*p.accAct + p.jrkAct/6
	p.velAct += p.accAct + 0.5*p.jrkAct
	p.accAct += p.jrkAct

	if !p.stopped {
		switch {
		case p.cntJrkPos < p.nJrk:
			p.cntJrkPos++
			p.jrkAct = p.jrkMax
		case p.cntAcc < p.nAcc:
			p.cntAcc++
			p.jrkAct = 0
		case p.cntJrkNeg < p.cntJrkPos:
			p.cntJrkNeg++
			p.jrkAct = -p.jrkMax
		case p.cntVel < p.nVel || p.isVel:
			p.cntVel++
			p.jrkAct = 0
		default:
			p.stopped = true
		}
	}

	if !p.stopped {
		return false
	}
	switch {
	case p.cntJrkNeg < 2*p.cntJrkPos:
		p.cntJrkNeg++
		p.jrkAct = -p.jrkMax
	case p.cntAcc > 0:
		p.cntAcc--
		p.jrkAct = 0
	case p.cntJrkPos > 0:
		p.cntJrkPos--
		p.jrkAct = p.jrkMax
	default:
		p.cntJrkNeg = 0
		p.jrkAct = 0
		p.accAct = 0
		p.velAct = 0
		return true
	}
	return false
}
