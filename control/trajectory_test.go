package control

import (
	"fmt"
	"math"
	"testing"

	"go.viam.com/test"
)

const testFs = 1000.

type moveCase struct {
	distance, vMax, aMax, jMax float64
}

var moveCases = []moveCase{
	{0.2, 0.5, 2, 20},
	{0.05, 1, 5, 100},
	{1.3, 0.8, 3, 50},
	{0.001, 0.5, 2, 20},
	{-0.25, 0.5, 2, 20},
	{75.4, 10, 33, 333},
}

// runToDone steps p with run=true until done and returns every state including the final one.
func runToDone(t *testing.T, p *Profile1D) []MotionState {
	t.Helper()
	var states []MotionState
	for i := 0; i < 1_000_000; i++ {
		done := p.Step(true)
		states = append(states, p.State())
		if done {
			return states
		}
	}
	t.Fatal("profile never finished")
	return nil
}

func TestPositionMoveLandsWithinLimits(t *testing.T) {
	for _, tc := range moveCases {
		t.Run(fmt.Sprintf("%v", tc), func(t *testing.T) {
			p := NewProfile1D(testFs)
			p.InitPositionMove(tc.distance, tc.vMax, tc.aMax, tc.jMax)
			seg := p.Segments()
			test.That(t, seg.Jerk, test.ShouldBeGreaterThanOrEqualTo, 1)
			test.That(t, seg.Acc, test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, seg.Vel, test.ShouldBeGreaterThanOrEqualTo, 0)

			states := runToDone(t, p)
			last := states[len(states)-1]
			test.That(t, last.Pos, test.ShouldAlmostEqual, tc.distance, 1e-9)
			test.That(t, last.Vel, test.ShouldEqual, 0.)
			test.That(t, last.Acc, test.ShouldEqual, 0.)
			test.That(t, last.Jrk, test.ShouldEqual, 0.)

			// Duration follows from the segment counts: both ramps plus the cruise.
			test.That(t, len(states), test.ShouldEqual, 2*(2*seg.Jerk+seg.Acc)+seg.Vel)

			const slack = 1 + 1e-9
			sign := math.Copysign(1, tc.distance)
			for _, s := range states {
				test.That(t, math.Abs(s.Vel), test.ShouldBeLessThanOrEqualTo, tc.vMax*slack)
				test.That(t, math.Abs(s.Acc), test.ShouldBeLessThanOrEqualTo, tc.aMax*slack)
				test.That(t, math.Abs(s.Jrk), test.ShouldBeLessThanOrEqualTo, tc.jMax*slack)
				test.That(t, s.Vel*sign, test.ShouldBeGreaterThanOrEqualTo, -1e-12)
			}
		})
	}
}

func TestPositionMoveMirrors(t *testing.T) {
	for _, tc := range moveCases {
		forward := NewProfile1D(testFs)
		forward.InitPositionMove(tc.distance, tc.vMax, tc.aMax, tc.jMax)
		backward := NewProfile1D(testFs)
		backward.InitPositionMove(-tc.distance, tc.vMax, tc.aMax, tc.jMax)

		fStates := runToDone(t, forward)
		bStates := runToDone(t, backward)
		test.That(t, len(bStates), test.ShouldEqual, len(fStates))
		for i := range fStates {
			test.That(t, bStates[i], test.ShouldResemble, fStates[i].Scale(-1))
		}
	}
}

func TestStopFromEveryPhase(t *testing.T) {
	p := NewProfile1D(testFs)
	p.InitPositionMove(0.2, 0.5, 2, 20)
	total := len(runToDone(t, p))

	for _, stopAt := range []int{1, 2, 50, 100, 150, 240, 300, total / 2, total - 260, total - 100, total - 1} {
		t.Run(fmt.Sprintf("stop at %d", stopAt), func(t *testing.T) {
			p := NewProfile1D(testFs)
			p.InitPositionMove(0.2, 0.5, 2, 20)
			for i := 0; i < stopAt; i++ {
				test.That(t, p.Step(true), test.ShouldBeFalse)
			}
			ticks := 0
			for !p.Step(false) {
				ticks++
				test.That(t, ticks, test.ShouldBeLessThan, total)
				test.That(t, p.Vel(), test.ShouldBeGreaterThanOrEqualTo, -1e-12)
				test.That(t, math.Abs(p.Jrk()), test.ShouldBeLessThanOrEqualTo, 20*(1+1e-9))
				test.That(t, math.Abs(p.Acc()), test.ShouldBeLessThanOrEqualTo, 2*(1+1e-9))
			}
			test.That(t, p.Vel(), test.ShouldEqual, 0.)
			test.That(t, p.Acc(), test.ShouldEqual, 0.)
			test.That(t, p.Pos(), test.ShouldBeLessThanOrEqualTo, 0.2+1e-9)

			// Done is sticky and run=true does not restart a stopped move.
			test.That(t, p.Step(true), test.ShouldBeTrue)
			test.That(t, p.Vel(), test.ShouldEqual, 0.)
		})
	}
}

func TestDegenerateMoves(t *testing.T) {
	for _, tc := range []moveCase{
		{0, 0.5, 2, 20},
		{0.2, 0, 2, 20},
		{0.2, 0.5, 0, 20},
		{0.2, 0.5, 2, 0},
	} {
		p := NewProfile1D(testFs)
		// Leave the profile mid-move first, a degenerate init must discard it.
		p.InitPositionMove(0.3, 0.5, 2, 20)
		for i := 0; i < 100; i++ {
			p.Step(true)
		}
		p.InitPositionMove(tc.distance, tc.vMax, tc.aMax, tc.jMax)
		test.That(t, p.Step(true), test.ShouldBeTrue)
		test.That(t, p.State(), test.ShouldResemble, MotionState{})
	}
}

func TestVelocityMove(t *testing.T) {
	p := NewProfile1D(testFs)
	p.InitVelocityMove(-0.3, 2, 20)
	for i := 0; i < 2000; i++ {
		test.That(t, p.Step(true), test.ShouldBeFalse)
		test.That(t, p.Vel(), test.ShouldBeGreaterThanOrEqualTo, -0.3*(1+1e-9))
		test.That(t, math.Abs(p.Acc()), test.ShouldBeLessThanOrEqualTo, 2*(1+1e-9))
	}
	test.That(t, p.Vel(), test.ShouldAlmostEqual, -0.3, 1e-9)
	test.That(t, p.Acc(), test.ShouldAlmostEqual, 0, 1e-9)

	ticks := 0
	for !p.Step(false) {
		ticks++
		test.That(t, ticks, test.ShouldBeLessThan, 2000)
		test.That(t, p.Vel(), test.ShouldBeLessThanOrEqualTo, 1e-12)
	}
	test.That(t, p.Vel(), test.ShouldEqual, 0.)
	test.That(t, p.Pos(), test.ShouldBeLessThan, 0.)

	p.InitVelocityMove(0, 2, 20)
	for i := 0; i < 10; i++ {
		test.That(t, p.Step(true), test.ShouldBeFalse)
	}
	test.That(t, p.Step(false), test.ShouldBeTrue)
	test.That(t, p.Pos(), test.ShouldEqual, 0.)
}
