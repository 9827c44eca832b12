package kinematics

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
)

func wrap(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

func testRobot() *Robot {
	cfg := config.Default()
	return NewRobot(&cfg)
}

func TestForwardHome(t *testing.T) {
	r := testRobot()
	r.SetHomePosition(config.DegToRad(-45), config.DegToRad(45))
	home := r.Home()
	test.That(t, home.X, test.ShouldAlmostEqual, 0.5252, 1e-3)
	test.That(t, home.Y, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, r.IsOutOfRange(), test.ShouldBeFalse)
}

func TestRoundTrip(t *testing.T) {
	l := testRobot().Linkage()
	for _, p := range [][2]float64{
		{0.5252, 0},
		{0.5252, 0.2},
		{0.2752, -0.2},
		{0.3, 0.05},
		{0.6, -0.1},
		{0.089, -0.517},
	} {
		targets, out := l.Backward(control.MotionState{Pos: p[0]}, control.MotionState{Pos: p[1]})
		test.That(t, out, test.ShouldBeFalse)
		test.That(t, targets.Phi0.Vel, test.ShouldEqual, 0.)
		test.That(t, targets.Phi1.Acc, test.ShouldEqual, 0.)

		pose := l.Forward(targets.Phi0.Pos, targets.Phi1.Pos)
		test.That(t, pose.X, test.ShouldAlmostEqual, p[0], 1e-9)
		test.That(t, pose.Y, test.ShouldAlmostEqual, p[1], 1e-9)
		test.That(t, wrap(pose.Xi-targets.Xi), test.ShouldAlmostEqual, 0, 1e-9)
	}
}

func TestBackwardOutOfRange(t *testing.T) {
	r := testRobot()
	reach := r.Linkage().B + r.Linkage().C

	r.BackwardKinematics(control.MotionState{Pos: reach}, control.MotionState{})
	test.That(t, r.IsOutOfRange(), test.ShouldBeTrue)
	targets := r.Targets()
	test.That(t, math.IsNaN(targets.Phi0.Pos), test.ShouldBeFalse)
	test.That(t, math.IsNaN(targets.Phi1.Pos), test.ShouldBeFalse)

	// Only the arm of joint 1 is overstretched.
	r.BackwardKinematics(control.MotionState{Pos: 0.745}, control.MotionState{Pos: -0.05})
	test.That(t, r.IsOutOfRange(), test.ShouldBeTrue)

	// The flag follows the last transform.
	r.BackwardKinematics(control.MotionState{Pos: 0.5}, control.MotionState{})
	test.That(t, r.IsOutOfRange(), test.ShouldBeFalse)
	test.That(t, r.Pose().X, test.ShouldEqual, 0.5)
}

func TestLimitsViolated(t *testing.T) {
	cfg := config.Default()
	limits := NewLimits(cfg.Joints)
	deg := config.DegToRad
	for _, tc := range []struct {
		phi0, phi1 float64
		violated   bool
	}{
		{-45, 45, false},
		{0, 0, false},
		{-181, 0, true},
		{61, 90, true},
		{-90, -61, true},
		{-10, 181, true},
		{10, 5, true},
		{-170, 15, true},
	} {
		test.That(t, limits.Violated(deg(tc.phi0), deg(tc.phi1)), test.ShouldEqual, tc.violated)
	}
}
