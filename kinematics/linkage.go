// Package kinematics maps between the platform position of the five-bar linkage and its two
// motor joint angles.
//
// Both motors sit on the y axis at ±DHalf, joint 0 below and joint 1 above the x axis. Each
// motor carries an upper arm of length B; the two forearms of length C meet at the platform.
package kinematics

import (
	"math"

	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
)

// reachLimit is the share of the squared full reach beyond which a pose counts as out of range.
const reachLimit = 0.98

// Linkage holds the fixed geometry of the five-bar linkage.
type Linkage struct {
	B     float64
	C     float64
	DHalf float64
}

// NewLinkage returns the linkage for the configured geometry.
func NewLinkage(g config.Geometry) Linkage {
	return Linkage{B: g.UpperArm, C: g.Forearm, DHalf: g.MotorDistance / 2}
}

// Pose is a platform position together with the orientation Xi of the platform beam relative to
// the x axis.
type Pose struct {
	X  float64
	Y  float64
	Xi float64
}

// JointTargets are the joint references produced by backward kinematics.
type JointTargets struct {
	Phi0 control.MotionState
	Phi1 control.MotionState
	// Xi is the platform orientation implied by the targets.
	Xi float64
}

// Forward returns the platform pose for the given joint angles. The forearms intersect in two
// points; the one facing away from the motors is chosen. The result is NaN when the elbows are
// further apart than two forearm lengths.
func (l Linkage) Forward(phi0, phi1 float64) Pose {
	x01 := math.Cos(phi0) * l.B
	y01 := math.Sin(phi0)*l.B - l.DHalf
	x11 := math.Cos(phi1) * l.B
	y11 := math.Sin(phi1)*l.B + l.DHalf

	xc := (x01 + x11) / 2
	yc := (y01 + y11) / 2
	d1 := math.Hypot(x11-x01, y11-y01)
	dc := math.Sqrt(l.C*l.C - d1*d1/4)

	x := xc + dc/d1*(y11-y01)
	y := yc - dc/d1*(x11-x01)
	return Pose{X: x, Y: y, Xi: math.Atan2(y-y01, x-x01)}
}

// Backward returns the joint targets reaching the platform position (x.Pos, y.Pos). outOfRange
// reports whether either arm would have to extend beyond the reach limit; the targets are still
// computed with the elbow fully stretched. Joint velocities and accelerations are left zero, the
// axis position loop interpolates between samples.
func (l Linkage) Backward(x, y control.MotionState) (JointTargets, bool) {
	var targets JointTargets
	phi0, alpha0, out0 := l.arm(x.Pos, y.Pos+l.DHalf)
	phi1, _, out1 := l.arm(x.Pos, y.Pos-l.DHalf)

	targets.Phi0.Pos = phi0.psi - phi0.gamma
	targets.Phi1.Pos = phi1.psi + phi1.gamma
	targets.Xi = targets.Phi0.Pos + math.Pi - alpha0
	return targets, out0 || out1
}

type armAngles struct {
	psi   float64
	gamma float64
}

// arm solves one arm for a platform position given relative to its motor.
func (l Linkage) arm(x, y float64) (armAngles, float64, bool) {
	aSq := x*x + y*y
	psi := math.Atan2(y, x)

	// angle between upper arm and forearm
	cosAlpha := (l.B*l.B + l.C*l.C - aSq) / (2 * l.B * l.C)
	cosAlpha = math.Max(-1, math.Min(1, cosAlpha))
	alpha := math.Acos(cosAlpha)

	// angle between the motor-platform line and the upper arm
	gamma := math.Atan2(math.Sin(alpha), l.B/l.C-cosAlpha)

	reach := l.B + l.C
	return armAngles{psi: psi, gamma: gamma}, alpha, aSq > reachLimit*reach*reach
}
