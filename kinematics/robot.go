package kinematics

import (
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
)

// Limits are the software joint limits in radians. Delta is phi1 - phi0.
type Limits struct {
	Phi0Min  float64
	Phi0Max  float64
	Phi1Min  float64
	Phi1Max  float64
	DeltaMin float64
	DeltaMax float64
}

// NewLimits converts the configured joint limits to radians.
func NewLimits(j config.JointLimits) Limits {
	return Limits{
		Phi0Min:  config.DegToRad(j.Phi0MinDeg),
		Phi0Max:  config.DegToRad(j.Phi0MaxDeg),
		Phi1Min:  config.DegToRad(j.Phi1MinDeg),
		Phi1Max:  config.DegToRad(j.Phi1MaxDeg),
		DeltaMin: config.DegToRad(j.DeltaMinDeg),
		DeltaMax: config.DegToRad(j.DeltaMaxDeg),
	}
}

// Violated reports whether either joint or the joint delta is outside its band.
func (l Limits) Violated(phi0, phi1 float64) bool {
	delta := phi1 - phi0
	return phi0 < l.Phi0Min || phi0 > l.Phi0Max ||
		phi1 < l.Phi1Min || phi1 > l.Phi1Max ||
		delta < l.DeltaMin || delta > l.DeltaMax
}

// Robot owns the kinematic state of the machine across ticks: the last commanded pose, the home
// pose and the out-of-range flag of the last backward transform.
type Robot struct {
	linkage Linkage
	limits  Limits

	pose       Pose
	home       Pose
	targets    JointTargets
	outOfRange bool
}

// NewRobot returns a robot for the given machine configuration.
func NewRobot(cfg *config.Config) *Robot {
	return &Robot{
		linkage: NewLinkage(cfg.Geometry),
		limits:  NewLimits(cfg.Joints),
	}
}

// Linkage returns the robot geometry.
func (r *Robot) Linkage() Linkage {
	return r.linkage
}

// Limits returns the joint limits.
func (r *Robot) Limits() Limits {
	return r.limits
}

// ForwardKinematics updates the pose from measured joint angles.
func (r *Robot) ForwardKinematics(phi0, phi1 float64) Pose {
	r.pose = r.linkage.Forward(phi0, phi1)
	return r.pose
}

// SetHomePosition takes the pose at the given joint angles as the home pose and clears the
// out-of-range flag.
func (r *Robot) SetHomePosition(phi0, phi1 float64) {
	r.home = r.ForwardKinematics(phi0, phi1)
	r.outOfRange = false
}

// BackwardKinematics computes the joint targets for a platform reference. The out-of-range flag
// reflects this call only.
func (r *Robot) BackwardKinematics(x, y control.MotionState) JointTargets {
	r.targets, r.outOfRange = r.linkage.Backward(x, y)
	r.pose = Pose{X: x.Pos, Y: y.Pos, Xi: r.targets.Xi}
	return r.targets
}

// Pose returns the last commanded or measured pose.
func (r *Robot) Pose() Pose {
	return r.pose
}

// Home returns the home pose.
func (r *Robot) Home() Pose {
	return r.home
}

// Targets returns the joint targets of the last backward transform.
func (r *Robot) Targets() JointTargets {
	return r.targets
}

// IsOutOfRange reports whether the last backward transform exceeded the reach limit.
func (r *Robot) IsOutOfRange() bool {
	return r.outOfRange
}
