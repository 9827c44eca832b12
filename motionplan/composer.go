// Package motionplan composes planar platform trajectories from jerk-limited 1D profiles and
// runs the scripted move sequences.
package motionplan

import (
	"math"

	"go.viam.com/beambalancer/control"
	"go.viam.com/beambalancer/warning"
)

// Kind is the trajectory a Composer is currently producing.
type Kind int

// Trajectory kinds.
const (
	KindNone Kind = iota
	KindToPoint
	KindCircle
	KindLissajous
	KindStay
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindToPoint:
		return "to_point"
	case KindCircle:
		return "circle"
	case KindLissajous:
		return "lissajous"
	case KindStay:
		return "stay"
	}
	return "unknown"
}

// Lissajous describes a figure whose x component turns twice as fast as its y component.
// The figure starts and ends at the center.
type Lissajous struct {
	CenterX float64
	CenterY float64
	// Radius0 and Radius1 are the x and y amplitudes before scaling.
	Radius0 float64
	Radius1 float64
	Scale   float64
	Turns   float64
}

// Composer produces the x/y reference of the platform one tick at a time. It holds exactly one
// active trajectory kind.
type Composer struct {
	fs       float64
	profile  *control.Profile1D
	warnings *warning.Field

	kind Kind
	x    control.MotionState
	y    control.MotionState

	x0     float64
	y0     float64
	cosA   float64
	sinA   float64
	psi0   float64
	radius float64
	r0     float64
	r1     float64

	stayDuration  float64
	stayCountdown int
}

// NewComposer returns an idle composer at the origin.
func NewComposer(samplingFrequency float64, warnings *warning.Field) *Composer {
	return &Composer{
		fs:       samplingFrequency,
		profile:  control.NewProfile1D(samplingFrequency),
		warnings: warnings,
	}
}

// Reset drops any active trajectory and puts the reference at rest at (x, y).
func (c *Composer) Reset(x, y float64) {
	c.kind = KindNone
	c.x = control.MotionState{Pos: x}
	c.y = control.MotionState{Pos: y}
}

// Kind returns the active trajectory kind.
func (c *Composer) Kind() Kind {
	return c.kind
}

// Idle reports whether no trajectory is active.
func (c *Composer) Idle() bool {
	return c.kind == KindNone
}

// State returns the x and y reference.
func (c *Composer) State() (control.MotionState, control.MotionState) {
	return c.x, c.y
}

// Profile returns the underlying 1D profile.
func (c *Composer) Profile() *control.Profile1D {
	return c.profile
}

// InitToPointMove starts a straight move from the current reference to (xEnd, yEnd) and holds
// the end point for stay seconds afterwards.
func (c *Composer) InitToPointMove(xEnd, yEnd, vMax, aMax, jMax, stay float64) {
	c.kind = KindToPoint
	c.stayDuration = stay
	c.x0, c.y0 = c.x.Pos, c.y.Pos

	dx, dy := xEnd-c.x.Pos, yEnd-c.y.Pos
	delta := math.Hypot(dx, dy)
	if delta > 0 {
		c.cosA, c.sinA = dx/delta, dy/delta
	} else {
		c.cosA, c.sinA = 0, 0
	}
	c.profile.InitPositionMove(delta, vMax, aMax, jMax)
}

// InitCircleMove starts an arc of rotation radians around (xCenter, yCenter) through the current
// reference. The linear limits are converted to angular ones at the arc radius.
func (c *Composer) InitCircleMove(xCenter, yCenter, rotation, vMax, aMax, jMax, stay float64) {
	c.kind = KindCircle
	c.stayDuration = stay
	c.x0, c.y0 = xCenter, yCenter

	dx, dy := c.x.Pos-xCenter, c.y.Pos-yCenter
	c.psi0 = math.Atan2(dy, dx)
	c.radius = math.Hypot(dx, dy)
	w, wAcc, wJrk := angularLimits(vMax, aMax, jMax, c.radius, 1)
	c.profile.InitPositionMove(rotation, w, wAcc, wJrk)
}

// InitLissajousMove starts the figure described by l. The angular velocity limit is derived from
// the larger unscaled radius.
func (c *Composer) InitLissajousMove(l Lissajous, vMax, aMax, jMax, stay float64) {
	c.kind = KindLissajous
	c.stayDuration = stay
	c.r0 = l.Radius0 * l.Scale
	c.r1 = l.Radius1 * l.Scale
	c.x0 = l.CenterX - c.r0*math.Sqrt2/2
	c.y0 = l.CenterY
	c.psi0 = math.Pi / 4
	c.radius = math.Max(l.Radius0, l.Radius1)
	w, wAcc, wJrk := angularLimits(vMax, aMax, jMax, c.radius, 0.5)
	c.profile.InitPositionMove(l.Turns*2*math.Pi, w, wAcc, wJrk)
}

// angularLimits converts linear limits to angle space, w = share·vMax/r, with acceleration and
// jerk scaled by the same factor.
func angularLimits(vMax, aMax, jMax, radius, share float64) (float64, float64, float64) {
	if radius <= 0 || vMax == 0 {
		return 0, 0, 0
	}
	w := share * vMax / radius
	return w, aMax * w / vMax, jMax * w / vMax
}

// InitStayAtPosition holds the current position for duration seconds.
func (c *Composer) InitStayAtPosition(duration float64) {
	c.kind = KindStay
	c.stayCountdown = int(duration * c.fs)
	c.x0, c.y0 = c.x.Pos, c.y.Pos
}

// Step advances the active trajectory by one tick. run=false decelerates a running profile to a
// stop. A finished profile is followed by its stay; a finished stay leaves the composer idle.
func (c *Composer) Step(run bool) {
	profileDone := false
	moveDone := false
	switch c.kind {
	case KindToPoint:
		profileDone = c.profile.Step(run)
		c.toPoint()
	case KindCircle:
		profileDone = c.profile.Step(run)
		c.circle()
	case KindLissajous:
		profileDone = c.profile.Step(run)
		c.lissajous()
	case KindStay:
		if c.stayCountdown <= 0 {
			moveDone = true
		} else {
			c.stayCountdown--
		}
		c.stay()
	case KindNone:
		moveDone = true
	default:
		c.warnings.Set(warning.InternalUndefinedCase)
		moveDone = true
	}

	if profileDone {
		c.InitStayAtPosition(c.stayDuration)
	}
	if moveDone {
		c.kind = KindNone
	}
}

func (c *Composer) stay() {
	c.x = control.MotionState{Pos: c.x0}
	c.y = control.MotionState{Pos: c.y0}
}

func (c *Composer) toPoint() {
	p := c.profile.State()
	c.x = p.Scale(c.cosA)
	c.x.Pos += c.x0
	c.y = p.Scale(c.sinA)
	c.y.Pos += c.y0
}

// circle maps the angle profile onto (r·cos ψ, r·sin ψ) with ψ = ψ0 + τ.
func (c *Composer) circle() {
	p := c.profile.State()
	psi := p.Pos + c.psi0
	rs, rc := math.Sin(psi)*c.radius, math.Cos(psi)*c.radius
	v, a, j := p.Vel, p.Acc, p.Jrk
	v2 := v * v
	v3 := v2 * v

	c.x = control.MotionState{
		Pos: rc + c.x0,
		Vel: -rs * v,
		Acc: -rc*v2 - rs*a,
		Jrk: rs*(v3-j) - 3*rc*v*a,
	}
	c.y = control.MotionState{
		Pos: rs + c.y0,
		Vel: rc * v,
		Acc: -rs*v2 + rc*a,
		Jrk: -rc*(v3-j) - 3*rs*v*a,
	}
}

// lissajous maps the profile τ onto x = r0·sin(2τ + ψ0) and y = r1·sin τ.
func (c *Composer) lissajous() {
	p := c.profile.State()
	v, a, j := p.Vel, p.Acc, p.Jrk
	v2 := v * v
	v3 := v2 * v

	psiX := 2*p.Pos + c.psi0
	rs, rc := math.Sin(psiX)*c.r0, math.Cos(psiX)*c.r0
	c.x = control.MotionState{
		Pos: rs + c.x0,
		Vel: 2 * rc * v,
		Acc: -4*rs*v2 + 2*rc*a,
		Jrk: -rc*(8*v3-2*j) - 12*rs*v*a,
	}

	rs, rc = math.Sin(p.Pos)*c.r1, math.Cos(p.Pos)*c.r1
	c.y = control.MotionState{
		Pos: rs + c.y0,
		Vel: rc * v,
		Acc: -rs*v2 + rc*a,
		Jrk: -rc*(v3-j) - 3*rs*v*a,
	}
}
