package fake

import "math"

// fallenTilt is the tilt in radians at which the beam rests on its end stop.
const fallenTilt = 1.0

// Pendulum is a linear inverted pendulum per platform axis: the centre of mass c accelerates with
// ωn²·(c - x) away from the pivot x. The tilt is (x - c)/l0.
type Pendulum struct {
	wn2 float64
	l0  float64
	ts  float64

	held bool
	cx   float64
	cy   float64
	vx   float64
	vy   float64
}

// NewPendulum returns a held pendulum with the given natural frequency.
func NewPendulum(naturalFreq, gravity, samplingTime float64) *Pendulum {
	wn2 := naturalFreq * naturalFreq
	return &Pendulum{wn2: wn2, l0: gravity / wn2, ts: samplingTime, held: true}
}

// L0 returns the equivalent pendulum length.
func (p *Pendulum) L0() float64 {
	return p.l0
}

// Held reports whether the pendulum is held upright above the pivot.
func (p *Pendulum) Held() bool {
	return p.held
}

// Hold puts the centre of mass straight above the pivot moving with it.
func (p *Pendulum) Hold(x, y, vx, vy float64) {
	p.held = true
	p.cx, p.cy = x, y
	p.vx, p.vy = vx, vy
}

// Release lets the pendulum go with the given initial tilt about the x axis.
func (p *Pendulum) Release(tilt float64) {
	p.held = false
	p.cx -= tilt * p.l0
}

// Step integrates one tick for the pivot at (x, y).
func (p *Pendulum) Step(x, y, vx, vy float64) {
	if p.held {
		p.Hold(x, y, vx, vy)
		return
	}
	p.cx, p.vx = p.axis(p.cx, p.vx, x, vx)
	p.cy, p.vy = p.axis(p.cy, p.vy, y, vy)
}

func (p *Pendulum) axis(c, v, x, vx float64) (float64, float64) {
	v += p.wn2 * (c - x) * p.ts
	c += v * p.ts
	if tilt := (x - c) / p.l0; math.Abs(tilt) > fallenTilt {
		return x - math.Copysign(fallenTilt, tilt)*p.l0, vx
	}
	return c, v
}

// Tilt returns the tilt about both axes for the pivot at (x, y).
func (p *Pendulum) Tilt(x, y float64) (float64, float64) {
	return (x - p.cx) / p.l0, (y - p.cy) / p.l0
}
