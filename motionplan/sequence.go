package motionplan

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/config"
)

// Env is what a sequence step reads when it starts its move.
type Env struct {
	HomeX    float64
	HomeY    float64
	Variant  beam.Variant
	Tunables config.Tunables
	Path     config.PathConfig
	Variants config.Variants
}

// circleAcc is the acceleration limit of the spiral for the mounted beam.
func (e Env) circleAcc() float64 {
	switch e.Variant {
	case beam.Low:
		return e.Variants.Low.CircleAcc
	case beam.VeryShort:
		return e.Variants.VeryShort.CircleAcc
	default:
		return e.Variants.High.CircleAcc
	}
}

// Step starts one move on the composer.
type Step func(c *Composer, env Env)

// Sequencer runs a fixed list of steps, starting the next one whenever the composer is idle.
type Sequencer struct {
	name  string
	steps []Step
	next  int
}

// NewSequencer returns a sequencer over the given steps.
func NewSequencer(name string, steps []Step) *Sequencer {
	return &Sequencer{name: name, steps: steps}
}

// NewMoveSequencer returns the calibration choreography with the given name.
func NewMoveSequencer(name string) (*Sequencer, error) {
	switch name {
	case config.SequenceFast:
		return NewSequencer(name, fastSequence()), nil
	case config.SequenceStandard:
		return NewSequencer(name, standardSequence()), nil
	}
	return nil, errors.Errorf("unknown move sequence %q", name)
}

// NewDynamicSequencer returns the free-running pattern that is driven without beam feedback.
func NewDynamicSequencer() *Sequencer {
	return NewSequencer("dynamic", dynamicSequence())
}

// Name returns the sequence name.
func (s *Sequencer) Name() string {
	return s.name
}

// Index returns the step the sequencer starts next.
func (s *Sequencer) Index() int {
	return s.next
}

// Len returns the number of steps.
func (s *Sequencer) Len() int {
	return len(s.steps)
}

// Reset rewinds to the first step.
func (s *Sequencer) Reset() {
	s.next = 0
}

// Run starts the next step when the composer is idle. After the last step has finished it
// rewinds and reports true, once per cycle.
func (s *Sequencer) Run(c *Composer, env Env) bool {
	if !c.Idle() {
		return false
	}
	if s.next >= len(s.steps) {
		s.next = 0
		return true
	}
	s.steps[s.next](c, env)
	s.next++
	return false
}

func toPoint(dx, dy float64, limits func(Env) (float64, float64, float64), stay func(Env) float64) Step {
	return func(c *Composer, env Env) {
		v, a, j := limits(env)
		c.InitToPointMove(env.HomeX+dx, env.HomeY+dy, v, a, j, stay(env))
	}
}

// sweep rotates the whole linkage about the motor axis midpoint.
func sweep(rotation func(beam.Variant) float64, stay func(Env) float64) Step {
	return func(c *Composer, env Env) {
		t := env.Tunables
		c.InitCircleMove(0, 0, rotation(env.Variant), t.MoveVel, t.MoveAcc, t.MoveJerk, stay(env))
	}
}

func moveLimits(env Env) (float64, float64, float64) {
	t := env.Tunables
	return t.MoveVel, t.MoveAcc, t.MoveJerk
}

// settleLimits are used by the short moves that remove the interpolation error after a figure.
func settleLimits(accDiv float64) func(Env) (float64, float64, float64) {
	return func(env Env) (float64, float64, float64) {
		t := env.Tunables
		return t.MoveVel, t.MoveAcc / accDiv, 0.2
	}
}

func fixed(d float64) func(Env) float64 {
	return func(Env) float64 { return d }
}

func waitAfterMove(env Env) float64 {
	return env.Path.WaitAfterMove
}

func byVariant(low, high, veryShort float64) func(beam.Variant) float64 {
	return func(v beam.Variant) float64 {
		switch v {
		case beam.High:
			return high
		case beam.VeryShort:
			return veryShort
		default:
			return low
		}
	}
}

func spiral(limits func(Env) (float64, float64, float64)) Step {
	return func(c *Composer, env Env) {
		v, a, j := limits(env)
		r := env.Path.CircleRadius
		c.InitCircleMove(env.HomeX-r, env.HomeY, env.Path.CircleTurns*2*math.Pi, v, a, j, 0)
	}
}

func lissajous(scale func(beam.Variant) float64, limits func(Env) (float64, float64, float64)) Step {
	return func(c *Composer, env Env) {
		v, a, j := limits(env)
		t := env.Tunables
		c.InitLissajousMove(Lissajous{
			CenterX: env.HomeX,
			CenterY: env.HomeY,
			Radius0: t.Radius0,
			Radius1: t.Radius1,
			Scale:   scale(env.Variant),
			Turns:   env.Path.LissajousTurns,
		}, v, a, j, 0)
	}
}

// fastSequence is the choreography the machine ships with: a rectangle, a sweep of the whole
// linkage, a spiral and a Lissajous figure, with dynamics scaled per beam.
func fastSequence() []Step {
	const settle = 5
	return []Step{
		toPoint(0, 0.2, moveLimits, fixed(0.5)),
		toPoint(-0.25, 0.2, moveLimits, fixed(0.5)),
		toPoint(-0.25, -0.2, moveLimits, fixed(0.5)),
		toPoint(0, -0.2, moveLimits, fixed(0.5)),
		toPoint(0, 0, moveLimits, fixed(0)),
		toPoint(0, 0, func(env Env) (float64, float64, float64) {
			t := env.Tunables
			return t.MoveVel, t.MoveAcc / settle, t.MoveJerk
		}, waitAfterMove),
		sweep(byVariant(-1.4, -1, -1), fixed(0)),
		sweep(byVariant(2.8, 2, 2), fixed(0)),
		sweep(byVariant(-1.4, -1, -1), fixed(0)),
		toPoint(0, 0, settleLimits(settle), waitAfterMove),
		spiral(func(env Env) (float64, float64, float64) {
			t := env.Tunables
			gain := 1.0
			if env.Variant == beam.Low {
				gain = 1.2
			}
			return t.CircleVel * gain, t.CircleAcc, t.CircleJerk
		}),
		toPoint(0, 0, settleLimits(settle), waitAfterMove),
		lissajous(byVariant(1, 0.7, 0.8), func(env Env) (float64, float64, float64) {
			t := env.Tunables
			var gain float64
			switch env.Variant {
			case beam.Low:
				gain = 1
			case beam.High:
				gain = 0.7
			case beam.VeryShort:
				gain = 0.2
			default:
				gain = 1.2
			}
			return t.MoveVel, t.MoveAcc * gain, t.MoveJerk * gain
		}),
		toPoint(0, 0, settleLimits(settle), waitAfterMove),
	}
}

// standardSequence is the slower choreography with a wait after every corner.
func standardSequence() []Step {
	return []Step{
		toPoint(0, 0.2, moveLimits, waitAfterMove),
		toPoint(-0.3, 0.2, moveLimits, waitAfterMove),
		toPoint(-0.3, -0.2, moveLimits, waitAfterMove),
		toPoint(0, -0.2, moveLimits, waitAfterMove),
		toPoint(0, 0, moveLimits, fixed(0)),
		toPoint(0, 0, settleLimits(1), fixed(0)),
		toPoint(0, 0, moveLimits, waitAfterMove),
		sweep(byVariant(-1.4, -1.4, -1), waitAfterMove),
		sweep(byVariant(2.8, 2.8, 2), waitAfterMove),
		sweep(byVariant(-1.4, -1.4, -1), fixed(0)),
		toPoint(0, 0, settleLimits(1), waitAfterMove),
		spiral(func(env Env) (float64, float64, float64) {
			t := env.Tunables
			return t.MoveVel, env.circleAcc(), t.MoveJerk
		}),
		toPoint(0, 0, settleLimits(1), waitAfterMove),
		lissajous(fixedScale(1), moveLimits),
		toPoint(0, 0, settleLimits(1), waitAfterMove),
	}
}

// dynamicSequence runs the rectangle and a Lissajous figure at full machine dynamics.
func dynamicSequence() []Step {
	dynamic := func(Env) (float64, float64, float64) { return 4, 20, 100 }
	const waitAfter = 0.1
	return []Step{
		toPoint(0, 0.2, dynamic, fixed(waitAfter)),
		toPoint(-0.3, 0.2, dynamic, fixed(waitAfter)),
		toPoint(-0.3, -0.2, dynamic, fixed(waitAfter)),
		toPoint(0, -0.2, dynamic, fixed(waitAfter)),
		toPoint(0, 0, dynamic, fixed(0)),
		toPoint(0, 0, settleLimits(1), waitAfterMove),
		lissajous(fixedScale(1), dynamic),
		toPoint(0, 0, settleLimits(1), waitAfterMove),
	}
}

func fixedScale(s float64) func(beam.Variant) float64 {
	return func(beam.Variant) float64 { return s }
}
