package motionplan

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/warning"
)

func testEnv(v beam.Variant) Env {
	cfg := config.Default()
	return Env{
		HomeX:    0.525,
		HomeY:    0,
		Variant:  v,
		Tunables: config.DefaultTunables(),
		Path:     cfg.Path,
		Variants: cfg.Beam.Variants,
	}
}

func TestNewMoveSequencer(t *testing.T) {
	fast, err := NewMoveSequencer(config.SequenceFast)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fast.Len(), test.ShouldEqual, 15)

	standard, err := NewMoveSequencer(config.SequenceStandard)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, standard.Len(), test.ShouldEqual, 15)
	test.That(t, standard.Name(), test.ShouldEqual, "standard")

	_, err = NewMoveSequencer("slow")
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, NewDynamicSequencer().Len(), test.ShouldEqual, 8)
}

func TestSequencerWaitsForComposer(t *testing.T) {
	env := testEnv(beam.Low)
	c := NewComposer(testFs, warning.NewField(nil))
	c.Reset(env.HomeX, env.HomeY)
	s, err := NewMoveSequencer(config.SequenceFast)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, s.Run(c, env), test.ShouldBeFalse)
	test.That(t, c.Kind(), test.ShouldEqual, KindToPoint)
	test.That(t, s.Index(), test.ShouldEqual, 1)

	// The first move heads straight for home + (0, 0.2).
	c.Step(true)
	x, y := c.State()
	test.That(t, x.Pos, test.ShouldAlmostEqual, env.HomeX, 1e-12)
	test.That(t, y.Pos, test.ShouldBeGreaterThan, env.HomeY)

	for i := 0; i < 100; i++ {
		test.That(t, s.Run(c, env), test.ShouldBeFalse)
		c.Step(true)
	}
	test.That(t, s.Index(), test.ShouldEqual, 1)

	s.Reset()
	test.That(t, s.Index(), test.ShouldEqual, 0)
}

// runCycle drives one full sequence and returns the number of ticks and starting kinds.
func runCycle(t *testing.T, s *Sequencer, c *Composer, env Env) (int, []Kind) {
	t.Helper()
	var kinds []Kind
	for tick := 0; tick < 10_000_000; tick++ {
		wasIdle := c.Idle()
		if s.Run(c, env) {
			return tick, kinds
		}
		if wasIdle && !c.Idle() {
			kinds = append(kinds, c.Kind())
		}
		c.Step(true)
	}
	t.Fatal("sequence never finished")
	return 0, nil
}

func TestSequencesCycle(t *testing.T) {
	for _, tc := range []struct {
		name    string
		seq     func() *Sequencer
		variant beam.Variant
		kinds   []Kind
	}{
		{
			name: "fast",
			seq: func() *Sequencer {
				s, _ := NewMoveSequencer(config.SequenceFast)
				return s
			},
			variant: beam.Low,
			kinds: []Kind{
				KindToPoint, KindToPoint, KindToPoint, KindToPoint, KindToPoint, KindToPoint,
				KindCircle, KindCircle, KindCircle, KindToPoint, KindCircle, KindToPoint,
				KindLissajous, KindToPoint,
			},
		},
		{
			name: "standard",
			seq: func() *Sequencer {
				s, _ := NewMoveSequencer(config.SequenceStandard)
				return s
			},
			variant: beam.High,
			kinds: []Kind{
				KindToPoint, KindToPoint, KindToPoint, KindToPoint, KindToPoint, KindToPoint, KindToPoint,
				KindCircle, KindCircle, KindCircle, KindToPoint, KindCircle, KindToPoint,
				KindLissajous, KindToPoint,
			},
		},
		{
			name:    "dynamic",
			seq:     NewDynamicSequencer,
			variant: beam.Invalid,
			kinds: []Kind{
				KindToPoint, KindToPoint, KindToPoint, KindToPoint, KindToPoint, KindToPoint,
				KindLissajous, KindToPoint,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := testEnv(tc.variant)
			c := NewComposer(testFs, warning.NewField(nil))
			c.Reset(env.HomeX, env.HomeY)
			s := tc.seq()

			ticks, kinds := runCycle(t, s, c, env)
			test.That(t, kinds, test.ShouldResemble, tc.kinds)
			test.That(t, s.Index(), test.ShouldEqual, 0)

			// Every cycle ends back home.
			x, y := c.State()
			test.That(t, x.Pos, test.ShouldAlmostEqual, env.HomeX, 1e-9)
			test.That(t, y.Pos, test.ShouldAlmostEqual, env.HomeY, 1e-9)

			// Done is reported once, the next call starts the next cycle.
			test.That(t, s.Run(c, env), test.ShouldBeFalse)
			test.That(t, c.Kind(), test.ShouldEqual, KindToPoint)

			c.Reset(env.HomeX, env.HomeY)
			s.Reset()
			again, _ := runCycle(t, s, c, env)
			test.That(t, again, test.ShouldEqual, ticks)
		})
	}
}
