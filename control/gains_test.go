package control

import (
	"math"
	"math/cmplx"
	"testing"

	"go.viam.com/test"
)

const (
	testTs         = 1e-4
	testGravity    = 9.81
	testIntLimitRd = 2.5 * math.Pi / 180
)

func shippedInputs(naturalFreq float64) GainInputs {
	return GainInputs{
		Damping:       0.7,
		StateFreqHz:   2,
		IntFreqHz:     0.2,
		NaturalFreqSq: naturalFreq * naturalFreq,
	}
}

func TestDeriveGainsClosedForm(t *testing.T) {
	g := DeriveGains(shippedInputs(9), testTs, testGravity, testIntLimitRd)

	w0 := 4 * math.Pi
	wi := 0.4 * math.Pi
	a3 := 4 * 0.7 * w0
	a2 := 2*w0*w0 + 4*0.49*w0*w0 + 81
	test.That(t, g.Kt, test.ShouldAlmostEqual, -1./81)
	test.That(t, g.K[4], test.ShouldAlmostEqual, -(a3+wi)/81, 1e-12)
	test.That(t, g.K[4], test.ShouldAlmostEqual, -0.449907, 1e-6)
	test.That(t, g.K[3], test.ShouldAlmostEqual, -(a2+a3*wi)/81, 1e-12)
	test.That(t, g.K[0], test.ShouldAlmostEqual, -math.Pow(w0, 4)*wi*testTs/81, 1e-12)
	test.That(t, g.IntegratorLimit, test.ShouldAlmostEqual, testIntLimitRd*testGravity*(a2+a3*wi)/81, 1e-12)

	// All gains share the sign of Kt.
	for _, k := range g.K {
		test.That(t, k, test.ShouldBeLessThan, 0)
	}
}

func TestGainsPoles(t *testing.T) {
	for _, wn := range []float64{9, 5, 15} {
		in := shippedInputs(wn)
		g := DeriveGains(in, testTs, testGravity, testIntLimitRd)
		test.That(t, g.Stable(testTs), test.ShouldBeTrue)

		poles, err := g.Poles(testTs)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, poles, test.ShouldHaveLength, 5)

		w0 := in.StateFreqHz * 2 * math.Pi
		wi := in.IntFreqHz * 2 * math.Pi
		pair := complex(-in.Damping*w0, w0*math.Sqrt(1-in.Damping*in.Damping))
		var atIntegrator, atPair int
		for _, p := range poles {
			switch {
			case cmplx.Abs(p-complex(-wi, 0)) < 1e-3:
				atIntegrator++
			case cmplx.Abs(p-pair) < 1e-2, cmplx.Abs(p-cmplx.Conj(pair)) < 1e-2:
				atPair++
			}
		}
		test.That(t, atIntegrator, test.ShouldEqual, 1)
		test.That(t, atPair, test.ShouldEqual, 4)
	}
}

func TestGainsUnstable(t *testing.T) {
	in := shippedInputs(9)
	in.Damping = -0.3
	g := DeriveGains(in, testTs, testGravity, testIntLimitRd)
	test.That(t, g.Stable(testTs), test.ShouldBeFalse)

	in = shippedInputs(9)
	in.NaturalFreqSq = 0
	g = DeriveGains(in, testTs, testGravity, testIntLimitRd)
	_, err := g.Poles(testTs)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, g.Stable(testTs), test.ShouldBeFalse)
}
