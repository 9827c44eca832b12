package control

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GainInputs are the quantities the state-feedback gains are placed from.
type GainInputs struct {
	Damping     float64
	StateFreqHz float64
	IntFreqHz   float64
	// NaturalFreqSq is the squared natural frequency the gains are placed for.
	NaturalFreqSq float64
}

// Gains is the state-feedback vector in controller normal form. K[0] is the per-tick integrator
// gain, K[1..4] act on position, velocity, acceleration and jerk errors.
type Gains struct {
	K               [5]float64
	IntegratorLimit float64
	// Kt maps the normal form output to platform acceleration, -1/ωn².
	Kt float64
}

// DeriveGains places the closed-loop poles at a double pair with natural frequency
// 2π·StateFreqHz and the given damping, plus an integrator pole at 2π·IntFreqHz. The plant
// term ωn² is added to the s² coefficient so that it cancels in the closed loop. The integrator
// limit is the acceleration equivalent of intLimitRad of tilt.
func DeriveGains(in GainInputs, samplingTime, gravity, intLimitRad float64) Gains {
	wi := in.IntFreqHz * 2 * math.Pi
	w0 := in.StateFreqHz * 2 * math.Pi
	w02 := w0 * w0
	w03 := w02 * w0
	d := in.Damping

	a0 := w03 * w0
	a1 := 4 * d * w03
	a2 := 2*w02 + 4*d*d*w02 + in.NaturalFreqSq
	a3 := 4 * d * w0

	kt := -1 / in.NaturalFreqSq
	var g Gains
	g.Kt = kt
	g.K[0] = kt * (a0 * wi) * samplingTime
	g.K[1] = kt * (a0 + a1*wi)
	g.K[2] = kt * (a1 + a2*wi)
	g.K[3] = kt * (a2 + a3*wi)
	g.K[4] = kt * (a3 + wi)
	g.IntegratorLimit = math.Abs(intLimitRad * gravity * g.K[3])
	return g
}

// Characteristic returns the monic closed-loop polynomial of the gains acting on the pendulum
// plant c'''' = ωn²·(c'' - u), highest power first. For gains from DeriveGains it factors as
// (s² + 2Dω0·s + ω0²)²·(s + ωi).
func (g Gains) Characteristic(samplingTime float64) []float64 {
	return []float64{
		1,
		g.K[4] / g.Kt,
		(g.K[3] + 1) / g.Kt,
		g.K[2] / g.Kt,
		g.K[1] / g.Kt,
		g.K[0] / (g.Kt * samplingTime),
	}
}

// Poles returns the roots of the characteristic polynomial, computed as the eigenvalues of its
// companion matrix.
func (g Gains) Poles(samplingTime float64) ([]complex128, error) {
	coeffs := g.Characteristic(samplingTime)
	for _, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, errors.New("gains are not finite")
		}
	}
	order := len(coeffs) - 1
	companion := mat.NewDense(order, order, nil)
	for j := 0; j < order; j++ {
		companion.Set(0, j, -coeffs[j+1])
	}
	for i := 1; i < order; i++ {
		companion.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return nil, errors.New("eigen decomposition of the companion matrix did not converge")
	}
	return eig.Values(nil), nil
}

// Stable reports whether every pole lies in the open left half plane.
func (g Gains) Stable(samplingTime float64) bool {
	poles, err := g.Poles(samplingTime)
	if err != nil {
		return false
	}
	for _, p := range poles {
		if real(p) >= 0 || cmplx.IsNaN(p) {
			return false
		}
	}
	return true
}
