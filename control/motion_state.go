// Package control contains the per-tick control primitives of the balancer: the jerk-limited
// trajectory profile, filters, the pole-placement gains and the stabilizing state controller, plus
// a host-side loop that drives anything Tickable at a fixed rate.
package control

// MotionState describes one degree of freedom at the current tick.
type MotionState struct {
	Pos float64
	Vel float64
	Acc float64
	Jrk float64
}

// Scale returns the state multiplied by k in every derivative.
func (ms MotionState) Scale(k float64) MotionState {
	return MotionState{Pos: ms.Pos * k, Vel: ms.Vel * k, Acc: ms.Acc * k, Jrk: ms.Jrk * k}
}

// Tilt is the inclination of the beam about one platform axis in radians, and its rate.
type Tilt struct {
	Pos float64
	Vel float64
}
