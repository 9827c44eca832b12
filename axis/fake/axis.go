// Package fake implements a simulated drive with two axes and an inverted pendulum mounted on the
// platform, so the supervisor can run without hardware.
package fake

import (
	"math"

	"go.viam.com/beambalancer/axis"
	"go.viam.com/beambalancer/control"
)

var _ axis.Axis = &Axis{}

// Axis is a simulated joint axis with an ideal position loop. Absolute moves run at constant
// speed, stops decelerate at the acceleration maximum and coupled mode follows the stream.
type Axis struct {
	id          axis.ID
	ts          float64
	enableTicks int

	state       axis.State
	pending     axis.Event
	enableCount int
	fault       bool

	cmd       axis.Command
	pos       float64
	vel       float64
	target    float64
	targetVel float64
	streamed  control.MotionState

	temperature float64
	velMax      float64
	accMax      float64
}

func newAxis(id axis.ID, ts float64, opts Options, pos float64) *Axis {
	return &Axis{
		id:          id,
		ts:          ts,
		enableTicks: opts.EnableTicks,
		pos:         pos,
		temperature: opts.MotorTemperature,
		velMax:      opts.VelocityMaximum,
		accMax:      opts.AccelerationMaximum,
	}
}

// State returns the power state.
func (a *Axis) State() axis.State {
	return a.state
}

// HasError reports an injected fault.
func (a *Axis) HasError() bool {
	return a.fault
}

// EncoderPosition returns the joint angle. The position loop tracks the planner exactly.
func (a *Axis) EncoderPosition() float64 {
	return a.pos
}

// PlannerPosition returns the joint angle of the path planner.
func (a *Axis) PlannerPosition() float64 {
	return a.pos
}

// PlannerDone reports whether no motion command is active.
func (a *Axis) PlannerDone() bool {
	return a.cmd == axis.CommandNone
}

// MotorTemperature returns the simulated motor temperature.
func (a *Axis) MotorTemperature() float64 {
	return a.temperature
}

// SetMotorTemperature sets the temperature reading, which doubles as the operator switch.
func (a *Axis) SetMotorTemperature(t float64) {
	a.temperature = t
}

// Move starts an absolute move. It is ignored unless the axis is enabled.
func (a *Axis) Move(target, vel float64) {
	if a.state != axis.StateEnabled {
		return
	}
	a.target = target
	a.targetVel = math.Min(math.Abs(vel), a.velMax)
	a.cmd = axis.CommandMoveAbsolute
}

// Command switches the planner mode.
func (a *Axis) Command(cmd axis.Command) {
	switch cmd {
	case axis.CommandStop:
		if a.cmd != axis.CommandNone {
			a.cmd = axis.CommandStop
		}
	case axis.CommandMoveDirectCoupled:
		if a.state == axis.StateEnabled {
			a.cmd = cmd
		}
	case axis.CommandNone:
		a.cmd = cmd
		a.vel = 0
	case axis.CommandMoveAbsolute:
		a.Move(a.target, a.targetVel)
	}
}

// ActiveCommand returns the planner mode.
func (a *Axis) ActiveCommand() axis.Command {
	return a.cmd
}

// Stream sets the coupled reference.
func (a *Axis) Stream(target control.MotionState) {
	a.streamed = target
}

// Streamed returns the last coupled reference.
func (a *Axis) Streamed() control.MotionState {
	return a.streamed
}

// Event raises a one-shot request handled on the next step.
func (a *Axis) Event(ev axis.Event) {
	a.pending = ev
}

// PendingEvent returns the request not yet handled.
func (a *Axis) PendingEvent() axis.Event {
	return a.pending
}

// VelocityMaximum returns the speed limit in rad/s.
func (a *Axis) VelocityMaximum() float64 {
	return a.velMax
}

// AccelerationMaximum returns the acceleration limit in rad/s².
func (a *Axis) AccelerationMaximum() float64 {
	return a.accMax
}

// SetFault injects or clears an axis fault. A fault drops the power stage.
func (a *Axis) SetFault(fault bool) {
	a.fault = fault
	if fault {
		a.state = axis.StateFault
		a.cmd = axis.CommandNone
		a.vel = 0
	}
}

func (a *Axis) step() {
	a.handleEvent()

	switch a.state {
	case axis.StateEnabling:
		a.enableCount--
		if a.enableCount <= 0 {
			a.state = axis.StateEnabled
		}
		return
	case axis.StateEnabled:
	default:
		return
	}

	switch a.cmd {
	case axis.CommandMoveAbsolute:
		delta := a.target - a.pos
		stride := a.targetVel * a.ts
		if math.Abs(delta) <= stride {
			a.pos = a.target
			a.vel = 0
			a.cmd = axis.CommandNone
		} else {
			a.vel = math.Copysign(a.targetVel, delta)
			a.pos += a.vel * a.ts
		}
	case axis.CommandMoveDirectCoupled:
		a.pos = a.streamed.Pos
		a.vel = a.streamed.Vel
	case axis.CommandStop:
		dv := a.accMax * a.ts
		if math.Abs(a.vel) <= dv {
			a.vel = 0
			a.cmd = axis.CommandNone
		} else {
			a.vel -= math.Copysign(dv, a.vel)
			a.pos += a.vel * a.ts
		}
	}
}

func (a *Axis) handleEvent() {
	switch a.pending {
	case axis.EventEnable:
		if a.state == axis.StateDisabled {
			a.state = axis.StateEnabling
			a.enableCount = a.enableTicks
		}
	case axis.EventDisable:
		if a.state != axis.StateFault {
			a.state = axis.StateDisabled
		}
		a.cmd = axis.CommandNone
		a.vel = 0
	case axis.EventResetError:
		a.fault = false
		if a.state == axis.StateFault {
			a.state = axis.StateDisabled
		}
	case axis.EventMoveCommand, axis.EventNone:
		// jog requests stay pending until someone clears them
		return
	}
	a.pending = axis.EventNone
}
