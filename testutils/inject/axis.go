// Package inject provides func-field fakes of the drive interfaces. Every method falls back to
// the embedded implementation when its func is nil.
package inject

import (
	"go.viam.com/beambalancer/axis"
	"go.viam.com/beambalancer/control"
)

// Axis is an injectable axis.Axis.
type Axis struct {
	axis.Axis
	StateFunc               func() axis.State
	HasErrorFunc            func() bool
	EncoderPositionFunc     func() float64
	PlannerPositionFunc     func() float64
	PlannerDoneFunc         func() bool
	MotorTemperatureFunc    func() float64
	MoveFunc                func(target, vel float64)
	CommandFunc             func(cmd axis.Command)
	ActiveCommandFunc       func() axis.Command
	StreamFunc              func(target control.MotionState)
	StreamedFunc            func() control.MotionState
	EventFunc               func(ev axis.Event)
	PendingEventFunc        func() axis.Event
	VelocityMaximumFunc     func() float64
	AccelerationMaximumFunc func() float64
}

// State calls the injected State or the real version.
func (a *Axis) State() axis.State {
	if a.StateFunc == nil {
		return a.Axis.State()
	}
	return a.StateFunc()
}

// HasError calls the injected HasError or the real version.
func (a *Axis) HasError() bool {
	if a.HasErrorFunc == nil {
		return a.Axis.HasError()
	}
	return a.HasErrorFunc()
}

// EncoderPosition calls the injected EncoderPosition or the real version.
func (a *Axis) EncoderPosition() float64 {
	if a.EncoderPositionFunc == nil {
		return a.Axis.EncoderPosition()
	}
	return a.EncoderPositionFunc()
}

// PlannerPosition calls the injected PlannerPosition or the real version.
func (a *Axis) PlannerPosition() float64 {
	if a.PlannerPositionFunc == nil {
		return a.Axis.PlannerPosition()
	}
	return a.PlannerPositionFunc()
}

// PlannerDone calls the injected PlannerDone or the real version.
func (a *Axis) PlannerDone() bool {
	if a.PlannerDoneFunc == nil {
		return a.Axis.PlannerDone()
	}
	return a.PlannerDoneFunc()
}

// MotorTemperature calls the injected MotorTemperature or the real version.
func (a *Axis) MotorTemperature() float64 {
	if a.MotorTemperatureFunc == nil {
		return a.Axis.MotorTemperature()
	}
	return a.MotorTemperatureFunc()
}

// Move calls the injected Move or the real version.
func (a *Axis) Move(target, vel float64) {
	if a.MoveFunc == nil {
		a.Axis.Move(target, vel)
		return
	}
	a.MoveFunc(target, vel)
}

// Command calls the injected Command or the real version.
func (a *Axis) Command(cmd axis.Command) {
	if a.CommandFunc == nil {
		a.Axis.Command(cmd)
		return
	}
	a.CommandFunc(cmd)
}

// ActiveCommand calls the injected ActiveCommand or the real version.
func (a *Axis) ActiveCommand() axis.Command {
	if a.ActiveCommandFunc == nil {
		return a.Axis.ActiveCommand()
	}
	return a.ActiveCommandFunc()
}

// Stream calls the injected Stream or the real version.
func (a *Axis) Stream(target control.MotionState) {
	if a.StreamFunc == nil {
		a.Axis.Stream(target)
		return
	}
	a.StreamFunc(target)
}

// Streamed calls the injected Streamed or the real version.
func (a *Axis) Streamed() control.MotionState {
	if a.StreamedFunc == nil {
		return a.Axis.Streamed()
	}
	return a.StreamedFunc()
}

// Event calls the injected Event or the real version.
func (a *Axis) Event(ev axis.Event) {
	if a.EventFunc == nil {
		a.Axis.Event(ev)
		return
	}
	a.EventFunc(ev)
}

// PendingEvent calls the injected PendingEvent or the real version.
func (a *Axis) PendingEvent() axis.Event {
	if a.PendingEventFunc == nil {
		return a.Axis.PendingEvent()
	}
	return a.PendingEventFunc()
}

// VelocityMaximum calls the injected VelocityMaximum or the real version.
func (a *Axis) VelocityMaximum() float64 {
	if a.VelocityMaximumFunc == nil {
		return a.Axis.VelocityMaximum()
	}
	return a.VelocityMaximumFunc()
}

// AccelerationMaximum calls the injected AccelerationMaximum or the real version.
func (a *Axis) AccelerationMaximum() float64 {
	if a.AccelerationMaximumFunc == nil {
		return a.Axis.AccelerationMaximum()
	}
	return a.AccelerationMaximumFunc()
}
