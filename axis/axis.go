// Package axis drives the two joint axes of the linkage through the drive exchange layer: power
// up, homing, coupled streaming and uncoupling.
package axis

import (
	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/control"
)

// ID names a joint axis.
type ID int

// The two joints.
const (
	Phi0 ID = iota
	Phi1
)

func (id ID) String() string {
	switch id {
	case Phi0:
		return "phi0"
	case Phi1:
		return "phi1"
	}
	return "unknown"
}

// IDs lists both joints in order.
var IDs = [2]ID{Phi0, Phi1}

// State is the power state an axis reports.
type State int

// Axis power states.
const (
	StateDisabled State = iota
	StateEnabling
	StateEnabled
	StateFault
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateEnabling:
		return "enabling"
	case StateEnabled:
		return "enabled"
	case StateFault:
		return "fault"
	}
	return "unknown"
}

// Command is the motion command written to an axis path planner.
type Command int

// Motion commands.
const (
	CommandNone Command = iota
	CommandMoveAbsolute
	CommandMoveDirectCoupled
	CommandStop
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandMoveAbsolute:
		return "move_absolute"
	case CommandMoveDirectCoupled:
		return "move_direct_coupled"
	case CommandStop:
		return "stop"
	}
	return "unknown"
}

// Event is a one-shot request to an axis. EventMoveCommand is raised by external tools that
// want to jog an axis.
type Event int

// Axis events.
const (
	EventNone Event = iota
	EventEnable
	EventDisable
	EventResetError
	EventMoveCommand
)

// Axis is one joint axis of the drive.
type Axis interface {
	State() State
	HasError() bool
	EncoderPosition() float64
	PlannerPosition() float64
	PlannerDone() bool
	MotorTemperature() float64

	// Move starts an absolute move to target limited to vel.
	Move(target, vel float64)
	// Command writes a motion command without a new target.
	Command(cmd Command)
	ActiveCommand() Command
	// Stream writes the reference followed while coupled.
	Stream(target control.MotionState)
	Streamed() control.MotionState

	Event(ev Event)
	PendingEvent() Event

	VelocityMaximum() float64
	AccelerationMaximum() float64
}

// Device is the drive holding both axes, its power stage and the analog inputs of the beam.
type Device interface {
	HasError() bool
	IsOperational() bool
	BusVoltage() float64
	BusVoltageLowerLimit() float64

	SwitchOn()
	ResetFault()
	ClearExternalError()

	// BeamLevel is the identification voltage of the mounted beam.
	BeamLevel() float64
	// Inclination returns the raw hall readings of the tilt sensor.
	Inclination() beam.Channels

	Axis(id ID) Axis
}
