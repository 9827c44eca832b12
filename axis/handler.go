package axis

import (
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
	"go.viam.com/beambalancer/kinematics"
	"go.viam.com/beambalancer/logging"
	"go.viam.com/beambalancer/warning"
)

// EnableState is the step of the power-up sequence.
type EnableState int

// Power-up steps.
const (
	EnableIdle EnableState = iota
	EnableSwitchOn
	EnablePhi0
	EnablePhi1
	EnableMoveHome
)

// HomeState is the step of the homing move.
type HomeState int

// Homing steps.
const (
	HomeIdle HomeState = iota
	HomeWaitMoveDelta
	HomeWaitDone
)

// UncoupleState is the step of leaving coupled mode.
type UncoupleState int

// Uncoupling steps.
const (
	UncoupleInit UncoupleState = iota
	UncoupleWaitMoveDone
)

// SubStates are the sequencer states of a Handler, exposed for telemetry and tests.
type SubStates struct {
	Enable   EnableState
	Home     HomeState
	Uncouple UncoupleState
}

// Handler sequences the two axes through power-up, homing and coupled streaming. Each call
// advances its sequence by at most one step and never blocks.
type Handler struct {
	dev      Device
	limits   kinematics.Limits
	home     [2]float64
	taxi     float64
	warnings *warning.Field
	logger   logging.Logger

	enable   EnableState
	homing   HomeState
	uncouple UncoupleState
	coupled  bool
}

// NewHandler returns a handler for dev using the configured home pose, taxi speed and joint
// limits.
func NewHandler(dev Device, joints config.JointLimits, warnings *warning.Field, logger logging.Logger) *Handler {
	return &Handler{
		dev:    dev,
		limits: kinematics.NewLimits(joints),
		home: [2]float64{
			config.DegToRad(joints.Phi0HomeDeg),
			config.DegToRad(joints.Phi1HomeDeg),
		},
		taxi:     joints.TaxiSpeed,
		warnings: warnings,
		logger:   logger,
	}
}

// Init rewinds every sequence.
func (h *Handler) Init() {
	h.enable = EnableIdle
	h.homing = HomeIdle
	h.uncouple = UncoupleInit
}

// SubStates returns the current sequence states.
func (h *Handler) SubStates() SubStates {
	return SubStates{Enable: h.enable, Home: h.homing, Uncouple: h.uncouple}
}

// Home returns the home joint angles in radians.
func (h *Handler) Home() (float64, float64) {
	return h.home[Phi0], h.home[Phi1]
}

// EnableAxes switches the drive on and enables both axes one after the other. It reports true
// once both axes are enabled, or immediately when run has dropped so the caller can leave.
func (h *Handler) EnableAxes(run bool) bool {
	if !run {
		h.enable = EnableIdle
		return true
	}

	switch h.enable {
	case EnableIdle:
		h.enable = EnableSwitchOn
	case EnableSwitchOn:
		if h.dev.IsOperational() {
			h.enable = EnablePhi0
		} else {
			h.dev.SwitchOn()
		}
	case EnablePhi0:
		if h.enableAxis(Phi0) {
			h.enable = EnablePhi1
		}
	case EnablePhi1:
		if h.enableAxis(Phi1) {
			h.enable = EnableMoveHome
			h.logger.Debug("axes enabled")
		}
	case EnableMoveHome:
	default:
		h.warnings.Set(warning.InternalUndefinedCase)
		h.enable = EnableIdle
	}
	return h.enable == EnableMoveHome
}

func (h *Handler) enableAxis(id ID) bool {
	ax := h.dev.Axis(id)
	switch ax.State() {
	case StateEnabled:
		return true
	case StateDisabled:
		if ax.PendingEvent() == EventNone {
			ax.Event(EventEnable)
		}
	case StateEnabling:
	default:
		h.warnings.Set(warning.AxesAreNotEnabled)
	}
	return false
}

// MoveHome drives both joints to the home pose. The joint on the opening side first moves to the
// home delta relative to the other joint's measured angle, then both travel home together, so the
// joint delta stays inside its band. Dropping run stops both axes; MoveHome reports true once both
// planners are at rest, at home or wherever the stop left them.
func (h *Handler) MoveHome(run bool) bool {
	if !run && h.homing != HomeWaitDone {
		h.Stop(Phi0)
		h.Stop(Phi1)
		h.homing = HomeWaitDone
	}

	switch h.homing {
	case HomeIdle:
		if !h.axesEnabled() {
			h.warnings.Set(warning.AxesAreNotEnabled)
			return false
		}
		p0, p1 := h.EncoderPositions()
		delta := h.home[Phi1] - h.home[Phi0]
		if p0+p1 > 0 {
			h.Move(Phi1, p0+delta, h.taxi)
		} else {
			h.Move(Phi0, p1-delta, h.taxi)
		}
		h.homing = HomeWaitMoveDelta
	case HomeWaitMoveDelta:
		if h.IsPlannerDone(Phi0) && h.IsPlannerDone(Phi1) {
			h.Move(Phi0, h.home[Phi0], h.taxi)
			h.Move(Phi1, h.home[Phi1], h.taxi)
			h.homing = HomeWaitDone
		}
	case HomeWaitDone:
		if h.IsPlannerDone(Phi0) && h.IsPlannerDone(Phi1) {
			h.homing = HomeIdle
			if run {
				h.logger.Debug("axes at home")
			}
			return true
		}
	default:
		h.warnings.Set(warning.InternalUndefinedCase)
		h.homing = HomeIdle
	}
	return false
}

func (h *Handler) axesEnabled() bool {
	return h.dev.Axis(Phi0).State() == StateEnabled && h.dev.Axis(Phi1).State() == StateEnabled
}

// CoupleAxes switches both axes to direct coupled mode starting from their planner positions.
// It reports false and latches a warning when an axis is not ready.
func (h *Handler) CoupleAxes() bool {
	if !h.axesEnabled() {
		h.warnings.Set(warning.AxesAreNotEnabled)
		return false
	}
	if !h.IsPlannerDone(Phi0) || !h.IsPlannerDone(Phi1) {
		h.warnings.Set(warning.AxisNotReadyForCoupling)
		return false
	}
	for _, id := range IDs {
		ax := h.dev.Axis(id)
		ax.Stream(control.MotionState{Pos: ax.PlannerPosition()})
		ax.Command(CommandMoveDirectCoupled)
	}
	h.coupled = true
	h.logger.Debug("axes coupled")
	return true
}

// UncoupleAxes stops both axes and reports true once both planners have come to rest.
func (h *Handler) UncoupleAxes() bool {
	switch h.uncouple {
	case UncoupleInit:
		h.Stop(Phi0)
		h.Stop(Phi1)
		h.coupled = false
		h.uncouple = UncoupleWaitMoveDone
	case UncoupleWaitMoveDone:
		if h.IsPlannerDone(Phi0) && h.IsPlannerDone(Phi1) {
			h.uncouple = UncoupleInit
			h.logger.Debug("axes uncoupled")
			return true
		}
	default:
		h.warnings.Set(warning.InternalUndefinedCase)
		h.uncouple = UncoupleInit
	}
	return false
}

// IsCouplingActive reports whether the axes follow the streamed reference.
func (h *Handler) IsCouplingActive() bool {
	return h.coupled
}

// Move starts an absolute move of one axis.
func (h *Handler) Move(id ID, target, vel float64) {
	h.dev.Axis(id).Move(target, vel)
}

// Stop decelerates one axis to rest.
func (h *Handler) Stop(id ID) {
	h.dev.Axis(id).Command(CommandStop)
}

// IsPlannerDone reports whether the path planner of one axis is at rest.
func (h *Handler) IsPlannerDone(id ID) bool {
	return h.dev.Axis(id).PlannerDone()
}

// Stream writes the joint references of this tick. Streaming while uncoupled is rejected with
// AxesAreNotCoupled.
func (h *Handler) Stream(phi0, phi1 control.MotionState) {
	if !h.coupled {
		h.warnings.Set(warning.AxesAreNotCoupled)
		return
	}
	h.dev.Axis(Phi0).Stream(phi0)
	h.dev.Axis(Phi1).Stream(phi1)
}

// ClearExternalMoveCommands drops jog requests raised by external tools.
func (h *Handler) ClearExternalMoveCommands() {
	for _, id := range IDs {
		ax := h.dev.Axis(id)
		if ax.PendingEvent() == EventMoveCommand {
			ax.Event(EventNone)
		}
	}
}

// IsDeviceOrAxisErrorPending reports a drive or axis fault and latches DeviceOrAxisError.
func (h *Handler) IsDeviceOrAxisErrorPending() bool {
	pending := h.dev.HasError() || h.dev.Axis(Phi0).HasError() || h.dev.Axis(Phi1).HasError()
	if pending {
		h.warnings.Set(warning.DeviceOrAxisError)
	}
	return pending
}

// ResetFaults clears the external error, resets the drive fault and requests an error reset
// on both axes.
func (h *Handler) ResetFaults() {
	h.dev.ClearExternalError()
	h.dev.ResetFault()
	for _, id := range IDs {
		h.dev.Axis(id).Event(EventResetError)
	}
}

// DisableAxes requests both axes to power down.
func (h *Handler) DisableAxes() {
	h.coupled = false
	for _, id := range IDs {
		h.dev.Axis(id).Event(EventDisable)
	}
}

// IsPositionOutOfLimit checks the planner positions against the joint limits. On a violation
// both axes are stopped and SwLimitViolation is latched.
func (h *Handler) IsPositionOutOfLimit() bool {
	p0 := h.dev.Axis(Phi0).PlannerPosition()
	p1 := h.dev.Axis(Phi1).PlannerPosition()
	if !h.limits.Violated(p0, p1) {
		return false
	}
	h.Stop(Phi0)
	h.Stop(Phi1)
	h.warnings.Set(warning.SwLimitViolation)
	return true
}

// EncoderPositions returns the measured joint angles.
func (h *Handler) EncoderPositions() (float64, float64) {
	return h.dev.Axis(Phi0).EncoderPosition(), h.dev.Axis(Phi1).EncoderPosition()
}

// MotorTemperature returns the temperature reading of one motor.
func (h *Handler) MotorTemperature(id ID) float64 {
	return h.dev.Axis(id).MotorTemperature()
}
