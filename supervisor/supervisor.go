// Package supervisor runs the top level state machine of the balancer: power-up with fault
// recovery, homing, beam detection, calibration, the scripted move sequences and the free-running
// dynamic moves, all advanced by one call per tick.
package supervisor

import (
	"github.com/pkg/errors"

	"go.viam.com/beambalancer/axis"
	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
	"go.viam.com/beambalancer/kinematics"
	"go.viam.com/beambalancer/logging"
	"go.viam.com/beambalancer/motionplan"
	"go.viam.com/beambalancer/telemetry"
	"go.viam.com/beambalancer/warning"
)

// Deps are the collaborators of a Supervisor.
type Deps struct {
	Config    *config.Config
	Device    axis.Device
	Params    config.Parameters
	Telemetry telemetry.Sink
	Logger    logging.Logger
}

// Supervisor owns every per-tick component and threads them through the state machine. It is not
// safe for concurrent use; Tick is called from a single goroutine.
type Supervisor struct {
	cfg      *config.Config
	logger   logging.Logger
	dev      axis.Device
	params   config.Parameters
	sink     telemetry.Sink
	warnings *warning.Field

	handler    *axis.Handler
	robot      *kinematics.Robot
	sensor     *beam.Sensor
	stabilizer *control.Stabilizer
	composer   *motionplan.Composer
	moveSeq    *motionplan.Sequencer
	dynamicSeq *motionplan.Sequencer

	state             State
	run               bool
	controllerEnabled bool
	dynamicEnabled    bool
	resetActive       bool
	countdown         int

	tempAbove        [2]bool
	dynamicRequested bool

	ticks    uint64
	level    float64
	channels beam.Channels
}

// New returns a supervisor. It powers up in Startup when the configuration asks for auto start,
// else in Idle.
func New(deps Deps) (*Supervisor, error) {
	if deps.Config == nil {
		return nil, errors.New("supervisor needs a config")
	}
	if deps.Device == nil {
		return nil, errors.New("supervisor needs a device")
	}
	if deps.Params == nil {
		return nil, errors.New("supervisor needs a parameter store")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewBlankLogger("supervisor")
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.Discard
	}
	cfg := deps.Config
	moveSeq, err := motionplan.NewMoveSequencer(cfg.Path.Sequence)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	warnings := warning.NewField(logger.Sublogger("warning"))
	s := &Supervisor{
		cfg:        cfg,
		logger:     logger,
		dev:        deps.Device,
		params:     deps.Params,
		sink:       deps.Telemetry,
		warnings:   warnings,
		handler:    axis.NewHandler(deps.Device, cfg.Joints, warnings, logger.Sublogger("axis")),
		robot:      kinematics.NewRobot(cfg),
		sensor:     beam.NewSensor(cfg, deps.Params, warnings, logger.Sublogger("beam")),
		stabilizer: control.NewStabilizer(cfg.SamplingTime(), cfg.Gravity, cfg.Controller.MaxAccOut),
		composer:   motionplan.NewComposer(cfg.SamplingFrequency, warnings),
		moveSeq:    moveSeq,
		dynamicSeq: motionplan.NewDynamicSequencer(),
		state:      StateIdle,
	}
	if cfg.Supervisor.AutoStart {
		s.state = StateStartup
	}
	p0, p1 := s.handler.EncoderPositions()
	s.robot.ForwardKinematics(p0, p1)
	return s, nil
}

// Tick runs one sampling period for the operator command cmd and returns the command to leave in
// the command register. A command stays in the register until Idle has handled it.
func (s *Supervisor) Tick(cmd Command) Command {
	s.ticks++
	s.run = s.checkSystem(s.run) && cmd != CommandStop

	s.level = s.dev.BeamLevel()
	s.channels = s.dev.Inclination()
	s.sensor.CalcInclination(s.channels, s.robot.Pose().Xi)
	if s.controllerEnabled {
		s.stepController()
	}
	if s.dynamicEnabled {
		s.stepDynamic()
	}

	cmd = s.step(cmd)
	s.publish(cmd)
	return cmd
}

// checkSystem drops external jog requests unless the machine idles uncoupled and clears run on
// a drive or axis error.
func (s *Supervisor) checkSystem(run bool) bool {
	if s.handler.IsCouplingActive() || s.state != StateIdle {
		s.handler.ClearExternalMoveCommands()
	}
	errPending := s.handler.IsDeviceOrAxisErrorPending()
	return run && !errPending
}

func (s *Supervisor) step(cmd Command) Command {
	switch s.state {
	case StateIdle:
		return s.idle(cmd)

	case StateStartup:
		s.startup(cmd)

	case StateEnabling:
		if s.handler.EnableAxes(s.run) {
			s.enter(s.nextState(StateMoveHomePos, cmd))
		}

	case StateMoveHomePos:
		if s.handler.MoveHome(s.run) {
			s.resetController()
			s.enter(s.nextState(StateBeamDetection, cmd))
		}

	case StateBeamDetection:
		s.beamDetection(cmd)

	case StateRegulatingDelay:
		switch {
		case !s.run:
			s.enter(StateUncouple)
		case s.countdown <= 0:
			s.controllerEnabled = true
			s.countdown = s.cfg.Ticks(s.cfg.Supervisor.CalibrationDelay)
			s.enter(StateCalibration)
		default:
			s.countdown--
		}

	case StateCalibration:
		s.calibration()

	case StateMoveSequence:
		s.moveSequence()

	case StateMovePhiZero:
		if s.handler.IsPlannerDone(axis.Phi0) && s.handler.IsPlannerDone(axis.Phi1) {
			s.enter(StateIdle)
		}

	case StateUncouple:
		if s.handler.UncoupleAxes() {
			s.sensor.Invalidate()
			if s.run {
				s.handler.Init()
				s.enter(StateMoveHomePos)
			} else {
				s.enter(s.nextState(StateIdle, cmd))
			}
		}

	case StateMoveDynamic:
		s.moveDynamic()

	default:
		s.warnings.Set(warning.InternalUndefinedCase)
		s.controllerEnabled = false
		s.dynamicEnabled = false
		s.enter(StateUncouple)
	}
	return cmd
}

func (s *Supervisor) idle(cmd Command) Command {
	switch cmd {
	case CommandStart:
		s.start()
	case CommandMoveDynamic:
		s.dynamicRequested = true
		s.start()
	case CommandMoveToPhiZero:
		s.run = true
		s.handler.Move(axis.Phi0, 0, s.cfg.Joints.TaxiSpeed)
		s.handler.Move(axis.Phi1, 0, s.cfg.Joints.TaxiSpeed)
		s.enter(StateMovePhiZero)
	case CommandResetWarning:
		s.warnings.Reset()
		s.run = false
	case CommandDisable:
		s.handler.DisableAxes()
		s.run = false
	case CommandResetError:
		if s.handler.IsDeviceOrAxisErrorPending() {
			s.handler.ResetFaults()
		}
		s.run = false
	case CommandNone, CommandStop:
		s.run = false
	default:
		s.warnings.Set(warning.InternalUndefinedCase)
		s.run = false
	}

	if s.checkTempSwitch() && s.state == StateIdle {
		s.start()
	}
	return CommandNone
}

func (s *Supervisor) start() {
	s.warnings.Reset()
	s.countdown = s.cfg.Ticks(s.cfg.Supervisor.StartupResetDelay)
	s.enter(StateStartup)
}

// startup waits for the DC bus before a single fault reset attempt. A fault that survives the
// reset latches ResetFailed until it clears.
func (s *Supervisor) startup(cmd Command) {
	if s.handler.IsDeviceOrAxisErrorPending() {
		switch {
		case cmd == CommandStop:
			s.resetActive = false
			s.dynamicRequested = false
			s.enter(StateIdle)
		case s.countdown > 0:
			if s.dev.BusVoltage() > s.dev.BusVoltageLowerLimit() {
				s.countdown--
			}
		case !s.resetActive:
			s.logger.Infow("resetting drive faults")
			s.handler.ResetFaults()
			s.resetActive = true
		default:
			s.warnings.Set(warning.ResetFailed)
		}
		return
	}

	s.resetActive = false
	s.run = true
	s.controllerEnabled = false
	s.handler.Init()
	s.enter(StateEnabling)
}

func (s *Supervisor) beamDetection(cmd Command) {
	tempEdge := s.checkTempSwitch()
	switch {
	case !s.run:
		s.dynamicRequested = false
		s.enter(s.nextState(StateBeamDetection, cmd))
	case s.sensor.IsBeamReady(s.level):
		if !s.handler.CoupleAxes() {
			return
		}
		// a mounted beam takes precedence over a pending dry run
		s.dynamicRequested = false
		s.resetController()
		s.resetComposer()
		s.countdown = s.cfg.Ticks(s.cfg.Supervisor.RegulatingDelay)
		s.enter(StateRegulatingDelay)
	case tempEdge || s.dynamicRequested:
		if !s.handler.CoupleAxes() {
			return
		}
		s.dynamicRequested = false
		s.resetController()
		s.resetComposer()
		s.dynamicSeq.Reset()
		s.dynamicEnabled = true
		s.enter(StateMoveDynamic)
	}
}

func (s *Supervisor) calibration() {
	if s.sensor.CalcCalibValues(s.channels) {
		s.countdown = s.cfg.Ticks(s.cfg.Supervisor.CalibrationDelay)
	}
	switch {
	case s.faulted():
		s.controllerEnabled = false
		s.enter(StateUncouple)
	case !s.run:
		s.controllerEnabled = false
		s.enter(StateUncouple)
	case s.countdown <= 0:
		s.calibOffset()
		s.resetComposer()
		s.moveSeq.Reset()
		s.enter(StateMoveSequence)
	default:
		s.countdown--
	}
}

// moveSequence runs the choreography. When run drops the running move decelerates and the axes
// are released once the reference is at rest.
func (s *Supervisor) moveSequence() {
	switch {
	case s.faulted():
		s.controllerEnabled = false
		s.enter(StateUncouple)
	case !s.run:
		if s.composer.Idle() || s.composer.Kind() == motionplan.KindStay {
			s.controllerEnabled = false
			s.enter(StateUncouple)
		}
	case s.moveSeq.Run(s.composer, s.env()):
		s.countdown = s.cfg.Ticks(s.cfg.Supervisor.CalibrationDelay)
		s.enter(StateCalibration)
	}
}

func (s *Supervisor) moveDynamic() {
	switch {
	case s.robot.IsOutOfRange():
		s.dynamicEnabled = false
		s.enter(StateUncouple)
	case !s.run:
		if s.composer.Idle() || s.composer.Kind() == motionplan.KindStay {
			s.dynamicEnabled = false
			s.enter(StateUncouple)
		}
	case s.dynamicSeq.Run(s.composer, s.env()):
		s.dynamicEnabled = false
		s.enter(StateUncouple)
	}
}

// faulted reports a lost beam, a joint limit violation or an unreachable reference.
func (s *Supervisor) faulted() bool {
	if s.sensor.IsBeamLost(s.level) {
		if s.sensor.Identified() == beam.Invalid {
			s.warnings.Set(warning.InvalidBarType)
		}
		s.logger.Infow("beam lost", "variant", s.sensor.Variant(), "identified", s.sensor.Identified())
		return true
	}
	return s.handler.IsPositionOutOfLimit() || s.robot.IsOutOfRange()
}

// nextState is the state to continue in: Idle on an explicit stop, Startup when run has dropped,
// else target.
func (s *Supervisor) nextState(target State, cmd Command) State {
	switch {
	case cmd == CommandStop:
		return StateIdle
	case !s.run:
		s.countdown = s.cfg.Ticks(s.cfg.Supervisor.StartupResetDelay)
		return StateStartup
	}
	return target
}

// checkTempSwitch samples the motor temperature switches. A falling edge on axis 0 requests the
// very short beam; the return value reports a falling edge on axis 1.
func (s *Supervisor) checkTempSwitch() bool {
	var falling [2]bool
	for _, id := range axis.IDs {
		above := s.handler.MotorTemperature(id) > s.cfg.Supervisor.MotTempSwitchThreshold
		falling[id] = s.tempAbove[id] && !above
		s.tempAbove[id] = above
	}
	if falling[axis.Phi0] {
		s.logger.Info("very short beam requested")
		s.sensor.RequestVeryShortBeam()
	}
	return falling[axis.Phi1]
}

func (s *Supervisor) enter(next State) {
	if next == s.state {
		return
	}
	s.logger.Infow("state changed", "from", s.state, "to", next, "tick", s.ticks)
	s.state = next
}

func (s *Supervisor) env() motionplan.Env {
	home := s.robot.Home()
	return motionplan.Env{
		HomeX:    home.X,
		HomeY:    home.Y,
		Variant:  s.sensor.Variant(),
		Tunables: s.params.Tunables(),
		Path:     s.cfg.Path,
		Variants: s.cfg.Beam.Variants,
	}
}

// State returns the current state.
func (s *Supervisor) State() State {
	return s.state
}

// Running reports the run flag of the last tick.
func (s *Supervisor) Running() bool {
	return s.run
}

// ControllerEnabled reports whether the stabilizer drives the axes.
func (s *Supervisor) ControllerEnabled() bool {
	return s.controllerEnabled
}

// DynamicEnabled reports whether the composer drives the axes without feedback.
func (s *Supervisor) DynamicEnabled() bool {
	return s.dynamicEnabled
}

// Warnings returns the latched warnings.
func (s *Supervisor) Warnings() warning.Flags {
	return s.warnings.Flags()
}

// Ticks returns the number of ticks run.
func (s *Supervisor) Ticks() uint64 {
	return s.ticks
}

// Handler returns the axis handler.
func (s *Supervisor) Handler() *axis.Handler {
	return s.handler
}

// Sensor returns the inclination sensor.
func (s *Supervisor) Sensor() *beam.Sensor {
	return s.sensor
}

// Robot returns the kinematic state.
func (s *Supervisor) Robot() *kinematics.Robot {
	return s.robot
}

// Composer returns the path composer.
func (s *Supervisor) Composer() *motionplan.Composer {
	return s.composer
}
