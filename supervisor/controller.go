package supervisor

import (
	"go.viam.com/beambalancer/telemetry"
)

// resetController takes the measured pose as home and puts the stabilizer at rest there with the
// plant of the configured beam.
func (s *Supervisor) resetController() {
	p0, p1 := s.handler.EncoderPositions()
	s.robot.SetHomePosition(p0, p1)
	home := s.robot.Home()
	s.stabilizer.SetPlant(s.sensor.L0(), s.sensor.Gains())
	s.stabilizer.Reset(home.X, home.Y)
}

func (s *Supervisor) resetComposer() {
	home := s.robot.Home()
	s.composer.Reset(home.X, home.Y)
}

// calibOffset applies the calibration baseline and restarts the integrators.
func (s *Supervisor) calibOffset() {
	s.sensor.CalibOffset()
	s.stabilizer.ResetIntegrator()
}

// stepController advances the reference, closes the balance loop around it and streams the
// resulting joint targets.
func (s *Supervisor) stepController() {
	s.composer.Step(s.run)
	xRef, yRef := s.composer.State()
	xTilt, yTilt := s.sensor.Tilt()
	s.stabilizer.Step(xTilt, yTilt, xRef, yRef)
	x, y := s.stabilizer.Output()
	targets := s.robot.BackwardKinematics(x, y)
	s.handler.Stream(targets.Phi0, targets.Phi1)
}

// stepDynamic streams the composer reference directly.
func (s *Supervisor) stepDynamic() {
	s.composer.Step(s.run)
	x, y := s.composer.State()
	targets := s.robot.BackwardKinematics(x, y)
	s.handler.Stream(targets.Phi0, targets.Phi1)
}

func (s *Supervisor) publish(cmd Command) {
	pose := s.robot.Pose()
	xRef, yRef := s.composer.State()
	xTilt, yTilt := s.sensor.Tilt()
	s.sink.Publish(telemetry.Frame{
		Tick:     s.ticks,
		State:    s.state.String(),
		Command:  cmd.String(),
		Variant:  s.sensor.Variant().String(),
		Warnings: uint32(s.warnings.Flags()),
		TableX:   pose.X,
		TableY:   pose.Y,
		PathX:    xRef.Pos,
		PathY:    yRef.Pos,
		TiltX:    xTilt.Pos,
		TiltY:    yTilt.Pos,
		TiltVelX: xTilt.Vel,
		TiltVelY: yTilt.Vel,
		Xi:       pose.Xi,
	})
}
