package fake

import (
	"math"

	"go.viam.com/beambalancer/axis"
	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/kinematics"
)

// Identification levels the simulated beams present on the analog input.
const (
	LevelLow  = 0.5
	LevelHigh = 3.0
	LevelNone = 1.6
)

// Options configures the simulated machine. Zero values take the defaults.
type Options struct {
	// Beam is the mounted beam. Invalid mounts nothing.
	Beam beam.Variant
	// Bias is added to the raw hall channels.
	Bias beam.Channels
	// Perturbation is the tilt in radians the beam starts with when the axes couple.
	Perturbation float64

	BusVoltage           float64
	BusVoltageLowerLimit float64
	MotorTemperature     float64
	VelocityMaximum      float64
	AccelerationMaximum  float64

	SwitchOnTicks int
	EnableTicks   int

	// Joints are the joint angles in radians at power up.
	Joints [2]float64
}

func (o *Options) applyDefaults() {
	if o.BusVoltage == 0 {
		o.BusVoltage = 48
	}
	if o.BusVoltageLowerLimit == 0 {
		o.BusVoltageLowerLimit = 20
	}
	if o.MotorTemperature == 0 {
		o.MotorTemperature = 40
	}
	if o.VelocityMaximum == 0 {
		o.VelocityMaximum = 20
	}
	if o.AccelerationMaximum == 0 {
		o.AccelerationMaximum = 500
	}
	if o.SwitchOnTicks == 0 {
		o.SwitchOnTicks = 2
	}
	if o.EnableTicks == 0 {
		o.EnableTicks = 2
	}
}

var _ axis.Device = &Device{}

// Device is a simulated drive. Step advances the simulation by one tick; it is not safe for
// concurrent use.
type Device struct {
	opts    Options
	linkage kinematics.Linkage
	axes    [2]*Axis

	operational    bool
	switchOnCount  int
	switchOnIssued bool
	fault          bool
	externalError  bool
	busVoltage     float64

	level  float64
	gainB  float64
	gainA  float64
	plant  *Pendulum
	ticks  uint64
	pose   kinematics.Pose
	before kinematics.Pose
}

// NewDevice returns a powered-down simulated drive for the given machine.
func NewDevice(cfg *config.Config, opts Options) *Device {
	opts.applyDefaults()
	ts := cfg.SamplingTime()
	d := &Device{
		opts:       opts,
		linkage:    kinematics.NewLinkage(cfg.Geometry),
		busVoltage: opts.BusVoltage,
	}
	for _, id := range axis.IDs {
		d.axes[id] = newAxis(id, ts, opts, opts.Joints[id])
	}

	vc := cfg.Beam.Variants.Low
	switch opts.Beam {
	case beam.Low:
		d.level = LevelLow
	case beam.VeryShort:
		d.level = LevelLow
		vc = cfg.Beam.Variants.VeryShort
	case beam.High:
		d.level = LevelHigh
		vc = cfg.Beam.Variants.High
	default:
		d.level = LevelNone
	}
	d.gainB, d.gainA = vc.HallGainB, vc.HallGainA
	d.plant = NewPendulum(vc.NaturalFreq, cfg.Gravity, ts)

	d.pose = d.linkage.Forward(opts.Joints[axis.Phi0], opts.Joints[axis.Phi1])
	d.before = d.pose
	d.plant.Hold(d.pose.X, d.pose.Y, 0, 0)
	return d
}

// Step advances the drive, both axes and the pendulum by one tick.
func (d *Device) Step() {
	d.ticks++
	if d.switchOnIssued && !d.operational {
		d.switchOnCount--
		if d.switchOnCount <= 0 {
			d.operational = true
		}
	}
	for _, a := range d.axes {
		a.step()
	}

	d.before = d.pose
	d.pose = d.linkage.Forward(d.axes[axis.Phi0].pos, d.axes[axis.Phi1].pos)
	fs := 1 / d.plant.ts
	vx := (d.pose.X - d.before.X) * fs
	vy := (d.pose.Y - d.before.Y) * fs

	if d.coupled() {
		if d.plant.Held() {
			d.plant.Release(d.opts.Perturbation)
		}
		d.plant.Step(d.pose.X, d.pose.Y, vx, vy)
	} else {
		d.plant.Hold(d.pose.X, d.pose.Y, vx, vy)
	}
}

func (d *Device) coupled() bool {
	return d.axes[axis.Phi0].cmd == axis.CommandMoveDirectCoupled &&
		d.axes[axis.Phi1].cmd == axis.CommandMoveDirectCoupled
}

// Ticks returns the number of simulated ticks.
func (d *Device) Ticks() uint64 {
	return d.ticks
}

// Pose returns the platform pose from the joint positions.
func (d *Device) Pose() kinematics.Pose {
	return d.pose
}

// Plant returns the pendulum.
func (d *Device) Plant() *Pendulum {
	return d.plant
}

// SimAxis returns the concrete simulated axis.
func (d *Device) SimAxis(id axis.ID) *Axis {
	return d.axes[id]
}

// HasError reports a drive fault or an external error.
func (d *Device) HasError() bool {
	return d.fault || d.externalError
}

// SetFault injects or clears a drive fault.
func (d *Device) SetFault(fault bool) {
	d.fault = fault
}

// SetExternalError injects or clears an external error.
func (d *Device) SetExternalError(e bool) {
	d.externalError = e
}

// IsOperational reports whether the power stage is switched on.
func (d *Device) IsOperational() bool {
	return d.operational
}

// BusVoltage returns the DC bus voltage.
func (d *Device) BusVoltage() float64 {
	return d.busVoltage
}

// SetBusVoltage sets the DC bus voltage.
func (d *Device) SetBusVoltage(v float64) {
	d.busVoltage = v
}

// BusVoltageLowerLimit returns the undervoltage threshold of the drive.
func (d *Device) BusVoltageLowerLimit() float64 {
	return d.opts.BusVoltageLowerLimit
}

// SwitchOn requests the power stage.
func (d *Device) SwitchOn() {
	if d.switchOnIssued {
		return
	}
	d.switchOnIssued = true
	d.switchOnCount = d.opts.SwitchOnTicks
}

// ResetFault clears a drive fault.
func (d *Device) ResetFault() {
	d.fault = false
}

// ClearExternalError clears an external error.
func (d *Device) ClearExternalError() {
	d.externalError = false
}

// BeamLevel returns the identification level of the mounted beam.
func (d *Device) BeamLevel() float64 {
	return d.level
}

// SetBeamLevel overrides the identification level, e.g. to simulate removing the beam.
func (d *Device) SetBeamLevel(level float64) {
	d.level = level
}

// Inclination returns the raw hall channels for the current pendulum tilt, expressed in the
// frame of the platform beam.
func (d *Device) Inclination() beam.Channels {
	tx, ty := d.plant.Tilt(d.pose.X, d.pose.Y)
	cosXi, sinXi := math.Cos(d.pose.Xi), math.Sin(d.pose.Xi)
	b := cosXi*tx + sinXi*ty
	a := -sinXi*tx + cosXi*ty
	return beam.Channels{
		B: b/d.gainB + d.opts.Bias.B,
		A: a/d.gainA + d.opts.Bias.A,
	}
}

// Axis returns one of the two axes.
func (d *Device) Axis(id axis.ID) axis.Axis {
	return d.axes[id]
}
