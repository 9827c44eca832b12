package inject

import (
	"go.viam.com/beambalancer/axis"
	"go.viam.com/beambalancer/beam"
)

// Device is an injectable axis.Device.
type Device struct {
	axis.Device
	HasErrorFunc             func() bool
	IsOperationalFunc        func() bool
	BusVoltageFunc           func() float64
	BusVoltageLowerLimitFunc func() float64
	SwitchOnFunc             func()
	ResetFaultFunc           func()
	ClearExternalErrorFunc   func()
	BeamLevelFunc            func() float64
	InclinationFunc          func() beam.Channels
	AxisFunc                 func(id axis.ID) axis.Axis
}

// HasError calls the injected HasError or the real version.
func (d *Device) HasError() bool {
	if d.HasErrorFunc == nil {
		return d.Device.HasError()
	}
	return d.HasErrorFunc()
}

// IsOperational calls the injected IsOperational or the real version.
func (d *Device) IsOperational() bool {
	if d.IsOperationalFunc == nil {
		return d.Device.IsOperational()
	}
	return d.IsOperationalFunc()
}

// BusVoltage calls the injected BusVoltage or the real version.
func (d *Device) BusVoltage() float64 {
	if d.BusVoltageFunc == nil {
		return d.Device.BusVoltage()
	}
	return d.BusVoltageFunc()
}

// BusVoltageLowerLimit calls the injected BusVoltageLowerLimit or the real version.
func (d *Device) BusVoltageLowerLimit() float64 {
	if d.BusVoltageLowerLimitFunc == nil {
		return d.Device.BusVoltageLowerLimit()
	}
	return d.BusVoltageLowerLimitFunc()
}

// SwitchOn calls the injected SwitchOn or the real version.
func (d *Device) SwitchOn() {
	if d.SwitchOnFunc == nil {
		d.Device.SwitchOn()
		return
	}
	d.SwitchOnFunc()
}

// ResetFault calls the injected ResetFault or the real version.
func (d *Device) ResetFault() {
	if d.ResetFaultFunc == nil {
		d.Device.ResetFault()
		return
	}
	d.ResetFaultFunc()
}

// ClearExternalError calls the injected ClearExternalError or the real version.
func (d *Device) ClearExternalError() {
	if d.ClearExternalErrorFunc == nil {
		d.Device.ClearExternalError()
		return
	}
	d.ClearExternalErrorFunc()
}

// BeamLevel calls the injected BeamLevel or the real version.
func (d *Device) BeamLevel() float64 {
	if d.BeamLevelFunc == nil {
		return d.Device.BeamLevel()
	}
	return d.BeamLevelFunc()
}

// Inclination calls the injected Inclination or the real version.
func (d *Device) Inclination() beam.Channels {
	if d.InclinationFunc == nil {
		return d.Device.Inclination()
	}
	return d.InclinationFunc()
}

// Axis calls the injected Axis or the real version.
func (d *Device) Axis(id axis.ID) axis.Axis {
	if d.AxisFunc == nil {
		return d.Device.Axis(id)
	}
	return d.AxisFunc(id)
}
