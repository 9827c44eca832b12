// Package warning defines the latched warning bit-field shared by every stage of the tick.
package warning

import (
	"strings"

	"go.viam.com/beambalancer/logging"
)

// Flags is an OR-accumulated set of warnings.
type Flags uint32

// The bit values are part of the telemetry contract and must not be renumbered.
const (
	DeviceOrAxisError Flags = 1 << iota
	AxesAreNotEnabled
	AxisNotReadyForCoupling
	AxesAreNotCoupled
	SwLimitViolation
	InvalidBarType
	ResetFailed
	BeamDetectionUndervoltage
	InternalUndefinedCase
	GainsUnstable

	// None is the empty set.
	None Flags = 0
)

var names = []struct {
	flag Flags
	name string
}{
	{DeviceOrAxisError, "DeviceOrAxisError"},
	{AxesAreNotEnabled, "AxesAreNotEnabled"},
	{AxisNotReadyForCoupling, "AxisNotReadyForCoupling"},
	{AxesAreNotCoupled, "AxesAreNotCoupled"},
	{SwLimitViolation, "SwLimitViolation"},
	{InvalidBarType, "InvalidBarType"},
	{ResetFailed, "ResetFailed"},
	{BeamDetectionUndervoltage, "BeamDetectionUndervoltage"},
	{InternalUndefinedCase, "InternalUndefinedCase"},
	{GainsUnstable, "GainsUnstable"},
}

// Has reports whether every bit of other is set in f.
func (f Flags) Has(other Flags) bool {
	return other != 0 && f&other == other
}

func (f Flags) String() string {
	if f == None {
		return "None"
	}
	var parts []string
	for _, n := range names {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := f &^ allKnown(); rest != 0 {
		parts = append(parts, "Unknown")
	}
	return strings.Join(parts, "|")
}

func allKnown() Flags {
	var all Flags
	for _, n := range names {
		all |= n.flag
	}
	return all
}

// Field accumulates warnings until an explicit Reset. It is not safe for concurrent use; it lives
// inside the tick.
type Field struct {
	flags  Flags
	logger logging.Logger
}

// NewField returns an empty field. A nil logger disables logging.
func NewField(logger logging.Logger) *Field {
	return &Field{logger: logger}
}

// Set ORs the given bits in. Bits that were not already set are logged once.
func (wf *Field) Set(flags Flags) {
	fresh := flags &^ wf.flags
	wf.flags |= flags
	if fresh != 0 && wf.logger != nil {
		wf.logger.Warnw("warning raised", "warning", fresh.String(), "flags", uint32(wf.flags))
	}
}

// Reset clears every bit.
func (wf *Field) Reset() {
	if wf.flags != None && wf.logger != nil {
		wf.logger.Infow("warnings reset", "cleared", wf.flags.String())
	}
	wf.flags = None
}

// Flags returns the accumulated bits.
func (wf *Field) Flags() Flags {
	return wf.flags
}

// Has reports whether all the given bits are set.
func (wf *Field) Has(flags Flags) bool {
	return wf.flags.Has(flags)
}
