package config

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Tunables are the operator-adjustable parameters. They are read once per use; a store may replace
// them between ticks.
type Tunables struct {
	Damping     float64 `json:"damping"`
	StateFreqHz float64 `json:"state_freq_hz"`
	IntFreqHz   float64 `json:"int_freq_hz"`
	VelFilterHz float64 `json:"vel_filter_hz"`

	MoveVel  float64 `json:"move_vel"`
	MoveAcc  float64 `json:"move_acc"`
	MoveJerk float64 `json:"move_jerk"`

	Radius0 float64 `json:"radius0"`
	Radius1 float64 `json:"radius1"`

	CircleVel  float64 `json:"circle_vel"`
	CircleAcc  float64 `json:"circle_acc"`
	CircleJerk float64 `json:"circle_jerk"`
}

// DefaultTunables returns commissioning values that keep every shipped variant stable.
func DefaultTunables() Tunables {
	return Tunables{
		Damping:     0.7,
		StateFreqHz: 2.0,
		IntFreqHz:   0.2,
		VelFilterHz: 30,
		MoveVel:     0.5,
		MoveAcc:     2.0,
		MoveJerk:    20,
		Radius0:     0.1,
		Radius1:     0.1,
		CircleVel:   0.3,
		CircleAcc:   1.0,
		CircleJerk:  10,
	}
}

// Validate checks that the tunables can drive the controller and the scripted moves.
func (t Tunables) Validate() error {
	var errs error
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"damping", t.Damping},
		{"state_freq_hz", t.StateFreqHz},
		{"int_freq_hz", t.IntFreqHz},
		{"vel_filter_hz", t.VelFilterHz},
		{"move_vel", t.MoveVel},
		{"move_acc", t.MoveAcc},
		{"move_jerk", t.MoveJerk},
		{"radius0", t.Radius0},
		{"radius1", t.Radius1},
		{"circle_vel", t.CircleVel},
		{"circle_acc", t.CircleAcc},
		{"circle_jerk", t.CircleJerk},
	} {
		if !(f.v > 0) {
			errs = multierr.Append(errs, errors.Errorf("tunable %s must be positive, got %v", f.name, f.v))
		}
	}
	return errs
}

// Offsets is a calibration offset pair for the two hall channels, in raw units.
type Offsets struct {
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// OffsetSlot addresses a persisted calibration pair.
type OffsetSlot int

// The very short beam shares the low slot and never writes it back.
const (
	SlotLow OffsetSlot = iota
	SlotHigh
)

func (s OffsetSlot) String() string {
	switch s {
	case SlotLow:
		return "low"
	case SlotHigh:
		return "high"
	}
	return "unknown"
}

// Parameters is the parameter store seen by the control kernel. Calls happen inside the tick and
// must not block on IO.
type Parameters interface {
	Tunables() Tunables
	Offsets(slot OffsetSlot) Offsets
	SetOffsets(slot OffsetSlot, offsets Offsets)
}

// MemoryParameters is a Parameters kept in memory only.
type MemoryParameters struct {
	mu       sync.RWMutex
	tunables Tunables
	offsets  map[OffsetSlot]Offsets
}

// NewMemoryParameters returns a store holding the given tunables and zero offsets.
func NewMemoryParameters(tunables Tunables) *MemoryParameters {
	return &MemoryParameters{
		tunables: tunables,
		offsets:  make(map[OffsetSlot]Offsets),
	}
}

// Tunables returns the current tunables.
func (mp *MemoryParameters) Tunables() Tunables {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.tunables
}

// SetTunables replaces the tunables.
func (mp *MemoryParameters) SetTunables(tunables Tunables) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.tunables = tunables
}

// Offsets returns the offsets stored in slot.
func (mp *MemoryParameters) Offsets(slot OffsetSlot) Offsets {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.offsets[slot]
}

// SetOffsets stores offsets in slot.
func (mp *MemoryParameters) SetOffsets(slot OffsetSlot, offsets Offsets) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.offsets[slot] = offsets
}
