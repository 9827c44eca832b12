// Package telemetry exposes the per-tick state of the balancer: a lock-free register mirror that
// the tick writes and readers poll, and an MQTT publisher that ships snapshots of it.
package telemetry

import (
	"go.uber.org/atomic"
)

// Frame is the state published after every tick.
type Frame struct {
	Tick     uint64 `json:"tick"`
	State    string `json:"state"`
	Command  string `json:"command"`
	Variant  string `json:"variant"`
	Warnings uint32 `json:"warnings"`

	// TableX and TableY are the platform reference streamed to the axes.
	TableX float64 `json:"table_x"`
	TableY float64 `json:"table_y"`
	// PathX and PathY are the composer reference.
	PathX float64 `json:"path_x"`
	PathY float64 `json:"path_y"`

	TiltX    float64 `json:"tilt_x"`
	TiltY    float64 `json:"tilt_y"`
	TiltVelX float64 `json:"tilt_vel_x"`
	TiltVelY float64 `json:"tilt_vel_y"`
	Xi       float64 `json:"xi"`
}

// Sink receives a frame once per tick. Implementations must not block.
type Sink interface {
	Publish(f Frame)
}

// Source hands out the latest frame.
type Source interface {
	Snapshot() Frame
}

// Discard is a Sink that drops every frame.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(Frame) {}

// Registers mirrors the latest frame field by field so readers on other goroutines never block
// the tick. A snapshot may mix fields of two consecutive ticks.
type Registers struct {
	tick     atomic.Uint64
	state    atomic.String
	command  atomic.String
	variant  atomic.String
	warnings atomic.Uint32

	tableX   atomic.Float64
	tableY   atomic.Float64
	pathX    atomic.Float64
	pathY    atomic.Float64
	tiltX    atomic.Float64
	tiltY    atomic.Float64
	tiltVelX atomic.Float64
	tiltVelY atomic.Float64
	xi       atomic.Float64
}

var (
	_ Sink   = &Registers{}
	_ Source = &Registers{}
)

// NewRegisters returns zeroed registers.
func NewRegisters() *Registers {
	return &Registers{}
}

// Publish stores f.
func (r *Registers) Publish(f Frame) {
	r.state.Store(f.State)
	r.command.Store(f.Command)
	r.variant.Store(f.Variant)
	r.warnings.Store(f.Warnings)
	r.tableX.Store(f.TableX)
	r.tableY.Store(f.TableY)
	r.pathX.Store(f.PathX)
	r.pathY.Store(f.PathY)
	r.tiltX.Store(f.TiltX)
	r.tiltY.Store(f.TiltY)
	r.tiltVelX.Store(f.TiltVelX)
	r.tiltVelY.Store(f.TiltVelY)
	r.xi.Store(f.Xi)
	r.tick.Store(f.Tick)
}

// Snapshot loads the stored fields.
func (r *Registers) Snapshot() Frame {
	return Frame{
		Tick:     r.tick.Load(),
		State:    r.state.Load(),
		Command:  r.command.Load(),
		Variant:  r.variant.Load(),
		Warnings: r.warnings.Load(),
		TableX:   r.tableX.Load(),
		TableY:   r.tableY.Load(),
		PathX:    r.pathX.Load(),
		PathY:    r.pathY.Load(),
		TiltX:    r.tiltX.Load(),
		TiltY:    r.tiltY.Load(),
		TiltVelX: r.tiltVelX.Load(),
		TiltVelY: r.tiltVelY.Load(),
		Xi:       r.xi.Load(),
	}
}

// Fanout publishes every frame to each of its sinks in order.
type Fanout []Sink

// Publish forwards f.
func (fo Fanout) Publish(f Frame) {
	for _, s := range fo {
		s.Publish(f)
	}
}
