package control

import (
	"math"
)

// PoleCoefficient returns the discrete single-pole coefficient exp(-2π·f·Ts) for a corner
// frequency f in Hz.
func PoleCoefficient(cornerHz, samplingTime float64) float64 {
	return math.Exp(-cornerHz * 2 * math.Pi * samplingTime)
}

// SinglePole is a first-order IIR low pass, y = α·y + (1-α)·x.
type SinglePole struct {
	Alpha float64
	y     float64
}

// NewSinglePole returns a filter with the given corner frequency.
func NewSinglePole(cornerHz, samplingTime float64) *SinglePole {
	return &SinglePole{Alpha: PoleCoefficient(cornerHz, samplingTime)}
}

// Next filters x and returns the output.
func (f *SinglePole) Next(x float64) float64 {
	f.y = f.Alpha*f.y + (1-f.Alpha)*x
	return f.y
}

// Value returns the last output.
func (f *SinglePole) Value() float64 {
	return f.y
}

// Reset sets the output to v.
func (f *SinglePole) Reset(v float64) {
	f.y = v
}

// Differentiator estimates the rate of a sampled signal as the low-passed backward difference.
type Differentiator struct {
	SinglePole
	fs   float64
	last float64
}

// NewDifferentiator returns a differentiator with the given filter corner frequency.
func NewDifferentiator(cornerHz, samplingFrequency float64) *Differentiator {
	return &Differentiator{
		SinglePole: SinglePole{Alpha: PoleCoefficient(cornerHz, 1/samplingFrequency)},
		fs:         samplingFrequency,
	}
}

// Next consumes a new sample and returns the filtered rate.
func (d *Differentiator) Next(x float64) float64 {
	rate := d.SinglePole.Next((x - d.last) * d.fs)
	d.last = x
	return rate
}

// Reset zeroes the rate and sets the previous sample to last.
func (d *Differentiator) Reset(last float64) {
	d.SinglePole.Reset(0)
	d.last = last
}
