package beam

import (
	"go.viam.com/beambalancer/control"
)

type cacheEntry struct {
	inputs control.GainInputs
	gains  control.Gains
	stable bool
}

// GainCache keeps the gains derived for each variant so that re-identifying a beam with
// unchanged tunables does not redo the pole placement.
type GainCache struct {
	samplingTime float64
	gravity      float64
	intLimitRad  float64

	entries     map[Variant]cacheEntry
	derivations int
}

// NewGainCache returns an empty cache.
func NewGainCache(samplingTime, gravity, intLimitRad float64) *GainCache {
	return &GainCache{
		samplingTime: samplingTime,
		gravity:      gravity,
		intLimitRad:  intLimitRad,
		entries:      make(map[Variant]cacheEntry),
	}
}

// Get returns the gains of v for the inputs and whether they stabilize the loop.
func (gc *GainCache) Get(v Variant, in control.GainInputs) (control.Gains, bool) {
	if e, ok := gc.entries[v]; ok && e.inputs == in {
		return e.gains, e.stable
	}
	g := control.DeriveGains(in, gc.samplingTime, gc.gravity, gc.intLimitRad)
	e := cacheEntry{inputs: in, gains: g, stable: g.Stable(gc.samplingTime)}
	gc.entries[v] = e
	gc.derivations++
	return e.gains, e.stable
}

// Derivations returns how many times gains were derived.
func (gc *GainCache) Derivations() int {
	return gc.derivations
}
