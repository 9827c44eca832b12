// Package beam turns the raw hall channels of the tilt sensor into beam inclination and tracks
// which beam is mounted on the platform.
package beam

import (
	"github.com/pkg/errors"

	"go.viam.com/beambalancer/config"
)

// Variant identifies the mounted beam. The values are reported through telemetry.
type Variant int

// Known beam variants.
const (
	Invalid Variant = iota
	Low
	High
	VeryShort
)

func (v Variant) String() string {
	switch v {
	case Invalid:
		return "invalid"
	case Low:
		return "low"
	case High:
		return "high"
	case VeryShort:
		return "very_short"
	}
	return "unknown"
}

// ParseVariant returns the variant with the given String name.
func ParseVariant(name string) (Variant, error) {
	for _, v := range []Variant{Invalid, Low, High, VeryShort} {
		if v.String() == name {
			return v, nil
		}
	}
	return Invalid, errors.Errorf("unknown beam variant %q", name)
}

// Valid reports whether v is a mountable beam.
func (v Variant) Valid() bool {
	return v == Low || v == High || v == VeryShort
}

// variantParams returns the configuration and calibration slot of a variant. ok is false for
// values outside the known set, which fall back to the low beam.
func variantParams(v Variant, variants config.Variants) (cfg config.VariantConfig, slot config.OffsetSlot, ok bool) {
	switch v {
	case Low, Invalid:
		return variants.Low, config.SlotLow, true
	case High:
		return variants.High, config.SlotHigh, true
	case VeryShort:
		return variants.VeryShort, config.SlotLow, true
	}
	return variants.Low, config.SlotLow, false
}

// GainFreqSq returns the squared natural frequency the controller gains of v are placed for. The
// very short beam is tuned against the geometric mean of its own and the low beam's frequency.
func GainFreqSq(v Variant, variants config.Variants) float64 {
	if v == VeryShort {
		return variants.Low.NaturalFreq * variants.VeryShort.NaturalFreq
	}
	vc, _, _ := variantParams(v, variants)
	return vc.NaturalFreq * vc.NaturalFreq
}
