package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.SamplingTime(), test.ShouldAlmostEqual, 1e-4)
	test.That(t, cfg.Ticks(0.2), test.ShouldEqual, 2000)
	test.That(t, cfg.Ticks(8), test.ShouldEqual, 80000)
	test.That(t, cfg.Beam.CalibDriftRaw, test.ShouldAlmostEqual, 171.59, 0.01)
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, 3.14159265, 1e-8)
	test.That(t, RadToDeg(DegToRad(-45)), test.ShouldAlmostEqual, -45)
}

func TestFromReader(t *testing.T) {
	_, err := FromReader(strings.NewReader(""))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	cfg, err := FromReader(strings.NewReader(`{}`))
	test.That(t, err, test.ShouldBeNil)
	expected := Default()
	test.That(t, cfg, test.ShouldResemble, &expected)

	cfg, err = FromReader(strings.NewReader(`{
		"sampling_frequency": 1000,
		"joints": {"taxi_speed": 1.5},
		"path": {"sequence": "standard"},
		"supervisor": {"auto_start": false},
		"log": {"level": "debug", "patterns": [{"pattern": "balancer.*", "level": "warn"}]}
	}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.SamplingFrequency, test.ShouldEqual, 1000.)
	test.That(t, cfg.Joints.TaxiSpeed, test.ShouldEqual, 1.5)
	// Siblings of overridden fields keep their defaults.
	test.That(t, cfg.Joints.Phi0HomeDeg, test.ShouldEqual, -45.)
	test.That(t, cfg.Path.Sequence, test.ShouldEqual, SequenceStandard)
	test.That(t, cfg.Path.CircleTurns, test.ShouldEqual, 12.)
	test.That(t, cfg.Supervisor.AutoStart, test.ShouldBeFalse)
	test.That(t, cfg.Log.Patterns, test.ShouldHaveLength, 1)
	test.That(t, cfg.Log.Patterns[0].Level, test.ShouldEqual, "warn")

	_, err = FromReader(strings.NewReader(`{"geometry": {"upper_arms": 0.3}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "upper_arms")
}

func TestValidateAggregates(t *testing.T) {
	cfg := Default()
	cfg.SamplingFrequency = 0
	cfg.Beam.LockOutDeg = 1
	cfg.Path.Sequence = "slow"
	cfg.Joints.Phi1MinDeg = 200
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sampling_frequency")
	test.That(t, err.Error(), test.ShouldContainSubstring, "lock_out_deg")
	test.That(t, err.Error(), test.ShouldContainSubstring, "path.sequence")
	test.That(t, err.Error(), test.ShouldContainSubstring, "phi1_min_deg")
}

func TestRead(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "balancer.json")
	test.That(t, os.WriteFile(path, []byte(`{"gravity": 9.80665}`), 0o600), test.ShouldBeNil)
	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Gravity, test.ShouldEqual, 9.80665)
}
