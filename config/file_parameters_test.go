package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/beambalancer/logging"
)

func TestMemoryParameters(t *testing.T) {
	params := NewMemoryParameters(DefaultTunables())
	test.That(t, params.Tunables(), test.ShouldResemble, DefaultTunables())
	test.That(t, params.Offsets(SlotHigh), test.ShouldResemble, Offsets{})

	params.SetOffsets(SlotHigh, Offsets{B: -12, A: 7})
	test.That(t, params.Offsets(SlotHigh), test.ShouldResemble, Offsets{B: -12, A: 7})
	test.That(t, params.Offsets(SlotLow), test.ShouldResemble, Offsets{})

	tunables := DefaultTunables()
	tunables.Damping = 1
	params.SetTunables(tunables)
	test.That(t, params.Tunables().Damping, test.ShouldEqual, 1.)
}

func TestTunablesValidate(t *testing.T) {
	test.That(t, DefaultTunables().Validate(), test.ShouldBeNil)
	tunables := DefaultTunables()
	tunables.CircleJerk = 0
	tunables.Damping = -1
	err := tunables.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "circle_jerk")
	test.That(t, err.Error(), test.ShouldContainSubstring, "damping")
}

func readParameterFile(t *testing.T, path string) parameterFile {
	t.Helper()
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	var contents parameterFile
	test.That(t, json.Unmarshal(data, &contents), test.ShouldBeNil)
	return contents
}

func TestFileParametersCreatesAndPersists(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "parameters.json")

	params, err := NewFileParameters(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readParameterFile(t, path).Tunables, test.ShouldResemble, DefaultTunables())

	params.SetOffsets(SlotLow, Offsets{B: 120.5, A: -98.25})
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, readParameterFile(t, path).Calibration.Low, test.ShouldResemble, Offsets{B: 120.5, A: -98.25})
	})
	params.SetOffsets(SlotHigh, Offsets{B: 3, A: 4})
	test.That(t, params.Close(), test.ShouldBeNil)
	test.That(t, readParameterFile(t, path).Calibration.High, test.ShouldResemble, Offsets{B: 3, A: 4})

	// Offsets survive a restart.
	params, err = NewFileParameters(path, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, params.Close(), test.ShouldBeNil)
	}()
	test.That(t, params.Offsets(SlotLow), test.ShouldResemble, Offsets{B: 120.5, A: -98.25})
	test.That(t, params.Offsets(SlotHigh), test.ShouldResemble, Offsets{B: 3, A: 4})
}

func TestFileParametersReload(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "parameters.json")
	params, err := NewFileParameters(path, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, params.Close(), test.ShouldBeNil)
	}()

	contents := readParameterFile(t, path)
	contents.Tunables.StateFreqHz = 3.5
	data, err := json.Marshal(&contents)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, params.Tunables().StateFreqHz, test.ShouldEqual, 3.5)
	})

	// Invalid tunables are rejected and the previous ones kept.
	contents.Tunables.Damping = 0
	data, err = json.Marshal(&contents)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)
	contents.Tunables.Damping = DefaultTunables().Damping
	contents.Tunables.StateFreqHz = 4
	data, err = json.Marshal(&contents)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, params.Tunables().StateFreqHz, test.ShouldEqual, 4.)
	})
	test.That(t, params.Tunables().Damping, test.ShouldEqual, DefaultTunables().Damping)
}
