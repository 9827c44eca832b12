package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestLevelPatternValidate(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		valid   bool
	}{
		{"balancer", true},
		{"balancer.supervisor", true},
		{"balancer.*", true},
		{"*.beam", true},
		{"axis_0", true},
		{"balancer..beam", false},
		{".beam", false},
		{"beam.", false},
		{"beam/axis", false},
		{"", false},
	} {
		t.Run(tc.pattern, func(t *testing.T) {
			err := LevelPattern{Pattern: tc.pattern, Level: "debug"}.Validate()
			if tc.valid {
				test.That(t, err, test.ShouldBeNil)
			} else {
				test.That(t, err, test.ShouldNotBeNil)
			}
		})
	}

	test.That(t, LevelPattern{Pattern: "beam", Level: "chatty"}.Validate(), test.ShouldNotBeNil)
}

func TestRegistryApply(t *testing.T) {
	registry := NewRegistry()
	supervisor := registry.GetOrRegister("balancer.supervisor", NewBlankLogger("balancer.supervisor"))
	beam := registry.GetOrRegister("balancer.supervisor.beam", NewBlankLogger("balancer.supervisor.beam"))
	test.That(t, supervisor.GetLevel(), test.ShouldEqual, INFO)

	err := registry.Apply(WARN, []LevelPattern{
		{Pattern: "balancer.*", Level: "info"},
		{Pattern: "*.beam", Level: "debug"},
		{Pattern: "bad..pattern", Level: "debug"},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, supervisor.GetLevel(), test.ShouldEqual, INFO)
	test.That(t, beam.GetLevel(), test.ShouldEqual, DEBUG)

	// Loggers registered later pick up the installed patterns.
	telemetry := registry.GetOrRegister("telemetry", NewBlankLogger("telemetry"))
	test.That(t, telemetry.GetLevel(), test.ShouldEqual, WARN)

	again := registry.GetOrRegister("telemetry", NewBlankLogger("other"))
	test.That(t, again, test.ShouldEqual, telemetry)

	test.That(t, registry.Deregister("telemetry"), test.ShouldBeTrue)
	test.That(t, registry.Deregister("telemetry"), test.ShouldBeFalse)
	_, ok := registry.LoggerNamed("telemetry")
	test.That(t, ok, test.ShouldBeFalse)
}
