// Package config holds the machine constants of the balancer and the parameter store that
// carries operator tunables and persisted calibration offsets.
package config

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/beambalancer/logging"
)

// SequenceFast and SequenceStandard name the calibration choreographies.
const (
	SequenceFast     = "fast"
	SequenceStandard = "standard"
)

// Config is the full set of machine constants. Angles are stored in degrees and times in
// seconds; the accessors convert to radians and ticks.
type Config struct {
	SamplingFrequency float64          `json:"sampling_frequency"`
	Gravity           float64          `json:"gravity"`
	Geometry          Geometry         `json:"geometry"`
	Joints            JointLimits      `json:"joints"`
	Controller        ControllerConfig `json:"controller"`
	Beam              BeamConfig       `json:"beam"`
	Path              PathConfig       `json:"path"`
	Supervisor        SupervisorConfig `json:"supervisor"`
	Telemetry         TelemetryConfig  `json:"telemetry"`
	Log               LogConfig        `json:"log"`

	// ParametersFile is the JSON file backing the parameter store. Empty means in-memory defaults.
	ParametersFile string `json:"parameters_file"`
}

// Geometry describes the five-bar linkage.
type Geometry struct {
	UpperArm      float64 `json:"upper_arm"`
	Forearm       float64 `json:"forearm"`
	MotorDistance float64 `json:"motor_distance"`
}

// JointLimits bounds both joints and their difference, and gives the home pose.
type JointLimits struct {
	Phi0MinDeg  float64 `json:"phi0_min_deg"`
	Phi0MaxDeg  float64 `json:"phi0_max_deg"`
	Phi1MinDeg  float64 `json:"phi1_min_deg"`
	Phi1MaxDeg  float64 `json:"phi1_max_deg"`
	DeltaMinDeg float64 `json:"delta_min_deg"`
	DeltaMaxDeg float64 `json:"delta_max_deg"`
	Phi0HomeDeg float64 `json:"phi0_home_deg"`
	Phi1HomeDeg float64 `json:"phi1_home_deg"`
	// TaxiSpeed is the joint speed in rad/s used for homing and the move to zero.
	TaxiSpeed float64 `json:"taxi_speed"`
}

// ControllerConfig holds the stabilizing controller limits.
type ControllerConfig struct {
	MaxAccOut          float64 `json:"max_acc_out"`
	IntegratorLimitDeg float64 `json:"integrator_limit_deg"`
}

// VariantConfig holds the constants of one beam hardware variant.
type VariantConfig struct {
	NaturalFreq float64 `json:"natural_freq"`
	HallGainB   float64 `json:"hall_gain_b"`
	HallGainA   float64 `json:"hall_gain_a"`
	// CircleAcc is the circle acceleration of the standard choreography.
	CircleAcc float64 `json:"circle_acc"`
}

// Variants groups the per-variant constants.
type Variants struct {
	Low       VariantConfig `json:"low"`
	High      VariantConfig `json:"high"`
	VeryShort VariantConfig `json:"very_short"`
}

// BeamConfig holds the identification thresholds, lock thresholds and per-variant constants.
type BeamConfig struct {
	LowLevel          float64  `json:"low_level"`
	HighLevel         float64  `json:"high_level"`
	UndervoltageLevel float64  `json:"undervoltage_level"`
	LockInDeg         float64  `json:"lock_in_deg"`
	LockOutDeg        float64  `json:"lock_out_deg"`
	CalibFilterFreq   float64  `json:"calib_filter_freq"`
	CalibDriftRaw     float64  `json:"calib_drift_raw"`
	Variants          Variants `json:"variants"`
}

// PathConfig holds the constants of the scripted moves.
type PathConfig struct {
	CircleTurns    float64 `json:"circle_turns"`
	CircleRadius   float64 `json:"circle_radius"`
	LissajousTurns float64 `json:"lissajous_turns"`
	WaitAfterMove  float64 `json:"wait_after_move"`
	Sequence       string  `json:"sequence"`
}

// SupervisorConfig holds delays and switch thresholds of the top level state machine.
type SupervisorConfig struct {
	RegulatingDelay        float64 `json:"regulating_delay"`
	CalibrationDelay       float64 `json:"calibration_delay"`
	StartupResetDelay      float64 `json:"startup_reset_delay"`
	MotTempSwitchThreshold float64 `json:"mot_temp_switch_threshold"`
	// AutoStart makes the supervisor power up in Startup rather than Idle.
	AutoStart bool `json:"auto_start"`
}

// TelemetryConfig configures the MQTT publisher. An empty Broker disables it.
type TelemetryConfig struct {
	Broker     string  `json:"broker"`
	Topic      string  `json:"topic"`
	ClientID   string  `json:"client_id"`
	PublishHz  float64 `json:"publish_hz"`
	QoS        byte    `json:"qos"`
	TimeoutSec float64 `json:"timeout_sec"`
}

// LogConfig configures logging. An empty File path logs to stdout only.
type LogConfig struct {
	Level    string                 `json:"level"`
	Patterns []logging.LevelPattern `json:"patterns"`
	File     logging.FileConfig     `json:"file"`
}

// Default returns the constants of the shipped machine.
func Default() Config {
	const hallGainBLow = 5.82786e-5
	return Config{
		SamplingFrequency: 10000,
		Gravity:           9.81,
		Geometry: Geometry{
			UpperArm:      0.34712,
			Forearm:       0.41063,
			MotorDistance: 0.11,
		},
		Joints: JointLimits{
			Phi0MinDeg:  -180,
			Phi0MaxDeg:  60,
			Phi1MinDeg:  -60,
			Phi1MaxDeg:  180,
			DeltaMinDeg: 0,
			DeltaMaxDeg: 180,
			Phi0HomeDeg: -45,
			Phi1HomeDeg: 45,
			TaxiSpeed:   2.0,
		},
		Controller: ControllerConfig{
			MaxAccOut:          10.0,
			IntegratorLimitDeg: 2.5,
		},
		Beam: BeamConfig{
			LowLevel:          1.1,
			HighLevel:         2.1,
			UndervoltageLevel: 0.3,
			LockInDeg:         2.0,
			LockOutDeg:        35.0,
			CalibFilterFreq:   0.1,
			CalibDriftRaw:     0.01 / hallGainBLow,
			Variants: Variants{
				Low:       VariantConfig{NaturalFreq: 9.0, HallGainB: hallGainBLow, HallGainA: -5.81337e-5, CircleAcc: 0.013},
				High:      VariantConfig{NaturalFreq: 5.0, HallGainB: -5.92493e-5, HallGainA: 5.83887e-5, CircleAcc: 0.01},
				VeryShort: VariantConfig{NaturalFreq: 15.0, HallGainB: hallGainBLow, HallGainA: -5.81337e-5, CircleAcc: 0.01},
			},
		},
		Path: PathConfig{
			CircleTurns:    12,
			CircleRadius:   0.03,
			LissajousTurns: 2,
			WaitAfterMove:  1.0,
			Sequence:       SequenceFast,
		},
		Supervisor: SupervisorConfig{
			RegulatingDelay:        0.2,
			CalibrationDelay:       8.0,
			StartupResetDelay:      1.0,
			MotTempSwitchThreshold: 150,
			AutoStart:              true,
		},
		Telemetry: TelemetryConfig{
			Topic:      "beambalancer/telemetry",
			ClientID:   "beambalancer",
			PublishHz:  20,
			QoS:        0,
			TimeoutSec: 2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = multierr.Append(errs, errors.Errorf("%s must be positive, got %v", name, v))
		}
	}
	positive("sampling_frequency", c.SamplingFrequency)
	positive("gravity", c.Gravity)
	positive("geometry.upper_arm", c.Geometry.UpperArm)
	positive("geometry.forearm", c.Geometry.Forearm)
	positive("geometry.motor_distance", c.Geometry.MotorDistance)
	positive("joints.taxi_speed", c.Joints.TaxiSpeed)
	positive("controller.max_acc_out", c.Controller.MaxAccOut)
	positive("controller.integrator_limit_deg", c.Controller.IntegratorLimitDeg)
	positive("beam.lock_in_deg", c.Beam.LockInDeg)
	positive("beam.calib_filter_freq", c.Beam.CalibFilterFreq)
	positive("beam.calib_drift_raw", c.Beam.CalibDriftRaw)
	positive("path.circle_radius", c.Path.CircleRadius)
	positive("path.circle_turns", c.Path.CircleTurns)
	positive("path.lissajous_turns", c.Path.LissajousTurns)
	positive("supervisor.calibration_delay", c.Supervisor.CalibrationDelay)
	for name, v := range map[string]VariantConfig{
		"low":        c.Beam.Variants.Low,
		"high":       c.Beam.Variants.High,
		"very_short": c.Beam.Variants.VeryShort,
	} {
		positive("beam.variants."+name+".natural_freq", v.NaturalFreq)
		if v.HallGainA == 0 || v.HallGainB == 0 {
			errs = multierr.Append(errs, errors.Errorf("beam.variants.%s hall gains must be non-zero", name))
		}
	}

	if c.Joints.Phi0MinDeg >= c.Joints.Phi0MaxDeg {
		errs = multierr.Append(errs, errors.New("joints.phi0_min_deg must be below phi0_max_deg"))
	}
	if c.Joints.Phi1MinDeg >= c.Joints.Phi1MaxDeg {
		errs = multierr.Append(errs, errors.New("joints.phi1_min_deg must be below phi1_max_deg"))
	}
	if c.Joints.DeltaMinDeg >= c.Joints.DeltaMaxDeg {
		errs = multierr.Append(errs, errors.New("joints.delta_min_deg must be below delta_max_deg"))
	}
	if c.Beam.LockOutDeg <= c.Beam.LockInDeg {
		errs = multierr.Append(errs, errors.New("beam.lock_out_deg must exceed lock_in_deg"))
	}
	if c.Beam.LowLevel >= c.Beam.HighLevel {
		errs = multierr.Append(errs, errors.New("beam.low_level must be below high_level"))
	}
	if c.Beam.UndervoltageLevel > c.Beam.LowLevel {
		errs = multierr.Append(errs, errors.New("beam.undervoltage_level must not exceed low_level"))
	}
	if reach := c.Geometry.UpperArm + c.Geometry.Forearm; c.Geometry.MotorDistance >= reach {
		errs = multierr.Append(errs, errors.New("geometry.motor_distance must be below the arm reach"))
	}
	switch c.Path.Sequence {
	case SequenceFast, SequenceStandard:
	default:
		errs = multierr.Append(errs, errors.Errorf("path.sequence must be %q or %q, got %q",
			SequenceFast, SequenceStandard, c.Path.Sequence))
	}
	if c.Log.Level != "" {
		if _, err := logging.LevelFromString(c.Log.Level); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "log.level"))
		}
	}
	for _, lp := range c.Log.Patterns {
		if err := lp.Validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "log.patterns"))
		}
	}
	return errs
}

// SamplingTime returns the tick period in seconds.
func (c *Config) SamplingTime() float64 {
	return 1 / c.SamplingFrequency
}

// Ticks converts a duration in seconds to a whole number of ticks.
func (c *Config) Ticks(seconds float64) int {
	return int(seconds * c.SamplingFrequency)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
