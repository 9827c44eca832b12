package supervisor

import (
	"strings"

	"github.com/pkg/errors"
)

// State is the top level phase of the machine. The values are part of the telemetry contract.
type State int

// Supervisor states.
const (
	StateIdle State = iota
	StateStartup
	StateEnabling
	StateMoveHomePos
	StateBeamDetection
	StateRegulatingDelay
	StateCalibration
	StateMoveSequence
	StateMovePhiZero
	StateUncouple
	StateMoveDynamic
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateStartup:         "startup",
	StateEnabling:        "enabling",
	StateMoveHomePos:     "move_home_pos",
	StateBeamDetection:   "beam_detection",
	StateRegulatingDelay: "regulating_delay",
	StateCalibration:     "calibration",
	StateMoveSequence:    "move_sequence",
	StateMovePhiZero:     "move_phi_zero",
	StateUncouple:        "uncouple",
	StateMoveDynamic:     "move_dynamic",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Command is the operator command read once per tick. The values are part of the command
// register contract.
type Command int

// Operator commands.
const (
	CommandNone Command = iota
	CommandStart
	CommandStop
	CommandDisable
	CommandMoveDynamic
	CommandMoveToPhiZero
	CommandResetWarning
	CommandResetError
)

var commandNames = map[Command]string{
	CommandNone:          "none",
	CommandStart:         "start",
	CommandStop:          "stop",
	CommandDisable:       "disable",
	CommandMoveDynamic:   "move_dynamic",
	CommandMoveToPhiZero: "move_to_phi_zero",
	CommandResetWarning:  "reset_warning",
	CommandResetError:    "reset_error",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCommand returns the command with the given name.
func ParseCommand(name string) (Command, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for c, n := range commandNames {
		if n == want {
			return c, nil
		}
	}
	return CommandNone, errors.Errorf("unknown command %q", name)
}
