package supervisor

import (
	"context"

	"go.uber.org/atomic"
)

// CommandSource is the command register shared by operators and the tick. Operators Set a
// command; the tick acknowledges it by replacing it with what the supervisor left in the
// register, unless an operator wrote a newer command in the meantime.
type CommandSource struct {
	cmd atomic.Int32
}

// NewCommandSource returns a register holding CommandNone.
func NewCommandSource() *CommandSource {
	return &CommandSource{}
}

// Set writes a command.
func (cs *CommandSource) Set(cmd Command) {
	cs.cmd.Store(int32(cmd))
}

// Load reads the current command.
func (cs *CommandSource) Load() Command {
	return Command(cs.cmd.Load())
}

func (cs *CommandSource) acknowledge(seen, left Command) {
	cs.cmd.CompareAndSwap(int32(seen), int32(left))
}

// Runner adapts a Supervisor to control.Tickable. The after hooks run once per tick following
// the supervisor, e.g. to advance a simulated plant.
type Runner struct {
	sup      *Supervisor
	commands *CommandSource
	after    []func()
}

// NewRunner returns a runner reading commands from commands.
func NewRunner(sup *Supervisor, commands *CommandSource, after ...func()) *Runner {
	return &Runner{sup: sup, commands: commands, after: after}
}

// Tick runs one supervisor tick.
func (r *Runner) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seen := r.commands.Load()
	if left := r.sup.Tick(seen); left != seen {
		r.commands.acknowledge(seen, left)
	}
	for _, f := range r.after {
		f()
	}
	return nil
}

// Supervisor returns the supervisor being ticked.
func (r *Runner) Supervisor() *Supervisor {
	return r.sup
}
