package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"go.viam.com/beambalancer/logging"
)

// Tickable is anything the loop can drive once per period.
type Tickable interface {
	Tick(ctx context.Context) error
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	Frequency float64 `json:"frequency"`
}

// Loop calls a Tickable at a fixed rate on a background goroutine. It stands in for the real-time
// scheduler when the kernel runs on a host. A tick that takes longer than the period is counted as
// an overrun; the ticker drops the missed instants rather than queueing them.
type Loop struct {
	cfg    LoopConfig
	logger logging.Logger
	clock  clock.Clock
	target Tickable
	dt     time.Duration

	ticks    atomic.Uint64
	overruns atomic.Uint64
	failures atomic.Uint64

	mu                      sync.Mutex
	running                 bool
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewLoop constructs a loop for target. A nil clock uses the wall clock.
func NewLoop(logger logging.Logger, cfg LoopConfig, clk clock.Clock, target Tickable) (*Loop, error) {
	if !(cfg.Frequency > 0) {
		return nil, errors.Errorf("loop frequency must be positive, got %v", cfg.Frequency)
	}
	if target == nil {
		return nil, errors.New("loop needs something to tick")
	}
	if clk == nil {
		clk = clock.New()
	}
	dt := time.Duration(float64(time.Second) / cfg.Frequency)
	if dt <= 0 {
		return nil, errors.Errorf("loop frequency %v is too high", cfg.Frequency)
	}
	return &Loop{
		cfg:    cfg,
		logger: logger,
		clock:  clk,
		target: target,
		dt:     dt,
	}, nil
}

// Start starts ticking in the background.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("loop already running")
	}
	l.logger.Infof("running loop at %1.1f Hz (%v)", l.cfg.Frequency, l.dt)

	cancelCtx, cancel := context.WithCancel(context.Background())
	ticker := l.clock.Ticker(l.dt)
	waitCh := make(chan struct{})
	l.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		defer ticker.Stop()
		close(waitCh)
		for {
			select {
			case <-cancelCtx.Done():
				return
			case <-ticker.C:
				l.tickOnce(cancelCtx)
			}
		}
	}, l.activeBackgroundWorkers.Done)
	<-waitCh
	l.cancel = cancel
	l.running = true
	return nil
}

// Stop stops the loop and waits for the running tick to return.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.logger.Debug("closing loop")
	l.cancel()
	l.activeBackgroundWorkers.Wait()
	l.running = false
}

// RunTicks calls the target n times back to back on the caller's goroutine, without waiting for
// the period. It is used for simulation faster than real time.
func (l *Loop) RunTicks(ctx context.Context, n int) error {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if running {
		return errors.New("cannot run ticks while the loop is running")
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.tickOnce(ctx)
	}
	return nil
}

func (l *Loop) tickOnce(ctx context.Context) {
	start := l.clock.Now()
	if err := l.target.Tick(ctx); err != nil {
		if l.failures.Inc() == 1 {
			l.logger.Warnw("tick failed", "error", err)
		} else {
			l.logger.Debugw("tick failed", "error", err)
		}
	}
	l.ticks.Inc()
	if elapsed := l.clock.Since(start); elapsed > l.dt {
		if l.overruns.Inc() == 1 {
			l.logger.Warnw("tick overran its period", "elapsed", elapsed, "period", l.dt)
		}
	}
}

// Frequency returns the loop frequency in Hz.
func (l *Loop) Frequency() float64 {
	return l.cfg.Frequency
}

// Ticks returns how many ticks have run.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Overruns returns how many ticks took longer than the period.
func (l *Loop) Overruns() uint64 {
	return l.overruns.Load()
}

// Failures returns how many ticks returned an error.
func (l *Loop) Failures() uint64 {
	return l.failures.Load()
}
