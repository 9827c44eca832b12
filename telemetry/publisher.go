package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/logging"
)

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Message is the payload of one published snapshot.
type Message struct {
	Session string    `json:"session"`
	Sent    time.Time `json:"sent"`
	Frame
}

// Publisher polls a Source at a fixed rate and publishes each snapshot as JSON to an MQTT topic.
// A snapshot is only sent when the tick counter has moved.
type Publisher struct {
	cfg     config.TelemetryConfig
	logger  logging.Logger
	client  Client
	source  Source
	clock   clock.Clock
	session string
	period  time.Duration
	timeout time.Duration

	published atomic.Uint64
	failures  atomic.Uint64
	lastTick  uint64

	mu                      sync.Mutex
	running                 bool
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewPublisher returns a publisher connecting to cfg.Broker through paho.
func NewPublisher(cfg config.TelemetryConfig, source Source, clk clock.Clock, logger logging.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("telemetry broker is not configured")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(time.Duration(cfg.TimeoutSec * float64(time.Second)))
	return NewPublisherWithClient(cfg, mqtt.NewClient(opts), source, clk, logger)
}

// NewPublisherWithClient returns a publisher on an existing client. A nil clock uses the wall
// clock.
func NewPublisherWithClient(
	cfg config.TelemetryConfig,
	client Client,
	source Source,
	clk clock.Clock,
	logger logging.Logger,
) (*Publisher, error) {
	if !(cfg.PublishHz > 0) {
		return nil, errors.Errorf("telemetry publish rate must be positive, got %v", cfg.PublishHz)
	}
	if cfg.Topic == "" {
		return nil, errors.New("telemetry topic is not configured")
	}
	if clk == nil {
		clk = clock.New()
	}
	timeout := time.Duration(cfg.TimeoutSec * float64(time.Second))
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		source:  source,
		clock:   clk,
		session: uuid.NewString(),
		period:  time.Duration(float64(time.Second) / cfg.PublishHz),
		timeout: timeout,
	}, nil
}

// Session returns the id stamped on every message of this publisher.
func (p *Publisher) Session() string {
	return p.session
}

// Start connects to the broker and starts publishing in the background.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("publisher already running")
	}

	token := p.client.Connect()
	if !token.WaitTimeout(p.timeout) {
		return errors.Errorf("timed out connecting to %s", p.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "connecting to %s", p.cfg.Broker)
	}
	p.logger.Infow("publishing telemetry", "broker", p.cfg.Broker, "topic", p.cfg.Topic, "session", p.session)

	cancelCtx, cancel := context.WithCancel(ctx)
	ticker := p.clock.Ticker(p.period)
	waitCh := make(chan struct{})
	p.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		defer ticker.Stop()
		close(waitCh)
		for {
			select {
			case <-cancelCtx.Done():
				return
			case <-ticker.C:
				p.publishOnce()
			}
		}
	}, p.activeBackgroundWorkers.Done)
	<-waitCh
	p.cancel = cancel
	p.running = true
	return nil
}

func (p *Publisher) publishOnce() {
	frame := p.source.Snapshot()
	if frame.Tick == p.lastTick && p.published.Load() > 0 {
		return
	}
	payload, err := json.Marshal(Message{Session: p.session, Sent: p.clock.Now().UTC(), Frame: frame})
	if err != nil {
		p.fail(errors.Wrap(err, "encoding frame"))
		return
	}
	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)
	if !token.WaitTimeout(p.timeout) {
		p.fail(errors.New("publish timed out"))
		return
	}
	if err := token.Error(); err != nil {
		p.fail(err)
		return
	}
	p.lastTick = frame.Tick
	p.published.Inc()
}

func (p *Publisher) fail(err error) {
	if p.failures.Inc() == 1 {
		p.logger.Warnw("publishing telemetry failed", "error", err)
		return
	}
	p.logger.Debugw("publishing telemetry failed", "error", err)
}

// Published returns the number of messages sent.
func (p *Publisher) Published() uint64 {
	return p.published.Load()
}

// Failures returns the number of messages that could not be sent.
func (p *Publisher) Failures() uint64 {
	return p.failures.Load()
}

// Close stops publishing and disconnects.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.cancel()
	p.activeBackgroundWorkers.Wait()
	p.client.Disconnect(250)
	p.running = false
}
