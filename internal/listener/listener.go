package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Gidon31/IOTdeviceSim/internal/device"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/config"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/logging"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/redis"
)

// Applier is the command-application dependency. Satisfied by
// *device.Pipeline.
type Applier interface {
	ApplyCommand(ctx context.Context, deviceID string, raw device.Command) (device.Result, error)
}

// Subscription is a live pub/sub subscription. Satisfied by
// *redis.Subscription.
type Subscription interface {
	Messages() <-chan redis.Message
	Close() error
}

// SubscribeFunc opens a subscription on the named channel.
type SubscribeFunc func(ctx context.Context, channel string) (Subscription, error)

// CommandMessage is the envelope commands arrive in on the bus and on
// the MQTT command topic.
type CommandMessage struct {
	DeviceID string         `json:"device_id"`
	Command  device.Command `json:"command"`
}

// Deps bundles the listener's dependencies.
type Deps struct {
	Config    config.ListenerConfig
	Logger    *logging.Logger
	Subscribe SubscribeFunc
	Pipeline  Applier
}

// Listener subscribes to the global command channel and re-applies
// inbound commands through the pipeline.
//
// Messages are handed from the subscription loop to a bounded worker
// pool. When the pool's queue is full the message is dropped with a
// warning rather than blocking the subscription loop.
type Listener struct {
	cfg       config.ListenerConfig
	logger    *logging.Logger
	subscribe SubscribeFunc
	pipeline  Applier

	sub    Subscription
	queue  chan redis.Message
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// New creates a Listener from its dependencies. Call Start to begin
// consuming.
func New(deps Deps) *Listener {
	return &Listener{
		cfg:       deps.Config,
		logger:    deps.Logger.With("component", "command_listener"),
		subscribe: deps.Subscribe,
		pipeline:  deps.Pipeline,
	}
}

// Start opens the subscription and launches the worker pool.
//
// Start returns an error only when the subscription itself cannot be
// established. Once running, individual message failures are logged
// and consumption continues.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return errors.New("listener: already started")
	}

	runCtx, cancel := context.WithCancel(context.Background())

	sub, err := l.subscribe(ctx, l.cfg.Channel)
	if err != nil {
		cancel()
		return fmt.Errorf("listener: subscribe to %q: %w", l.cfg.Channel, err)
	}

	l.sub = sub
	l.cancel = cancel
	l.queue = make(chan redis.Message, l.cfg.QueueSize)
	l.started = true

	for i := 0; i < l.cfg.Workers; i++ {
		l.wg.Add(1)
		go l.worker(runCtx)
	}

	l.wg.Add(1)
	go l.pump()

	l.logger.Info("command listener started",
		"channel", l.cfg.Channel,
		"workers", l.cfg.Workers,
		"queue_size", l.cfg.QueueSize,
	)

	return nil
}

// pump moves messages from the subscription into the worker queue.
// It exits when the subscription's message channel closes, then closes
// the queue so workers drain and stop.
func (l *Listener) pump() {
	defer l.wg.Done()
	defer close(l.queue)

	for msg := range l.sub.Messages() {
		select {
		case l.queue <- msg:
		default:
			l.logger.Warn("command queue full, dropping message",
				"channel", msg.Channel,
			)
		}
	}
}

// worker applies queued messages until the queue closes.
func (l *Listener) worker(ctx context.Context) {
	defer l.wg.Done()

	for msg := range l.queue {
		l.process(ctx, msg)
	}
}

// process decodes and applies a single bus message.
//
// The bus is shared with applied-command events, so payloads without a
// command object are expected traffic and dropped at debug level.
// Domain errors (unknown device, nothing left after sanitising) are
// no-ops for the bus path: logged and skipped, never fatal.
func (l *Listener) process(ctx context.Context, msg redis.Message) {
	var cm CommandMessage
	if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
		l.logger.Warn("dropping undecodable bus payload",
			"channel", msg.Channel,
			"error", err,
		)
		return
	}

	if cm.DeviceID == "" {
		l.logger.Warn("dropping bus payload without device_id",
			"channel", msg.Channel,
		)
		return
	}

	if len(cm.Command) == 0 {
		l.logger.Debug("ignoring bus payload without command",
			"channel", msg.Channel,
			"device_id", cm.DeviceID,
		)
		return
	}

	result, err := l.pipeline.ApplyCommand(ctx, cm.DeviceID, cm.Command)
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		l.logger.Warn("bus command targets unknown device",
			"device_id", cm.DeviceID,
		)
	case errors.Is(err, device.ErrEmptyCommand):
		l.logger.Info("bus command had no applicable fields",
			"device_id", cm.DeviceID,
		)
	case err != nil:
		l.logger.Error("bus command failed",
			"device_id", cm.DeviceID,
			"error", err,
		)
	default:
		l.logger.Info("bus command applied",
			"device_id", cm.DeviceID,
			"status", result.Status,
			"message", result.Message,
		)
	}
}

// Close stops the worker pool and closes the subscription. Safe to call
// on a listener that never started.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil
	}

	// Closing the subscription ends the pump, which closes the queue
	// and lets workers drain in-flight messages before exiting.
	err := l.sub.Close()
	l.wg.Wait()
	l.cancel()
	l.started = false

	l.logger.Info("command listener stopped")
	return err
}
