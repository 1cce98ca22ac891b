package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Gidon31/IOTdeviceSim/internal/device"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/config"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/logging"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/mqtt"
)

// ackStatusError marks acknowledgements for commands that could not be
// applied. Successful acks carry the pipeline's own status.
const ackStatusError = "error"

// Broker is the MQTT surface the bridge needs. Satisfied by
// *mqtt.Client.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Bridge applies commands arriving on an MQTT topic and publishes the
// outcome to a per-device acknowledgement topic.
//
// Payloads use the same CommandMessage envelope as the bus listener.
type Bridge struct {
	cfg      config.MQTTConfig
	logger   *logging.Logger
	broker   Broker
	pipeline Applier

	ctx context.Context
}

// NewBridge creates a Bridge from its dependencies. Call Start to begin
// consuming.
func NewBridge(cfg config.MQTTConfig, logger *logging.Logger, broker Broker, pipeline Applier) *Bridge {
	return &Bridge{
		cfg:      cfg,
		logger:   logger.With("component", "mqtt_bridge"),
		broker:   broker,
		pipeline: pipeline,
	}
}

// Start subscribes to the command topic. ctx bounds the lifetime of
// command applications triggered by inbound messages.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx = ctx

	if err := b.broker.Subscribe(b.cfg.CommandTopic, byte(b.cfg.QoS), b.handleMessage); err != nil {
		return fmt.Errorf("listener: subscribe to mqtt topic %q: %w", b.cfg.CommandTopic, err)
	}

	b.logger.Info("mqtt command bridge started",
		"command_topic", b.cfg.CommandTopic,
		"ack_topic_prefix", b.cfg.AckTopicPrefix,
	)

	return nil
}

// handleMessage decodes and applies a single MQTT command payload.
//
// Like the bus path, domain errors are tolerated: the outcome goes out
// as an error acknowledgement instead of failing the handler.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	var cm CommandMessage
	if err := json.Unmarshal(payload, &cm); err != nil {
		return fmt.Errorf("listener: undecodable mqtt payload on %s: %w", topic, err)
	}

	if cm.DeviceID == "" {
		return fmt.Errorf("listener: mqtt payload on %s has no device_id", topic)
	}

	result, err := b.pipeline.ApplyCommand(b.ctx, cm.DeviceID, cm.Command)
	switch {
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, device.ErrEmptyCommand):
		result = device.Result{
			DeviceID: cm.DeviceID,
			Status:   ackStatusError,
			Message:  err.Error(),
		}
	case err != nil:
		b.publishAck(cm.DeviceID, device.Result{
			DeviceID: cm.DeviceID,
			Status:   ackStatusError,
			Message:  err.Error(),
		})
		return fmt.Errorf("listener: mqtt command for %s: %w", cm.DeviceID, err)
	}

	b.publishAck(cm.DeviceID, result)
	return nil
}

// publishAck sends the outcome to the device's acknowledgement topic.
// Ack delivery is best effort: a failed publish is logged, not retried.
func (b *Bridge) publishAck(deviceID string, result device.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		b.logger.Error("failed to encode mqtt ack",
			"device_id", deviceID,
			"error", err,
		)
		return
	}

	topic := b.cfg.AckTopicPrefix + "/" + deviceID
	if err := b.broker.Publish(topic, payload, byte(b.cfg.QoS), false); err != nil {
		b.logger.Warn("failed to publish mqtt ack",
			"topic", topic,
			"error", err,
		)
	}
}
