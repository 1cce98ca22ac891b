package listener

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Gidon31/IOTdeviceSim/internal/device"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/config"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/mqtt"
)

// fakeBroker captures subscriptions and published acks.
type fakeBroker struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
	acks     []brokerAck

	subscribeErr error
	publishErr   error
}

type brokerAck struct {
	topic   string
	payload []byte
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.mu.Lock()
	b.handlers[topic] = handler
	b.mu.Unlock()
	return nil
}

func (b *fakeBroker) Publish(topic string, payload []byte, _ byte, _ bool) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.mu.Lock()
	b.acks = append(b.acks, brokerAck{topic: topic, payload: payload})
	b.mu.Unlock()
	return nil
}

// deliver invokes the registered handler as the paho client would.
func (b *fakeBroker) deliver(t *testing.T, topic, payload string) error {
	t.Helper()
	b.mu.Lock()
	handler, ok := b.handlers[topic]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("no handler registered for topic %q", topic)
	}
	return handler(topic, []byte(payload))
}

func (b *fakeBroker) ack(t *testing.T, i int) brokerAck {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= len(b.acks) {
		t.Fatalf("ack(%d): only %d acks recorded", i, len(b.acks))
	}
	return b.acks[i]
}

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled:        true,
		QoS:            1,
		CommandTopic:   "iotdevicesim/command",
		AckTopicPrefix: "iotdevicesim/ack",
	}
}

func startBridge(t *testing.T, broker *fakeBroker, applier *fakeApplier) *Bridge {
	t.Helper()

	b := NewBridge(testMQTTConfig(), testLogger(), broker, applier)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return b
}

func TestBridgeAppliesAndAcks(t *testing.T) {
	broker := newFakeBroker()
	applier := newFakeApplier()
	startBridge(t, broker, applier)

	err := broker.deliver(t, "iotdevicesim/command",
		`{"device_id":"device1","command":{"status":"off"}}`)
	if err != nil {
		t.Fatalf("deliver() error = %v", err)
	}

	if call := applier.call(t, 0); call.deviceID != "device1" {
		t.Errorf("deviceID = %q, want %q", call.deviceID, "device1")
	}

	ack := broker.ack(t, 0)
	if ack.topic != "iotdevicesim/ack/device1" {
		t.Errorf("ack topic = %q, want %q", ack.topic, "iotdevicesim/ack/device1")
	}

	var result device.Result
	if err := json.Unmarshal(ack.payload, &result); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if result.Status != device.StatusSuccess {
		t.Errorf("ack status = %q, want %q", result.Status, device.StatusSuccess)
	}
}

func TestBridgeAcksDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "unknown device", err: device.ErrDeviceNotFound},
		{name: "empty command", err: device.ErrEmptyCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := newFakeBroker()
			applier := newFakeApplier()
			applier.err = tt.err
			startBridge(t, broker, applier)

			err := broker.deliver(t, "iotdevicesim/command",
				`{"device_id":"ghost","command":{"status":"on"}}`)
			if err != nil {
				t.Fatalf("deliver() error = %v, domain errors should be acked not returned", err)
			}

			var result device.Result
			ack := broker.ack(t, 0)
			if err := json.Unmarshal(ack.payload, &result); err != nil {
				t.Fatalf("unmarshal ack: %v", err)
			}
			if result.Status != ackStatusError {
				t.Errorf("ack status = %q, want %q", result.Status, ackStatusError)
			}
			if result.Message != tt.err.Error() {
				t.Errorf("ack message = %q, want %q", result.Message, tt.err.Error())
			}
		})
	}
}

func TestBridgeReturnsUnexpectedErrors(t *testing.T) {
	broker := newFakeBroker()
	applier := newFakeApplier()
	applier.err = errors.New("store: connection reset")
	startBridge(t, broker, applier)

	err := broker.deliver(t, "iotdevicesim/command",
		`{"device_id":"device1","command":{"status":"on"}}`)
	if err == nil {
		t.Fatal("deliver() expected error for store failure")
	}

	// The failure is still acked so the publisher learns the outcome.
	var result device.Result
	ack := broker.ack(t, 0)
	if err := json.Unmarshal(ack.payload, &result); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if result.Status != ackStatusError {
		t.Errorf("ack status = %q, want %q", result.Status, ackStatusError)
	}
}

func TestBridgeRejectsMalformedPayloads(t *testing.T) {
	broker := newFakeBroker()
	applier := newFakeApplier()
	startBridge(t, broker, applier)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "invalid json", payload: `{not json`},
		{name: "missing device_id", payload: `{"command":{"status":"on"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := broker.deliver(t, "iotdevicesim/command", tt.payload); err == nil {
				t.Fatal("deliver() expected error")
			}
		})
	}

	if n := applier.callCount(); n != 0 {
		t.Errorf("callCount = %d, want 0", n)
	}
}

func TestBridgeStartSubscribeFailure(t *testing.T) {
	broker := newFakeBroker()
	broker.subscribeErr = errors.New("mqtt: client not connected")

	b := NewBridge(testMQTTConfig(), testLogger(), broker, newFakeApplier())
	if err := b.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error when subscribe fails")
	}
}
