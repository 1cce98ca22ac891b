// Package mqtt provides MQTT client connectivity for the optional
// command ingress.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The registry treats MQTT as a secondary command source alongside the
// store's pub/sub channel. Field devices or gateways publish command
// payloads to a well-known topic, and the listener bridge applies them
// through the same pipeline the HTTP API uses.
//
//	Field gateway ─▶ MQTT Broker ─▶ command bridge ─▶ pipeline
//
// # Security Considerations
//
//   - TLS should be enabled for anything beyond local development
//   - Credentials are validated against broker ACL
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(cfg.MQTT.CommandTopic, 1,
//	    func(topic string, payload []byte) error {
//	        // decode and apply
//	        return nil
//	    })
package mqtt
