// Package listener consumes commands from asynchronous sources and
// applies them through the shared command pipeline.
//
// Two ingress paths are supported:
//
//   - Subscription listener: subscribes to the global command channel on
//     the store's pub/sub bus and re-applies every command message it
//     receives. This is the path exercised by external publishers that
//     talk to the store directly.
//
//   - MQTT bridge (optional): subscribes to a broker command topic and
//     applies payloads the same way, publishing the outcome to a
//     per-device acknowledgement topic.
//
// Both paths decode the same CommandMessage envelope and share the
// pipeline with the HTTP API, so a command behaves identically no
// matter how it arrives.
//
// The bus carries more than commands: applied-command events are
// published to the same global channel. Payloads without a command
// object are dropped quietly, which keeps the listener from re-applying
// its own event traffic.
package listener
