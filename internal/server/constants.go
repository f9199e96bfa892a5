// Package server wires the WebSocket realtime endpoint and REST
// introspection routes into one HTTP handler.
package server

// RealtimePath is the single WebSocket endpoint the gateway serves,
// matching the wire protocol's bidirectional JSON event channel.
const RealtimePath = "/api-ws/v1/realtime"

const serviceName = "Qwen3-ASR-Realtime Gateway"
const serviceVersion = "1.0.0"
