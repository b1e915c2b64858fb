// Package websocket streams per-execution log events to clients over
// WebSocket connections, closing the stream at the terminal event.
package websocket
