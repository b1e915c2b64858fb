// Package events provides event log sink adapters: Redis Streams for
// durable per-execution log streams and an in-memory variant for
// tests.
package events
