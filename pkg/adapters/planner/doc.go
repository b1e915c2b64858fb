// Package planner provides plan generator adapters: an
// Anthropic-backed planner and a deterministic fixture planner used
// in tests and demo mode.
package planner
