// Package domain holds the core types of the execution orchestration
// model: executions, plans, steps, validation results, correction
// actions, log events and the error taxonomy shared by all layers.
package domain
