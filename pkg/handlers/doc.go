// Package handlers implements the operation handler registry the
// orchestrator invokes steps against, plus shallow demo operations
// for each supported input type.
package handlers
