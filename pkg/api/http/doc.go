// Package http implements the REST API surface of the execution core
// on gin: create, list, get and cancel executions, plus health and
// metrics endpoints.
package http
