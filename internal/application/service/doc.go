// Package service exposes the four operations of the execution core
// (create, get, stream logs, cancel) and owns the dispatch queue the
// worker pool consumes.
package service
