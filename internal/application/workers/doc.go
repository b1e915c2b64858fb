// Package workers implements the worker pool that consumes the
// dispatch queue and drives executions, plus a health monitor for the
// pool itself. Concurrent executions run on independent workers; the
// lease layer guarantees no two workers advance the same execution.
package workers
