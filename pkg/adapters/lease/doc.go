// Package lease provides lease manager adapters enforcing the
// single-writer discipline: Redis SET NX for multi-node deployments
// and an in-process variant for tests.
package lease
