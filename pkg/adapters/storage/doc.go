// Package storage provides state store adapters: Redis for durable
// multi-node deployments and an in-memory variant for tests and
// single-node use.
package storage
