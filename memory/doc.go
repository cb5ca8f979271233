// Package memory provides implementations of core.MemoryStore, the
// namespaced key/value state with atomic counters shared by agents.
// The in-memory store here suits tests and single-process deployments;
// the sqlite subpackage provides a durable variant.
package memory
