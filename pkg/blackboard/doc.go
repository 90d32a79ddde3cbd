// Package blackboard implements the shared coordination state for a swarm
// of research workers. The blackboard is an append-only log of typed
// messages (findings, questions, claims, synthesis, done markers) scoped to
// a single task, plus derived read views computed by replaying that log.
//
// Two interchangeable backends are provided: FileBoard persists one JSON
// document per task on local disk and re-reads it on every operation, while
// RedisBoard stores each message as a Redis hash indexed by an append-only
// list and publishes every append to a per-task Pub/Sub channel so that
// subscribers can maintain a live Mirror without polling.
//
// Messages are never mutated or deleted during normal operation; cleanup is
// a separate retention sweep keyed by task age.
package blackboard
