package blackboard

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by task ID so that
// multiple tasks can safely coexist on a single Redis server.
//
// Key pattern: swarm:{task_id}:{entity}
// Channel pattern: swarm:{task_id}:events

// MetaKey returns the Redis key for a task's metadata hash.
// Pattern: swarm:{task_id}:meta
func MetaKey(taskID string) string {
	return fmt.Sprintf("swarm:%s:meta", taskID)
}

// SeqKey returns the Redis key for a task's append sequence counter.
// Pattern: swarm:{task_id}:seq
func SeqKey(taskID string) string {
	return fmt.Sprintf("swarm:%s:seq", taskID)
}

// LogKey returns the Redis key for a task's append-only message ID list.
// Pattern: swarm:{task_id}:log
func LogKey(taskID string) string {
	return fmt.Sprintf("swarm:%s:log", taskID)
}

// MessageKey returns the Redis key for a single message hash.
// Pattern: swarm:{task_id}:message:{message_id}
func MessageKey(taskID, messageID string) string {
	return fmt.Sprintf("swarm:%s:message:%s", taskID, messageID)
}

// ClaimsKey returns the Redis key for a task's claim ledger hash.
// Fields are subtask names, values are JSON-encoded ClaimRecords.
// Pattern: swarm:{task_id}:claims
func ClaimsKey(taskID string) string {
	return fmt.Sprintf("swarm:%s:claims", taskID)
}

// EventsChannel returns the Pub/Sub channel name for a task's message
// events. Every append publishes the full message JSON here.
// Pattern: swarm:{task_id}:events
func EventsChannel(taskID string) string {
	return fmt.Sprintf("swarm:%s:events", taskID)
}
