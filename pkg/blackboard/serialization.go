package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). The metadata map is
// JSON-encoded into a single hash field; scalar fields stay individually
// queryable.

// MessageToHash converts a Message to a Redis hash format.
func MessageToHash(m *Message) (map[string]interface{}, error) {
	metadataJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	hash := map[string]interface{}{
		"task_id":       m.TaskID,
		"worker_id":     m.WorkerID,
		"msg_type":      string(m.Type),
		"content":       m.Content,
		"metadata":      string(metadataJSON),
		"seq":           m.Seq,
		"created_at_ms": m.CreatedAtMs,
	}

	return hash, nil
}

// HashToMessage converts a Redis hash to a Message.
func HashToMessage(hash map[string]string) (*Message, error) {
	seq, err := strconv.ParseInt(hash["seq"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seq field: %w", err)
	}

	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	var metadata map[string]string
	if metadataJSON := hash["metadata"]; metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	msg := &Message{
		TaskID:      hash["task_id"],
		WorkerID:    hash["worker_id"],
		Type:        MessageType(hash["msg_type"]),
		Content:     hash["content"],
		Metadata:    metadata,
		Seq:         seq,
		CreatedAtMs: createdAtMs,
	}

	return msg, nil
}
