package queue

import (
	"encoding/json"
	"fmt"
)

// MessageVersion is the payload version producers write.
const MessageVersion = 1

// Message asks a worker to process one job.
type Message struct {
	JobID      string `json:"jobId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt,omitempty"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message, stamping the
// current version when unset.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload. Versions newer than this build
// understands are rejected; a missing version is read as version 1.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	if msg.Version > MessageVersion {
		return Message{}, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
