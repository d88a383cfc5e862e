package chat

import "time"

// Message senders.
const (
	TypeUser = "user"
	TypeAI   = "ai"
)

// Message persists a single conversation turn. Messages are immutable once
// written; ordering is by Timestamp ascending.
type Message struct {
	MessageID string    `bson:"message_id" json:"message_id"`
	SessionID string    `bson:"session_id" json:"session_id"`
	Type      string    `bson:"type" json:"type"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
