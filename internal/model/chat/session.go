package chat

import "time"

// Session is one conversation thread. Anonymous visitors hold at most one
// active session; registered users may hold many.
type Session struct {
	SessionID    string    `bson:"session_id" json:"session_id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	Title        string    `bson:"title" json:"title"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
	MessageCount int       `bson:"message_count" json:"message_count"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
}

// Summary is the session list representation served to the frontend.
type Summary struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}
