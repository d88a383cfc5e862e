package user

import "time"

// TypeRegistered is the only user_type persisted; anonymous visitors never get
// a User record.
const TypeRegistered = "registered"

// User is a registered account.
type User struct {
	UserID       string    `bson:"user_id" json:"user_id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	UserType     string    `bson:"user_type" json:"user_type"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	LastActive   time.Time `bson:"last_active" json:"last_active"`
}
