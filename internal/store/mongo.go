package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ragchat/internal/model/chat"
	"ragchat/internal/model/user"
)

// MongoStore backs the users, sessions and messages collections with MongoDB.
// The underlying client is pooled and safe for concurrent use.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	sessions *mongo.Collection
	messages *mongo.Collection
}

// NewMongoStore connects, pings and bootstraps indexes.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:   client,
		users:    db.Collection("users"),
		sessions: db.Collection("sessions"),
		messages: db.Collection("messages"),
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}

// Close releases the connection pool.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// --- users ---

func (s *MongoStore) InsertUser(ctx context.Context, u user.User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, userID string) (user.User, error) {
	var u user.User
	err := s.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (s *MongoStore) TouchLastActive(ctx context.Context, userID string, at time.Time) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"last_active": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to update last_active: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- sessions ---

func (s *MongoStore) InsertSession(ctx context.Context, sess chat.Session) error {
	if _, err := s.sessions.InsertOne(ctx, sess); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *MongoStore) FindSessionByID(ctx context.Context, sessionID string) (chat.Session, error) {
	var sess chat.Session
	err := s.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&sess)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return chat.Session{}, ErrNotFound
		}
		return chat.Session{}, fmt.Errorf("failed to find session: %w", err)
	}
	return sess, nil
}

func (s *MongoStore) UpsertActiveSession(ctx context.Context, candidate chat.Session) (chat.Session, bool, error) {
	filter := bson.M{"user_id": candidate.UserID, "is_active": true}
	update := bson.M{"$setOnInsert": candidate}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var sess chat.Session
	if err := s.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sess); err != nil {
		return chat.Session{}, false, fmt.Errorf("failed to upsert active session: %w", err)
	}
	return sess, sess.SessionID == candidate.SessionID, nil
}

func (s *MongoStore) ListActiveSessions(ctx context.Context, userID string, limit int, byUpdatedDesc bool) ([]chat.Session, error) {
	opts := options.Find().SetLimit(int64(limit))
	if byUpdatedDesc {
		opts = opts.SetSort(bson.D{{Key: "updated_at", Value: -1}})
	}

	cursor, err := s.sessions.Find(ctx, bson.M{"user_id": userID, "is_active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var sessions []chat.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (s *MongoStore) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	res, err := s.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$set": bson.M{"updated_at": at},
			"$inc": bson.M{"message_count": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update session metadata: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ResetSession(ctx context.Context, sessionID, title string, at time.Time) error {
	res, err := s.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"title":         title,
			"updated_at":    at,
			"message_count": 0,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ReassignSessions(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	res, err := s.sessions.UpdateMany(ctx,
		bson.M{"user_id": fromUserID},
		bson.M{"$set": bson.M{"user_id": toUserID}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign sessions: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.sessions.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// --- messages ---

func (s *MongoStore) InsertMessage(ctx context.Context, m chat.Message) error {
	if _, err := s.messages.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *MongoStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.messages.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	var messages []chat.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

func (s *MongoStore) DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.messages.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return res.DeletedCount, nil
}
