package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// MongoConfig names the collections the intake bot reads from and discovery writes to.
type MongoConfig struct {
	URI             string
	ReadDatabase    string
	ReadCollection  string
	WriteDatabase   string
	WriteCollection string
}

// MongoStore reads sessions from the intake collection and keeps discovery output in the write collection.
type MongoStore struct {
	client *mongo.Client
	read   collection
	write  collection
	logger *zap.Logger
}

// Connect opens a client for cfg.URI.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewMongo(client *mongo.Client, cfg MongoConfig, log *zap.Logger) *MongoStore {
	return &MongoStore{
		client: client,
		read:   client.Database(cfg.ReadDatabase).Collection(cfg.ReadCollection),
		write:  client.Database(cfg.WriteDatabase).Collection(cfg.WriteCollection),
		logger: logger.OrNop(log),
	}
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func sessionFilter(key Key) bson.M {
	return bson.M{"session_uuid": key.SessionUUID, "user_id": key.UserID}
}

func (s *MongoStore) LoadSession(ctx context.Context, key Key) (*SessionData, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var doc sessionDocument
	if err := s.read.FindOne(ctx, sessionFilter(key)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	session, err := doc.session(key.ChatID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("session loaded",
		zap.String("session", key.String()),
		zap.Int("messages", len(session.Messages)),
		zap.Int("profile_length", len(session.CompanyProfile)),
	)
	return session, nil
}

func (s *MongoStore) SaveOutput(ctx context.Context, key Key, output []ApplicationOutput) error {
	if err := key.Validate(); err != nil {
		return err
	}

	_, err := s.write.UpdateOne(ctx,
		sessionFilter(key),
		bson.M{"$set": bson.M{"chats." + key.ChatID + ".output": output}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save output %s: %w", key, err)
	}
	s.logger.Info("discovery output saved", zap.String("session", key.String()), zap.Int("applications", len(output)))
	return nil
}

func (s *MongoStore) LoadCandidates(ctx context.Context, key Key) ([]candidates.Candidate, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	filter := sessionFilter(key)
	filter["chats."+key.ChatID] = bson.M{"$exists": true}

	var doc sessionDocument
	if err := s.write.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("discovery output %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("load candidates %s: %w", key, err)
	}

	list := flatten(doc.Chats[key.ChatID].Output)
	s.logger.Info("candidates loaded", zap.String("session", key.String()), zap.Int("candidates", len(list)))
	return list, nil
}
