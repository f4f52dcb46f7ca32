package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spigell/leadscout/internal/artifacts"
	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/logger"
	"go.uber.org/zap"
)

// FileStore keeps one JSON document per session under dir. It is meant for
// local runs without a database.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewFile(dir string, log *zap.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger.OrNop(log)}
}

func (s *FileStore) path(key Key) string {
	name := artifacts.SanitizeName(key.UserID) + "_" + artifacts.SanitizeName(key.SessionUUID) + ".json"
	return filepath.Join(s.dir, name)
}

func (s *FileStore) read(key Key) (*sessionDocument, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("session %s: %w", key, ErrNotFound)
		}
		return nil, err
	}

	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &doc, nil
}

func (s *FileStore) LoadSession(_ context.Context, key Key) (*SessionData, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(key)
	if err != nil {
		return nil, err
	}
	return doc.session(key.ChatID)
}

func (s *FileStore) SaveOutput(_ context.Context, key Key, output []ApplicationOutput) error {
	if err := key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(key)
	if errors.Is(err, ErrNotFound) {
		doc = &sessionDocument{UserID: key.UserID, SessionUUID: key.SessionUUID}
	} else if err != nil {
		return err
	}
	if doc.Chats == nil {
		doc.Chats = make(map[string]chatDocument)
	}

	chat := doc.Chats[key.ChatID]
	chat.Output = output
	doc.Chats[key.ChatID] = chat

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", key, err)
	}

	s.logger.Info("discovery output saved", zap.String("session", key.String()), zap.String("path", s.path(key)))
	return nil
}

func (s *FileStore) LoadCandidates(_ context.Context, key Key) ([]candidates.Candidate, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(key)
	if err != nil {
		return nil, err
	}
	chat, ok := doc.Chats[key.ChatID]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", key.ChatID, ErrNotFound)
	}
	return flatten(chat.Output), nil
}
