package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/conversation"
)

var ErrNotFound = errors.New("session not found")

// Key identifies one chat of one intake session.
type Key struct {
	UserID      string `json:"user_id"`
	ChatID      string `json:"chat_id"`
	SessionUUID string `json:"session_uuid"`
}

func (k Key) Validate() error {
	if strings.TrimSpace(k.UserID) == "" || strings.TrimSpace(k.ChatID) == "" || strings.TrimSpace(k.SessionUUID) == "" {
		return errors.New("user id, chat id and session uuid are required")
	}
	if strings.ContainsAny(k.ChatID, ".$") {
		return fmt.Errorf("invalid chat id %q", k.ChatID)
	}
	return nil
}

func (k Key) String() string {
	return k.UserID + "/" + k.SessionUUID + "/" + k.ChatID
}

// SessionData is what the intake bot stored for a chat.
type SessionData struct {
	Messages       []conversation.Message
	CompanyProfile string
	CompanyWebsite string
}

// Conversation pairs the stored messages into question/answer entries.
func (s *SessionData) Conversation() conversation.Log {
	return conversation.FromMessages(s.Messages)
}

// ApplicationOutput is the discovery result of one application.
type ApplicationOutput struct {
	Application string                 `json:"application" bson:"application"`
	SearchTerms []string               `json:"search_terms" bson:"search_terms"`
	Status      candidates.Status      `json:"status" bson:"status"`
	Companies   []candidates.Candidate `json:"companies" bson:"companies"`
}

type Store interface {
	LoadSession(ctx context.Context, key Key) (*SessionData, error)
	SaveOutput(ctx context.Context, key Key, output []ApplicationOutput) error
	LoadCandidates(ctx context.Context, key Key) ([]candidates.Candidate, error)
}

type chatDocument struct {
	Messages       []conversation.Message `json:"messages,omitempty" bson:"messages,omitempty"`
	CompanyProfile string                 `json:"company_profile,omitempty" bson:"company_profile,omitempty"`
	CompanyWebsite string                 `json:"company_website,omitempty" bson:"company_website,omitempty"`
	Output         []ApplicationOutput    `json:"output,omitempty" bson:"output,omitempty"`
}

type sessionDocument struct {
	UserID      string                  `json:"user_id" bson:"user_id"`
	SessionUUID string                  `json:"session_uuid" bson:"session_uuid"`
	Chats       map[string]chatDocument `json:"chats" bson:"chats"`
}

func (d *sessionDocument) session(chatID string) (*SessionData, error) {
	chat, ok := d.Chats[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	return &SessionData{
		Messages:       chat.Messages,
		CompanyProfile: chat.CompanyProfile,
		CompanyWebsite: chat.CompanyWebsite,
	}, nil
}

// flatten returns the companies of every application in output order. A
// company found under several applications is kept once, at its first position.
func flatten(output []ApplicationOutput) []candidates.Candidate {
	var list []candidates.Candidate
	for _, app := range output {
		list = append(list, app.Companies...)
	}
	return candidates.Dedupe(list)
}
