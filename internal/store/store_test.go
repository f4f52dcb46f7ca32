package store

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/leadscout/internal/candidates"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type fakeCollection struct {
	doc     interface{}
	findErr error
	filter  interface{}
	update  interface{}
	upsert  bool
}

func (f *fakeCollection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	f.filter = filter
	if f.doc == nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(f.doc, f.findErr, nil)
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.filter = filter
	f.update = update
	for _, o := range opts {
		if o != nil && o.Upsert != nil {
			f.upsert = *o.Upsert
		}
	}
	return &mongo.UpdateResult{}, nil
}

var testKey = Key{UserID: "u1", ChatID: "42", SessionUUID: "s-1"}

func TestKeyValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     Key
		wantErr bool
	}{
		{name: "complete", key: testKey},
		{name: "missing user", key: Key{ChatID: "1", SessionUUID: "s"}, wantErr: true},
		{name: "blank session", key: Key{UserID: "u", ChatID: "1", SessionUUID: "  "}, wantErr: true},
		{name: "dotted chat", key: Key{UserID: "u", ChatID: "a.b", SessionUUID: "s"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.key.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMongoStoreLoadSession(t *testing.T) {
	t.Parallel()

	read := &fakeCollection{doc: bson.M{
		"user_id":      "u1",
		"session_uuid": "s-1",
		"chats": bson.M{
			"42": bson.M{
				"messages": bson.A{
					bson.M{"role": "assistant", "question": "What do you sell?"},
					bson.M{"role": "user", "answer": "Steel pipes"},
				},
				"company_profile": "We make pipes",
				"company_website": "https://pipes.example",
			},
		},
	}}
	s := &MongoStore{read: read, write: &fakeCollection{}, logger: zap.NewNop()}

	session, err := s.LoadSession(context.Background(), testKey)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if session.CompanyWebsite != "https://pipes.example" || session.CompanyProfile != "We make pipes" {
		t.Fatalf("unexpected profile: %+v", session)
	}
	log := session.Conversation()
	if log.Len() != 1 || log.Entries[0].Answer != "Steel pipes" {
		t.Fatalf("unexpected conversation: %+v", log)
	}

	filter, ok := read.filter.(bson.M)
	if !ok || filter["session_uuid"] != "s-1" || filter["user_id"] != "u1" {
		t.Fatalf("unexpected filter: %#v", read.filter)
	}
}

func TestMongoStoreLoadSessionMissing(t *testing.T) {
	t.Parallel()

	s := &MongoStore{read: &fakeCollection{}, write: &fakeCollection{}, logger: zap.NewNop()}
	if _, err := s.LoadSession(context.Background(), testKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	other := &MongoStore{
		read:   &fakeCollection{doc: bson.M{"chats": bson.M{"7": bson.M{}}}},
		write:  &fakeCollection{},
		logger: zap.NewNop(),
	}
	if _, err := other.LoadSession(context.Background(), testKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing chat, got %v", err)
	}
}

func TestMongoStoreSaveOutput(t *testing.T) {
	t.Parallel()

	write := &fakeCollection{}
	s := &MongoStore{read: &fakeCollection{}, write: write, logger: zap.NewNop()}

	output := []ApplicationOutput{{Application: "construction", SearchTerms: []string{"builders"}, Status: candidates.StatusOK}}
	if err := s.SaveOutput(context.Background(), testKey, output); err != nil {
		t.Fatalf("SaveOutput() error = %v", err)
	}
	if !write.upsert {
		t.Fatalf("expected upsert")
	}

	update, ok := write.update.(bson.M)
	if !ok {
		t.Fatalf("unexpected update type %T", write.update)
	}
	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatalf("missing $set: %#v", update)
	}
	if _, ok := set["chats.42.output"]; !ok {
		t.Fatalf("expected chat output path, got %#v", set)
	}
}

func TestMongoStoreLoadCandidates(t *testing.T) {
	t.Parallel()

	write := &fakeCollection{doc: bson.M{
		"chats": bson.M{
			"42": bson.M{
				"output": bson.A{
					bson.M{"application": "a", "companies": bson.A{bson.M{"id": "1", "name": "One"}}},
					bson.M{"application": "b", "companies": bson.A{bson.M{"id": "2", "name": "Two"}, bson.M{"id": "3", "name": "Three"}}},
				},
			},
		},
	}}
	s := &MongoStore{read: &fakeCollection{}, write: write, logger: zap.NewNop()}

	list, err := s.LoadCandidates(context.Background(), testKey)
	if err != nil {
		t.Fatalf("LoadCandidates() error = %v", err)
	}
	if len(list) != 3 || list[0].ID != "1" || list[2].Name != "Three" {
		t.Fatalf("unexpected candidates: %+v", list)
	}

	filter := write.filter.(bson.M)
	if _, ok := filter["chats.42"]; !ok {
		t.Fatalf("expected chat existence filter, got %#v", filter)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewFile(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	if _, err := s.LoadCandidates(ctx, testKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}

	output := []ApplicationOutput{
		{Application: "a", Companies: []candidates.Candidate{{ID: "1", Name: "One"}}},
		{Application: "b", Companies: []candidates.Candidate{{ID: "2", Name: "Two"}}},
	}
	if err := s.SaveOutput(ctx, testKey, output); err != nil {
		t.Fatalf("SaveOutput() error = %v", err)
	}

	list, err := s.LoadCandidates(ctx, testKey)
	if err != nil {
		t.Fatalf("LoadCandidates() error = %v", err)
	}
	if len(list) != 2 || list[1].ID != "2" {
		t.Fatalf("unexpected candidates: %+v", list)
	}

	session, err := s.LoadSession(ctx, testKey)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if len(session.Messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(session.Messages))
	}
}

func TestFileStoreLoadCandidatesDedupesAcrossApplications(t *testing.T) {
	t.Parallel()

	s := NewFile(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	output := []ApplicationOutput{
		{Application: "bakeries", Companies: []candidates.Candidate{{ID: "c7", Name: "Seven"}, {ID: "c3", Name: "Three"}}},
		{Application: "hotels", Companies: []candidates.Candidate{{ID: "c7", Name: "Seven again"}, {ID: "c5", Name: "Five"}}},
	}
	if err := s.SaveOutput(ctx, testKey, output); err != nil {
		t.Fatalf("SaveOutput() error = %v", err)
	}

	list, err := s.LoadCandidates(ctx, testKey)
	if err != nil {
		t.Fatalf("LoadCandidates() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 unique candidates, got %+v", list)
	}
	if list[0].ID != "c7" || list[0].Name != "Seven" || list[1].ID != "c3" || list[2].ID != "c5" {
		t.Fatalf("unexpected candidates: %+v", list)
	}
}
