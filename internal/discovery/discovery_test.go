package discovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/conversation"
	"github.com/spigell/leadscout/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memoryStore struct {
	mu      sync.Mutex
	session *store.SessionData
	saved   []store.ApplicationOutput
}

func (m *memoryStore) LoadSession(context.Context, store.Key) (*store.SessionData, error) {
	if m.session == nil {
		return nil, store.ErrNotFound
	}
	return m.session, nil
}

func (m *memoryStore) SaveOutput(_ context.Context, _ store.Key, output []store.ApplicationOutput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = output
	return nil
}

func (m *memoryStore) LoadCandidates(context.Context, store.Key) ([]candidates.Candidate, error) {
	return nil, nil
}

// scriptedCompleter answers by matching a fragment of the prompt.
type scriptedCompleter struct {
	answers map[string]string
	fail    map[string]error
	prompts []string
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []ai.Message) (string, error) {
	prompt := messages[len(messages)-1].Content
	s.prompts = append(s.prompts, prompt)
	for fragment, err := range s.fail {
		if strings.Contains(prompt, fragment) {
			return "", err
		}
	}
	for fragment, answer := range s.answers {
		if strings.Contains(prompt, fragment) {
			return answer, nil
		}
	}
	return "[]", nil
}

func (s *scriptedCompleter) Model() string { return "stub" }

type stubSearcher struct {
	results  map[string]candidates.SearchTermResult
	near     []*candidates.LatLng
	geocoded []string
}

func (s *stubSearcher) Search(_ context.Context, term string, near *candidates.LatLng) candidates.SearchTermResult {
	s.near = append(s.near, near)
	if r, ok := s.results[term]; ok {
		return r
	}
	return candidates.SearchTermResult{Term: term, Status: candidates.StatusZeroResults}
}

func (s *stubSearcher) Geocode(_ context.Context, name string) (*candidates.LatLng, error) {
	s.geocoded = append(s.geocoded, name)
	return &candidates.LatLng{Latitude: 28.6, Longitude: 77.2}, nil
}

var key = store.Key{UserID: "u", ChatID: "1", SessionUUID: "s"}

func intakeSession() *store.SessionData {
	return &store.SessionData{
		Messages: []conversation.Message{
			{Role: conversation.RoleAssistant, Question: "What do you sell?"},
			{Role: conversation.RoleUser, Answer: "Industrial ovens"},
			{Role: conversation.RoleAssistant, Question: "Which city do you deliver to?"},
			{Role: conversation.RoleUser, Answer: "delivery across New Delhi"},
		},
		CompanyProfile: "Oven maker since 1990",
		CompanyWebsite: "https://ovens.example",
	}
}

func TestRunMergesPerApplication(t *testing.T) {
	t.Parallel()

	st := &memoryStore{session: intakeSession()}
	completer := &scriptedCompleter{
		answers: map[string]string{
			"applications or industries": "```json\n[\"bakeries\", \"hotels\", \"Bakeries\"]\n```",
			"\nbakeries\n":                 `["bakery", "patisserie"]`,
		},
		fail: map[string]error{"\nhotels\n": errors.New("boom")},
	}
	searcher := &stubSearcher{results: map[string]candidates.SearchTermResult{
		"bakery": {Term: "bakery", Status: candidates.StatusOK, Records: []candidates.Candidate{
			{ID: "a", Name: "A"}, {ID: "b", Name: "B"},
		}},
		"patisserie": {Term: "patisserie", Status: candidates.StatusError, Records: []candidates.Candidate{
			{ID: "b", Name: "B2"}, {ID: "c", Name: "C", BusinessStatus: candidates.StatusClosedPermanently},
		}},
	}}

	core, logs := observer.New(zapcore.ErrorLevel)
	p, err := New(Deps{Store: st, Completer: completer, Searcher: searcher, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := p.Run(context.Background(), key)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(st.saved) != 2 {
		t.Fatalf("expected 2 applications saved, got %d", len(st.saved))
	}
	bakeries := st.saved[0]
	if bakeries.Application != "bakeries" || bakeries.Status != candidates.StatusOK {
		t.Fatalf("unexpected first application: %+v", bakeries)
	}
	if len(bakeries.Companies) != 2 || bakeries.Companies[1].Name != "B2" {
		t.Fatalf("unexpected merged companies: %+v", bakeries.Companies)
	}

	hotels := st.saved[1]
	if len(hotels.SearchTerms) != 0 || hotels.Status != candidates.StatusZeroResults {
		t.Fatalf("expected failed term generation to yield no terms, got %+v", hotels)
	}
	if logs.FilterMessage("search term generation failed").Len() != 1 {
		t.Fatalf("expected term generation failure to be logged")
	}

	if summary.Candidates != 2 || summary.Location != "New Delhi" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(searcher.geocoded) != 1 || searcher.geocoded[0] != "New Delhi" {
		t.Fatalf("expected geocoding of extracted location, got %v", searcher.geocoded)
	}
	for _, near := range searcher.near {
		if near == nil {
			t.Fatalf("expected every search to carry location bias")
		}
	}

	if !strings.Contains(completer.prompts[0], "[Company Website]: https://ovens.example") {
		t.Fatalf("expected brochure with website in applications prompt")
	}
}

func TestRunRejectsEmptySession(t *testing.T) {
	t.Parallel()

	st := &memoryStore{session: &store.SessionData{}}
	p, err := New(Deps{Store: st, Completer: &scriptedCompleter{}, Searcher: &stubSearcher{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := p.Run(context.Background(), key); !errors.Is(err, ErrNoSessionData) {
		t.Fatalf("expected ErrNoSessionData, got %v", err)
	}
	if st.saved != nil {
		t.Fatalf("nothing must be saved for an empty session")
	}
}

func TestRunFailsWithoutApplications(t *testing.T) {
	t.Parallel()

	st := &memoryStore{session: intakeSession()}
	completer := &scriptedCompleter{answers: map[string]string{"applications or industries": "no idea"}}
	p, err := New(Deps{Store: st, Completer: completer, Searcher: &stubSearcher{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := p.Run(context.Background(), key); err == nil {
		t.Fatalf("expected error for unparsable applications")
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "strings", raw: `["a", " b ", ""]`, want: []string{"a", "b"}},
		{name: "fenced", raw: "```json\n[\"x\"]\n```", want: []string{"x"}},
		{name: "objects", raw: `[{"name": "n"}, {"application": "app"}, {"other": 1}]`, want: []string{"n", "app"}},
		{name: "dedup case insensitive", raw: `["Hotels", "hotels"]`, want: []string{"Hotels"}},
		{name: "prose around array", raw: `Here you go: ["q"] thanks`, want: []string{"q"}},
		{name: "not a list", raw: `{"a": 1}`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseList(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("ParseList() = %v, want %v", got, tt.want)
			}
		})
	}
}
