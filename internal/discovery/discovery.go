package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/conversation"
	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/prompts"
	"github.com/spigell/leadscout/internal/store"
	"github.com/spigell/leadscout/internal/utils"
	"go.uber.org/zap"
)

// ErrNoSessionData is returned when a session has neither a conversation nor a profile.
var ErrNoSessionData = errors.New("session has no conversation and no company profile")

// Searcher finds places for a search term and resolves location names.
type Searcher interface {
	Search(ctx context.Context, term string, near *candidates.LatLng) candidates.SearchTermResult
	Geocode(ctx context.Context, name string) (*candidates.LatLng, error)
}

type Deps struct {
	Store     store.Store
	Completer ai.Completer
	Prompts   *prompts.Set
	Searcher  Searcher
	Logger    *zap.Logger
}

type Pipeline struct {
	store     store.Store
	completer ai.Completer
	prompts   *prompts.Set
	searcher  Searcher
	logger    *zap.Logger
}

// Summary describes one finished discovery run.
type Summary struct {
	Key          store.Key
	Location     string
	Applications []store.ApplicationOutput
	Candidates   int
	Duration     time.Duration
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Completer == nil {
		return nil, errors.New("completer is required")
	}
	if deps.Searcher == nil {
		return nil, errors.New("searcher is required")
	}

	set := deps.Prompts
	if set == nil {
		var err error
		if set, err = prompts.Default(); err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		store:     deps.Store,
		completer: deps.Completer,
		prompts:   set,
		searcher:  deps.Searcher,
		logger:    logger.OrNop(deps.Logger),
	}, nil
}

// Run discovers candidate buyers for the session identified by key and
// persists them per application.
func (p *Pipeline) Run(ctx context.Context, key store.Key) (*Summary, error) {
	started := time.Now()
	log := p.logger.With(zap.String("session", key.String()))

	session, err := p.store.LoadSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	transcript := session.Conversation()
	profile := strings.TrimSpace(session.CompanyProfile)
	if transcript.IsEmpty() && profile == "" {
		return nil, ErrNoSessionData
	}

	material := Material(transcript, profile, session.CompanyWebsite)
	applications, err := p.applications(ctx, material)
	if err != nil {
		return nil, err
	}
	log.Info("applications extracted", zap.Strings("applications", applications))

	location := conversation.ExtractLocation(transcript.Entries)
	near := p.locate(ctx, log, location)

	output := make([]store.ApplicationOutput, 0, len(applications))
	total := 0
	for _, application := range applications {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		terms := p.searchTerms(ctx, log, application)
		results := make([]candidates.SearchTermResult, 0, len(terms))
		for _, term := range terms {
			result := p.searcher.Search(ctx, term, near)
			log.Debug("search term finished",
				zap.String("application", application),
				zap.String("term", term),
				zap.String("status", string(result.Status)),
				zap.Int("records", len(result.Records)),
			)
			results = append(results, result)
		}

		merged := candidates.Merge(results...)
		status := candidates.AggregateStatus(candidates.Statuses(results)...)
		total += len(merged)

		log.Info("application searched",
			zap.String("application", application),
			zap.Int("terms", len(terms)),
			zap.Int("companies", len(merged)),
			zap.String("status", string(status)),
		)

		output = append(output, store.ApplicationOutput{
			Application: application,
			SearchTerms: terms,
			Status:      status,
			Companies:   merged,
		})
	}

	if err := p.store.SaveOutput(ctx, key, output); err != nil {
		return nil, fmt.Errorf("save discovery output: %w", err)
	}

	summary := &Summary{
		Key:          key,
		Location:     location,
		Applications: output,
		Candidates:   total,
		Duration:     time.Since(started),
	}
	log.Info("discovery completed",
		zap.Int("applications", len(output)),
		zap.Int("companies", total),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// Material renders the conversation and brochure in the chat markup the
// discovery prompts expect.
func Material(transcript conversation.Log, profile, website string) string {
	var b strings.Builder
	b.WriteString("<|user|> The following is a conversation log about the product:\n")
	b.WriteString(transcript.ChatML())

	profile = strings.TrimSpace(profile)
	if profile != "" {
		if website = strings.TrimSpace(website); website != "" {
			profile += "\n[Company Website]: " + website
		}
		b.WriteString("\n<|user|> The following is a brochure about the same product:\n")
		b.WriteString("<|user|> " + profile)
	}
	return b.String()
}

func (p *Pipeline) applications(ctx context.Context, material string) ([]string, error) {
	raw, err := p.completer.Complete(ctx, []ai.Message{
		{Role: ai.RoleUser, Content: p.prompts.ApplicationsPrompt(material)},
	})
	if err != nil {
		return nil, fmt.Errorf("extract applications: %w", ai.Classify("discovery", err))
	}

	list, err := ParseList(raw)
	if err != nil {
		return nil, fmt.Errorf("extract applications: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.New("extract applications: model returned no applications")
	}
	return list, nil
}

func (p *Pipeline) searchTerms(ctx context.Context, log *zap.Logger, application string) []string {
	raw, err := p.completer.Complete(ctx, []ai.Message{
		{Role: ai.RoleUser, Content: p.prompts.SearchTermsPrompt(application)},
	})
	if err != nil {
		log.Error("search term generation failed", zap.String("application", application), zap.Error(err))
		return nil
	}

	terms, err := ParseList(raw)
	if err != nil {
		log.Error("search terms are not a JSON list",
			zap.String("application", application),
			zap.String("response", utils.TruncateForLog(raw, 200)),
			zap.Error(err),
		)
		return nil
	}
	return terms
}

func (p *Pipeline) locate(ctx context.Context, log *zap.Logger, location string) *candidates.LatLng {
	if location == "" {
		log.Info("no location mentioned, searching without bias")
		return nil
	}

	near, err := p.searcher.Geocode(ctx, location)
	if err != nil {
		log.Warn("geocoding failed, searching without bias", zap.String("location", location), zap.Error(err))
		return nil
	}
	log.Info("location resolved",
		zap.String("location", location),
		zap.Float64("latitude", near.Latitude),
		zap.Float64("longitude", near.Longitude),
	)
	return near
}

// ParseList decodes a model response holding a JSON array. Plain strings are
// kept as is; objects contribute their first string field among name,
// application and term. Blank and duplicate items are dropped.
func ParseList(raw string) ([]string, error) {
	var items []any
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}

	seen := make(map[string]bool, len(items))
	list := make([]string, 0, len(items))
	for _, item := range items {
		var value string
		switch v := item.(type) {
		case string:
			value = v
		case map[string]any:
			for _, field := range []string{"name", "application", "term"} {
				if s, ok := v[field].(string); ok {
					value = s
					break
				}
			}
		}

		value = strings.TrimSpace(value)
		if value == "" || seen[strings.ToLower(value)] {
			continue
		}
		seen[strings.ToLower(value)] = true
		list = append(list, value)
	}
	return list, nil
}
