package ranker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/leadscout/internal/artifacts"
	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/conversation"
	"github.com/spigell/leadscout/internal/evaluator"
	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/prompts"
	"github.com/spigell/leadscout/internal/ranking"
	"github.com/spigell/leadscout/internal/scoring"
	"github.com/spigell/leadscout/internal/store"
	"github.com/spigell/leadscout/internal/telemetry"
	"go.uber.org/zap"
)

type Config struct {
	BatchSize int
	Delay     time.Duration
	TopN      int
	CostPer1K float64
	OutputDir string
}

type Deps struct {
	Store     store.Store
	Scorer    evaluator.Scorer
	Prompts   *prompts.Set
	Telemetry telemetry.Sink
	Logger    *zap.Logger
}

// Input is everything a ranking run reads from the store.
type Input struct {
	Key        store.Key
	Transcript conversation.Log
	Profile    scoring.Profile
	Candidates []candidates.Candidate
}

// Outcome is a finished ranking run.
type Outcome struct {
	TrackingID string
	Run        *evaluator.Run
	Report     *ranking.Report
	Paths      *ranking.Paths
}

// Summary is the compact view of an outcome reported to callers.
type Summary struct {
	Candidates   int             `json:"total_companies"`
	Evaluated    int             `json:"total_companies_evaluated"`
	Failed       int             `json:"total_companies_failed"`
	FailedNames  []string        `json:"failed_companies,omitempty"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	CostUSD      float64         `json:"estimated_cost_usd"`
	Top          []ranking.Entry `json:"top"`
	Paths        *ranking.Paths  `json:"paths,omitempty"`
	Duration     string          `json:"duration"`
}

type Ranker struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

func New(cfg Config, deps Deps) (*Ranker, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.Nop{}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = artifacts.DefaultDir
	}
	return &Ranker{cfg: cfg, deps: deps, logger: logger.OrNop(deps.Logger)}, nil
}

// Load reads the conversation, the seller profile and the discovered candidates of key.
func (r *Ranker) Load(ctx context.Context, key store.Key) (*Input, error) {
	session, err := r.deps.Store.LoadSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	list, err := r.deps.Store.LoadCandidates(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	return &Input{
		Key:        key,
		Transcript: session.Conversation(),
		Profile:    scoring.Profile{Text: session.CompanyProfile, Website: session.CompanyWebsite},
		Candidates: candidates.Dedupe(list),
	}, nil
}

// Rank scores the input, ranks the successes and writes every report view.
func (r *Ranker) Rank(ctx context.Context, input *Input, trackingID string) (*Outcome, error) {
	folder := artifacts.NewFolder(r.cfg.OutputDir, trackingID)

	eval, err := evaluator.New(
		evaluator.Config{BatchSize: r.cfg.BatchSize, Delay: r.cfg.Delay, TrackingID: trackingID},
		evaluator.Deps{
			Scorer:    r.deps.Scorer,
			Prompts:   r.deps.Prompts,
			Artifacts: folder,
			Telemetry: r.deps.Telemetry,
			Logger:    r.logger.With(zap.String("session", input.Key.String())),
		},
		input.Transcript,
		input.Profile,
	)
	if err != nil {
		return nil, err
	}

	run, err := eval.SelectTop(ctx, input.Candidates)
	if err != nil {
		return nil, err
	}

	report := ranking.Build(run, r.cfg.TopN, r.cfg.CostPer1K)
	paths, err := report.Write(folder)
	if err != nil {
		return nil, fmt.Errorf("write reports: %w", err)
	}

	eval.Emit(ctx, telemetry.Event{
		Name:    telemetry.EventRankingCompleted,
		Message: fmt.Sprintf("Ranking completed: %d evaluated, %d failed", report.Evaluated(), report.FailedCount()),
		Count:   telemetry.Int(report.Evaluated()),
		Fields: map[string]any{
			"input_tokens":       run.Usage.InputTokens,
			"output_tokens":      run.Usage.OutputTokens,
			"estimated_cost_usd": report.Cost(),
		},
	})

	r.logger.Info("ranking completed",
		zap.String(logger.FieldTrackingID, trackingID),
		zap.Int("evaluated", report.Evaluated()),
		zap.Int("failed", report.FailedCount()),
		zap.Float64("estimated_cost_usd", report.Cost()),
		zap.String("output", folder.Path()),
	)

	return &Outcome{TrackingID: trackingID, Run: run, Report: report, Paths: paths}, nil
}

func (o *Outcome) Summary() Summary {
	return Summary{
		Candidates:   o.Report.Candidates,
		Evaluated:    o.Report.Evaluated(),
		Failed:       o.Report.FailedCount(),
		FailedNames:  o.Report.FailedNames(),
		InputTokens:  o.Report.Usage.InputTokens,
		OutputTokens: o.Report.Usage.OutputTokens,
		CostUSD:      o.Report.Cost(),
		Top:          o.Report.Top(),
		Paths:        o.Paths,
		Duration:     o.Run.Duration.String(),
	}
}
