package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/artifacts"
	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/conversation"
	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/prompts"
	"github.com/spigell/leadscout/internal/scoring"
	"github.com/spigell/leadscout/internal/telemetry"
	"github.com/spigell/leadscout/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 5
	DefaultDelay     = time.Second
)

// DataError means required upstream data is missing. Nothing is evaluated.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "missing input data: " + e.Reason
}

// Scorer is the scoring service round trip.
type Scorer interface {
	Evaluate(ctx context.Context, req *scoring.Request) (*scoring.Response, error)
}

type Config struct {
	BatchSize  int
	Delay      time.Duration
	TrackingID string
}

type Deps struct {
	Scorer    Scorer
	Prompts   *prompts.Set
	Artifacts *artifacts.Folder
	Telemetry telemetry.Sink
	Logger    *zap.Logger
}

// Usage sums the tokens spent by every attempt, failed ones included.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) add(in, out int) {
	u.InputTokens += in
	u.OutputTokens += out
}

// Result is a scored candidate.
type Result struct {
	Candidate  candidates.Candidate `json:"candidate"`
	Evaluation scoring.Evaluation   `json:"evaluation"`
	Attempt    int                  `json:"attempt"`
}

// Failure is a candidate that could not be scored.
type Failure struct {
	Candidate candidates.Candidate `json:"candidate"`
	Kind      string               `json:"kind"`
	Error     string               `json:"error"`
}

// Pass describes one evaluation sweep.
type Pass struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Scored  int    `json:"scored"`
	Failed  int    `json:"failed"`
}

// Run is everything SelectTop produced. Results keep scoring order.
type Run struct {
	Candidates int           `json:"candidates"`
	Results    []Result      `json:"results"`
	Failed     []Failure     `json:"failed"`
	Passes     []Pass        `json:"passes"`
	Usage      Usage         `json:"usage"`
	FailedPath string        `json:"failed_path,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Evaluator scores candidates for one seller. It is not safe for concurrent use;
// one instance owns the pools of one run.
type Evaluator struct {
	cfg        Config
	deps       Deps
	transcript conversation.Log
	profile    scoring.Profile
	logger     *zap.Logger

	usage    Usage
	attempts map[string]int
	wait     func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, deps Deps, transcript conversation.Log, profile scoring.Profile) (*Evaluator, error) {
	if deps.Scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if deps.Prompts == nil {
		set, err := prompts.Default()
		if err != nil {
			return nil, err
		}
		deps.Prompts = set
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.Nop{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}

	log := logger.OrNop(deps.Logger)
	if cfg.TrackingID != "" {
		log = log.With(zap.String(logger.FieldTrackingID, cfg.TrackingID))
	}

	return &Evaluator{
		cfg:        cfg,
		deps:       deps,
		transcript: transcript,
		profile:    profile,
		logger:     log,
		attempts:   make(map[string]int),
		wait:       utils.WaitFor,
	}, nil
}

// Usage returns the tokens spent so far.
func (e *Evaluator) Usage() Usage {
	return e.usage
}

// Batches splits list into consecutive chunks of at most size elements.
func Batches(list []candidates.Candidate, size int) [][]candidates.Candidate {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]candidates.Candidate, 0, (len(list)+size-1)/size)
	for start := 0; start < len(list); start += size {
		end := start + size
		if end > len(list) {
			end = len(list)
		}
		batches = append(batches, list[start:end])
	}
	return batches
}

// SelectTop scores every candidate in batches, retries the failures once and
// persists the candidates that failed both attempts.
func (e *Evaluator) SelectTop(ctx context.Context, list []candidates.Candidate) (*Run, error) {
	if len(list) == 0 {
		return nil, &DataError{Reason: "no candidates to evaluate"}
	}
	if e.transcript.IsEmpty() && e.profile.IsEmpty() {
		return nil, &DataError{Reason: "neither conversation nor seller profile is available"}
	}

	start := time.Now()
	run := &Run{Candidates: len(list)}
	e.emit(ctx, telemetry.Event{Name: telemetry.EventRankingStarted, Message: "Ranking started", Count: telemetry.Int(len(list))})

	batches := Batches(list, e.cfg.BatchSize)
	e.logger.Info("evaluation started",
		zap.Int("candidates", len(list)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", e.cfg.BatchSize),
	)

	first := Pass{Name: "initial", Initial: len(list)}
	var failed []Failure
	for i, batch := range batches {
		results, batchFailed := e.ProcessBatch(ctx, batch)
		run.Results = append(run.Results, results...)
		failed = append(failed, batchFailed...)
		e.logger.Debug("batch completed",
			zap.Int("batch", i+1),
			zap.Int("scored", len(results)),
			zap.Int("failed", len(batchFailed)),
		)
	}
	first.Scored, first.Failed = first.Initial-len(failed), len(failed)
	run.Passes = append(run.Passes, first)

	if len(failed) > 0 {
		retry := Pass{Name: "retry", Initial: len(failed)}
		e.logger.Info("retrying failed candidates", zap.Int("count", len(failed)))
		e.emit(ctx, telemetry.Event{Name: telemetry.EventRetryFailedCompanies, Message: "Retrying failed companies", Count: telemetry.Int(len(failed))})

		pending := make([]candidates.Candidate, 0, len(failed))
		for _, f := range failed {
			pending = append(pending, f.Candidate)
		}

		recovered, stillFailed := e.ProcessBatch(ctx, pending)
		run.Results = append(run.Results, recovered...)
		failed = stillFailed

		retry.Scored, retry.Failed = len(recovered), len(stillFailed)
		run.Passes = append(run.Passes, retry)
	}

	run.Failed = failed
	if len(failed) > 0 {
		if err := e.saveFailed(ctx, run); err != nil {
			e.logger.Warn("saving failed candidates failed", zap.Error(err))
		}
	}

	run.Usage = e.usage
	run.Duration = time.Since(start)

	e.logger.Info("evaluation completed",
		zap.Int("scored", len(run.Results)),
		zap.Int("failed", len(run.Failed)),
		zap.Int("input_tokens", run.Usage.InputTokens),
		zap.Int("output_tokens", run.Usage.OutputTokens),
		zap.Duration("duration", run.Duration),
	)

	return run, nil
}

// ProcessBatch evaluates the batch sequentially. A failing candidate never
// stops the batch; it is returned in the failed pool instead.
func (e *Evaluator) ProcessBatch(ctx context.Context, batch []candidates.Candidate) ([]Result, []Failure) {
	results := make([]Result, 0, len(batch))
	failed := make([]Failure, 0)

	for _, candidate := range batch {
		e.attempts[candidate.ID]++
		attempt := e.attempts[candidate.ID]

		e.logger.Info("processing candidate", append(logger.CandidateFields(candidate.ID, candidate.Label()), zap.Int("attempt", attempt))...)
		e.emit(ctx, telemetry.Event{
			Name:      telemetry.EventProcessingCompany,
			Candidate: candidate.Label(),
			Message:   fmt.Sprintf("Supervisor processing company: %s", candidate.Label()),
		})

		evaluation, err := e.evaluate(ctx, candidate)
		e.recordOutcome(ctx, candidate, attempt, evaluation, err)
		if err != nil {
			failed = append(failed, Failure{Candidate: candidate, Kind: errorKind(err), Error: err.Error()})
			continue
		}

		results = append(results, Result{Candidate: candidate, Evaluation: *evaluation, Attempt: attempt})

		if err := e.wait(ctx, e.cfg.Delay); err != nil {
			e.logger.Debug("post-success delay interrupted", zap.Error(err))
		}
	}

	return results, failed
}

func (e *Evaluator) evaluate(ctx context.Context, candidate candidates.Candidate) (*scoring.Evaluation, error) {
	req := scoring.BuildRequest(e.deps.Prompts, e.transcript, e.profile, candidate)

	resp, err := e.deps.Scorer.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	e.usage.add(resp.InputTokens, resp.OutputTokens)

	return scoring.Parse(resp.Raw)
}

type artifactRecord struct {
	Company     string         `json:"company"`
	CandidateID string         `json:"candidate_id"`
	Summary     string         `json:"scoring_summary"`
	Scores      map[string]any `json:"scores"`
	Reasoning   string         `json:"reasoning"`
	FinalScore  float64        `json:"final_score"`
}

// recordOutcome is the single place an attempt's side effects happen.
func (e *Evaluator) recordOutcome(ctx context.Context, candidate candidates.Candidate, attempt int, evaluation *scoring.Evaluation, err error) {
	log := e.logger.With(append(logger.CandidateFields(candidate.ID, candidate.Label()), zap.Int("attempt", attempt))...)

	if err != nil {
		log.Warn("candidate evaluation failed", zap.String("kind", errorKind(err)), zap.Error(err))
		e.emit(ctx, telemetry.Event{
			Name:      telemetry.EventCompanyFailed,
			Candidate: candidate.Label(),
			Message:   fmt.Sprintf("Failed processing company: %v", err),
		})
		return
	}

	if e.deps.Artifacts != nil {
		path, saveErr := e.deps.Artifacts.SaveCandidate(candidate.ID, candidate.Label(), artifactRecord{
			Company:     candidate.Label(),
			CandidateID: candidate.ID,
			Summary:     evaluation.Summary,
			Scores:      evaluation.Scores,
			Reasoning:   evaluation.Reasoning,
			FinalScore:  evaluation.FinalScore,
		})
		if saveErr != nil {
			log.Warn("saving candidate artifact failed", zap.Error(saveErr))
		} else {
			log.Debug("candidate artifact saved", zap.String("path", path))
		}
	}

	log.Info("candidate scored",
		zap.Float64("final_score", evaluation.FinalScore),
		zap.String("score_source", evaluation.ScoreSource),
	)
	e.emit(ctx, telemetry.Event{
		Name:       telemetry.EventCompanyProcessed,
		Candidate:  candidate.Label(),
		FinalScore: telemetry.Float(evaluation.FinalScore),
		Message:    fmt.Sprintf("Company processed with score %.1f", evaluation.FinalScore),
	})
}

func (e *Evaluator) saveFailed(ctx context.Context, run *Run) error {
	if e.deps.Artifacts == nil {
		return nil
	}
	path, err := e.deps.Artifacts.SaveFailed(run.Failed)
	if err != nil {
		return err
	}
	run.FailedPath = path
	e.logger.Info("failed candidates saved", zap.String("path", path), zap.Int("count", len(run.Failed)))
	e.emit(ctx, telemetry.Event{Name: telemetry.EventFailedCompaniesSaved, Message: "Failed companies saved", Count: telemetry.Int(len(run.Failed))})
	return nil
}

// Emit forwards an event when the run carries a tracking id. Sink failures are only logged.
func (e *Evaluator) Emit(ctx context.Context, event telemetry.Event) {
	e.emit(ctx, event)
}

func (e *Evaluator) emit(ctx context.Context, event telemetry.Event) {
	if e.cfg.TrackingID == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := e.deps.Telemetry.Record(ctx, e.cfg.TrackingID, event); err != nil {
		e.logger.Warn("telemetry event dropped", zap.String("event", event.Name), zap.Error(err))
	}
}

func errorKind(err error) string {
	var parseErr *scoring.ParseError
	switch {
	case ai.IsRateLimit(err):
		return "rate_limit"
	case ai.IsTransport(err):
		return "transport"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "unknown"
	}
}
