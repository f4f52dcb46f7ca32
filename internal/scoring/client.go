package scoring

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/tokens"
	"github.com/spigell/leadscout/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultTimeout      = 60 * time.Second
	defaultMaxLogLength = 200
)

// Response is the raw answer of the scoring service plus its token usage.
type Response struct {
	Raw          string
	InputTokens  int
	OutputTokens int
}

// Client sends evaluation requests to a completion service. It performs one
// round trip per call and never retries.
type Client struct {
	completer ai.Completer
	counter   *tokens.Counter
	timeout   time.Duration
	logger    *zap.Logger
	maxLogLen int
}

func NewClient(completer ai.Completer, counter *tokens.Counter, timeout time.Duration, log *zap.Logger, maxLogLength int) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if counter == nil {
		counter = tokens.NewCounter(completer.Model())
	}

	return &Client{
		completer: completer,
		counter:   counter,
		timeout:   timeout,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

// Evaluate returns the raw response text. Failures are TransportError or RateLimitError.
func (c *Client) Evaluate(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("evaluation request is required")
	}

	messages := req.Messages()
	input := ai.Contents(messages)
	log := logger.WithFields(c.logger, logger.CandidateFields(req.CandidateID(), req.CandidateName())...)

	log.Debug("scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(input)),
		zap.String("prompt_preview", utils.TruncateForLog(input, c.maxLogLen)),
	)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.completer.Complete(callCtx, messages)
	if err != nil {
		return nil, ai.Classify("scoring", err)
	}

	log.Debug("scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	return &Response{
		Raw:          raw,
		InputTokens:  c.counter.Count(input),
		OutputTokens: c.counter.Count(raw),
	}, nil
}

func (c *Client) Model() string {
	return c.completer.Model()
}
