package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/ai/provider"
	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/places"
	"github.com/spigell/leadscout/internal/prompts"
	"github.com/spigell/leadscout/internal/ranker"
	"github.com/spigell/leadscout/internal/scoring"
	"github.com/spigell/leadscout/internal/secrets"
	"github.com/spigell/leadscout/internal/store"
	"github.com/spigell/leadscout/internal/telemetry"
	"github.com/spigell/leadscout/internal/tokens"
	"github.com/spigell/leadscout/internal/utils"
	"go.uber.org/zap"
)

const (
	storeDriverFile  = "file"
	storeDriverMongo = "mongo"
)

// apiKeyEnv names the conventional environment variable of each provider.
var apiKeyEnv = map[string]string{
	provider.Perplexity: "PERPLEXITY_API_KEY",
	provider.OpenAI:     "OPENAI_API_KEY",
	provider.Gemini:     "GEMINI_API_KEY",
	provider.Claude:     "ANTHROPIC_API_KEY",
}

// backend bundles what every pipeline command needs from the outside world.
type backend struct {
	store     store.Store
	telemetry telemetry.Sink
	close     func(context.Context) error
}

func openBackend(ctx context.Context, cfg *StoreConfig, log *zap.Logger) (*backend, error) {
	if cfg == nil {
		return nil, errors.New("store configuration is required")
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", storeDriverFile:
		log.Info("using file store", zap.String("dir", cfg.Dir))
		return &backend{
			store:     store.NewFile(cfg.Dir, log),
			telemetry: telemetrySink(cfg.Telemetry, nil, log),
			close:     func(context.Context) error { return nil },
		}, nil
	case storeDriverMongo:
		if cfg.Mongo == nil {
			return nil, errors.New("store.mongo section is required for the mongo driver")
		}
		uri, err := secrets.Load(secrets.Source{
			Name:  "mongo uri",
			Value: cfg.Mongo.URI,
			File:  cfg.Mongo.URIFile,
			Env:   "MONGO_URI",
		})
		if err != nil {
			return nil, err
		}

		client, err := store.Connect(ctx, uri)
		if err != nil {
			return nil, err
		}
		log.Info("connected to mongo",
			zap.String("read", cfg.Mongo.ReadDatabase+"."+cfg.Mongo.ReadCollection),
			zap.String("write", cfg.Mongo.WriteDatabase+"."+cfg.Mongo.WriteCollection),
		)

		mongoSink := telemetry.NewMongoSink(client.Database(cfg.Mongo.LogDatabase).Collection(cfg.Mongo.LogCollection), "")
		return &backend{
			store: store.NewMongo(client, store.MongoConfig{
				ReadDatabase:    cfg.Mongo.ReadDatabase,
				ReadCollection:  cfg.Mongo.ReadCollection,
				WriteDatabase:   cfg.Mongo.WriteDatabase,
				WriteCollection: cfg.Mongo.WriteCollection,
			}, log),
			telemetry: telemetrySink(cfg.Telemetry, mongoSink, log),
			close:     client.Disconnect,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func telemetrySink(enabled bool, persistent telemetry.Sink, log *zap.Logger) telemetry.Sink {
	if !enabled {
		return telemetry.Nop{}
	}
	sinks := telemetry.Multi{telemetry.LogSink{Logger: log}}
	if persistent != nil {
		sinks = append(sinks, persistent)
	}
	return sinks
}

func newCompleter(ctx context.Context, cfg *ProviderConfig, name string, log *zap.Logger) (ai.Completer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%s provider configuration is required", name)
	}

	providerName := strings.ToLower(utils.FirstNonEmpty(cfg.Provider, provider.Perplexity))
	apiKey, err := secrets.Load(secrets.Source{
		Name:  name + " api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   apiKeyEnv[providerName],
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set %s.api-key-file or %s.api-key)", err, name, name)
	}

	return provider.New(ctx, provider.Config{
		Provider: providerName,
		APIKey:   apiKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
	}, logger.WithCommonFields(log, providerName, cfg.Model))
}

func newScorer(ctx context.Context, cfg *ProviderConfig, log *zap.Logger) (*scoring.Client, error) {
	completer, err := newCompleter(ctx, cfg, "scoring", log)
	if err != nil {
		return nil, err
	}

	providerName := utils.FirstNonEmpty(cfg.Provider, provider.Perplexity)
	return scoring.NewClient(
		completer,
		tokens.NewCounter(completer.Model()),
		cfg.Timeout,
		logger.WithCommonFields(log, providerName, completer.Model()),
		cfg.MaxLogLength,
	), nil
}

// discoveryProvider falls back to the scoring provider for every unset field.
func discoveryProvider(config *Config) *ProviderConfig {
	if config.Discovery == nil || strings.TrimSpace(config.Discovery.Provider) == "" {
		return config.Scoring
	}
	if config.Scoring == nil {
		return config.Discovery
	}

	merged := *config.Discovery
	if merged.Provider == config.Scoring.Provider {
		merged.APIKey = utils.FirstNonEmpty(merged.APIKey, config.Scoring.APIKey)
		merged.APIKeyFile = utils.FirstNonEmpty(merged.APIKeyFile, config.Scoring.APIKeyFile)
		merged.BaseURL = utils.FirstNonEmpty(merged.BaseURL, config.Scoring.BaseURL)
	}
	if merged.Timeout <= 0 {
		merged.Timeout = config.Scoring.Timeout
	}
	return &merged
}

func newPlaces(cfg *SearchConfig, userAgent string, log *zap.Logger) (*places.Client, error) {
	if cfg == nil {
		return nil, errors.New("search configuration is required")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "places api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GOOGLE_MAPS_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	client := places.New(places.Options{
		APIKey:       apiKey,
		RateLimitRPS: cfg.RateLimitRPS,
		MaxPages:     cfg.MaxPages,
		PageDelay:    cfg.PageDelay,
		BiasDelta:    cfg.BiasDelta,
	}, log)
	if userAgent != "" {
		client.UserAgent = userAgent
	}
	return client, nil
}

func loadPrompts(path string) (*prompts.Set, error) {
	if strings.TrimSpace(path) == "" {
		return prompts.Default()
	}
	return prompts.Load(path)
}

func newRanker(ctx context.Context, config *Config, b *backend, log *zap.Logger) (*ranker.Ranker, error) {
	if config.Evaluation == nil {
		return nil, errors.New("evaluation configuration is required")
	}

	scorer, err := newScorer(ctx, config.Scoring, log)
	if err != nil {
		return nil, fmt.Errorf("building scorer: %w", err)
	}

	set, err := loadPrompts(config.Prompts)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	return ranker.New(ranker.Config{
		BatchSize: config.Evaluation.BatchSize,
		Delay:     config.Evaluation.Delay,
		TopN:      config.Evaluation.TopN,
		CostPer1K: config.Scoring.CostPer1K,
		OutputDir: config.Evaluation.OutputDir,
	}, ranker.Deps{
		Store:     b.store,
		Scorer:    scorer,
		Prompts:   set,
		Telemetry: b.telemetry,
		Logger:    log,
	})
}

func keyFromFlags(flags interface{ GetString(string) (string, error) }) (store.Key, error) {
	user, _ := flags.GetString("user")
	chat, _ := flags.GetString("chat")
	sess, _ := flags.GetString("session")

	key := store.Key{UserID: user, ChatID: chat, SessionUUID: sess}
	return key, key.Validate()
}
