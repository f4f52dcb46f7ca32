package cmd

import (
	"context"
	"log"

	"github.com/spigell/leadscout/internal/discovery"
	"github.com/spigell/leadscout/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find candidate buyers for a session and store them per application",
	Run: func(cmd *cobra.Command, _ []string) {
		discover(cmd)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	addKeyFlags(discoverCmd)
}

func discover(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	key, err := keyFromFlags(cmd.Flags())
	if err != nil {
		logger.Fatal("session key is incomplete", zap.Error(err), zap.String("hint", "set --user, --chat and --session"))
	}

	b, err := openBackend(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer b.close(ctx)

	completer, err := newCompleter(ctx, discoveryProvider(config), "discovery", logger)
	if err != nil {
		logger.Fatal("building the discovery provider", zap.Error(err))
	}

	searcher, err := newPlaces(config.Search, config.UserAgent, logger)
	if err != nil {
		logger.Fatal("building the places client", zap.Error(err), zap.String("hint", "set search.api-key-file or GOOGLE_MAPS_API_KEY"))
	}

	set, err := loadPrompts(config.Prompts)
	if err != nil {
		logger.Fatal("loading prompts", zap.Error(err))
	}

	pipeline, err := discovery.New(discovery.Deps{
		Store:     b.store,
		Completer: completer,
		Prompts:   set,
		Searcher:  searcher,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("preparing discovery", zap.Error(err))
	}

	logger.Info("starting discovery", zap.String("session", key.String()), zap.String("version", version))

	summary, err := pipeline.Run(ctx, key)
	if err != nil {
		logger.Fatal("discovery failed", zap.Error(err))
	}

	for _, app := range summary.Applications {
		logger.Info("application",
			zap.String("name", app.Application),
			zap.Strings("search_terms", app.SearchTerms),
			zap.String("status", string(app.Status)),
			zap.Int("companies", len(app.Companies)),
		)
	}
	logger.Info("discovery finished", zap.Int("companies", summary.Candidates), zap.Duration("duration", summary.Duration))
}
