package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/server"
	"github.com/spigell/leadscout/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API that runs rankings in the background",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default from server.listen)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config.Server == nil {
		logger.Fatal("server configuration is required")
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	b, err := openBackend(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer b.close(context.Background())

	r, err := newRanker(ctx, config, b, logger)
	if err != nil {
		logger.Fatal("preparing the ranker", zap.Error(err))
	}

	srv := server.New(r, session.NewTracker(config.Server.SessionTTL), logger)

	logger.Info("starting the leadscout server", zap.String("version", version), zap.String("listen", config.Server.Listen))
	if err := srv.Serve(ctx, config.Server.Listen); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped")
}
