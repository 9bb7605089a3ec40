package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/pathfinder/internal/ai/gemini"
	"github.com/spigell/pathfinder/internal/aptitude"
	"github.com/spigell/pathfinder/internal/careers"
	"github.com/spigell/pathfinder/internal/logger"
	"github.com/spigell/pathfinder/internal/scoring"
	"github.com/spigell/pathfinder/internal/secrets"
	"github.com/spigell/pathfinder/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address, overrides server.address")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the pathfinder backend", zap.String("version", version))

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		logger.Fatal(
			"loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or GEMINI_API_KEY_FILE environment variable, or gemini.api-key-file in the configuration file"),
		)
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	scorer, err := newScorer(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the scorer", zap.Error(err))
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.Gemini.Model)
	if err != nil {
		logger.Fatal("creating gemini generator", zap.Error(err))
	}
	advisor := gemini.NewAdvisor(generator, logger, config.Gemini.MaxLogLength)

	srv := server.New(config.Server, server.Deps{
		Predictor: scorer,
		Advisor:   advisor,
		Logger:    logger,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("http server stopped", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

// newScorer fits the models and opens the careers store, watching it when enabled.
func newScorer(ctx context.Context, config *Config, logger *zap.Logger) (*scoring.Scorer, error) {
	models, err := aptitude.NewDefaultModels()
	if err != nil {
		return nil, err
	}

	store := careers.NewStore(config.Careers.File, logger)
	if config.Careers.Watch {
		if _, err := store.Watch(ctx); err != nil {
			// Per-request reads still work without the watcher.
			logger.Warn("careers file watching disabled", zap.Error(err))
		}
	}

	return scoring.New(models, store, config.Scoring, logger), nil
}
