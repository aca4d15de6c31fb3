package main

import (
	"os"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/consultant-worklog/internal/config"
	"github.com/yukikurage/consultant-worklog/internal/database"
	"github.com/yukikurage/consultant-worklog/internal/handlers"
	"github.com/yukikurage/consultant-worklog/internal/logging"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/repository"
	"github.com/yukikurage/consultant-worklog/internal/services"
	"github.com/yukikurage/consultant-worklog/internal/store"
	"github.com/yukikurage/consultant-worklog/internal/store/gormstore"
)

func main() {
	// Load configuration
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read config")
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build logger")
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg.DB, !cfg.Release(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Run migrations
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	requirements, err := gormstore.New[models.Requirement](db, store.Requirements)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open requirements collection")
	}
	tasks, err := gormstore.New[models.Task](db, store.Tasks)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open tasks collection")
	}

	sessionStore, err := handlers.NewSessionStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session store")
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:         services.NewAuthService(repository.NewUserRepository(db)),
		Documents:    services.NewDocumentService(requirements, tasks, logger.With().Str("component", "documents").Logger()),
		SessionStore: sessionStore,
		Logger:       logger.With().Str("component", "http").Logger(),
	})

	// Start server
	logger.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
	if err := router.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
