package container

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/podlove/podlove-backend/internal/config"
	delivery "github.com/podlove/podlove-backend/internal/delivery/http"
	"github.com/podlove/podlove-backend/internal/delivery/http/handler"
	"github.com/podlove/podlove-backend/internal/delivery/http/middleware"
	"github.com/podlove/podlove-backend/internal/embedding"
	"github.com/podlove/podlove-backend/internal/infrastructure/database"
	"github.com/podlove/podlove-backend/internal/infrastructure/gemini"
	"github.com/podlove/podlove-backend/internal/infrastructure/metrics"
	"github.com/podlove/podlove-backend/internal/infrastructure/server"
	"github.com/podlove/podlove-backend/internal/matching"
	"github.com/podlove/podlove-backend/internal/realtime"
	"github.com/podlove/podlove-backend/internal/repository/postgres"
	"github.com/podlove/podlove-backend/internal/usecase/auth"
	"github.com/podlove/podlove-backend/internal/usecase/billing"
	"github.com/podlove/podlove-backend/internal/usecase/match"
	"github.com/podlove/podlove-backend/internal/usecase/podcast"
	"github.com/podlove/podlove-backend/internal/usecase/profile"
	"github.com/podlove/podlove-backend/internal/vector/pgvector"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	DB      *sqlx.DB
	Redis   *redis.Client
	Server  *server.Server
	Gemini  *gemini.Client
	Metrics *metrics.Metrics

	log zerolog.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	// Initialize database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize Redis. Presence falls back to an in-process registry
	// when Redis is unreachable.
	var presence realtime.Registry
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory presence registry")
		redisClient = nil
		presence = realtime.NewMemoryRegistry()
	} else {
		presence = realtime.NewRedisRegistry(redisClient)
	}

	// Initialize Gemini client (embeddings + pair scoring)
	geminiClient, err := gemini.NewClient(cfg.Gemini, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	m := metrics.New()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	podcastRepo := postgres.NewPodcastRepository(db)
	txm := postgres.NewTxManager(db)

	// Initialize vector index and embedding pipeline
	index := pgvector.NewIndex(db, cfg.Vector.Dimension)
	embeddings := embedding.NewService(geminiClient, index, cfg.Vector, log, m)
	selector := matching.NewSelector(geminiClient, index, geminiClient, userRepo, podcastRepo, cfg.Matching, log, m)

	// Initialize use cases
	authUseCase := auth.NewAuthUseCase(userRepo, cfg.JWT.AccessSecret, cfg.JWT.AccessExpiryMin, log)
	profileUseCase := profile.NewProfileUseCase(userRepo, embeddings, log)
	podcastUseCase := podcast.NewPodcastUseCase(podcastRepo, userRepo, txm, presence, embeddings, m, log)
	matchUseCase := match.NewMatchUseCase(userRepo, selector, podcastUseCase, log)
	billingUseCase := billing.NewBillingUseCase(userRepo, selector, podcastUseCase, txm, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUseCase)
	profileHandler := handler.NewProfileHandler(profileUseCase)
	matchHandler := handler.NewMatchHandler(matchUseCase)
	podcastHandler := handler.NewPodcastHandler(podcastUseCase)
	billingHandler := handler.NewBillingHandler(billingUseCase)
	presenceHandler := handler.NewPresenceHandler(presence)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authUseCase)

	// Initialize router
	router := delivery.NewRouter(
		authHandler,
		profileHandler,
		matchHandler,
		podcastHandler,
		billingHandler,
		presenceHandler,
		authMiddleware,
		m,
	)

	// Setup routes
	ginRouter := router.Setup()

	// Initialize server
	srv := server.NewServer(&cfg.Server, ginRouter, log)

	return &Container{
		Config:  cfg,
		DB:      db,
		Redis:   redisClient,
		Server:  srv,
		Gemini:  geminiClient,
		Metrics: m,
		log:     log,
	}, nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Gemini != nil {
		c.Gemini.Close()
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.log.Error().Err(err).Msg("failed to close redis")
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
