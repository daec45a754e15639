package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"cratedigger/internal/config"
	"cratedigger/internal/database"
	"cratedigger/internal/middlewares"
	"cratedigger/internal/ratelimit"
	"cratedigger/internal/repositories"
	"cratedigger/internal/services"
	"cratedigger/internal/spotify"
	"cratedigger/internal/utils"
)

const (
	globalRequestsPerSecond = 10
	globalBurst             = 30
	limiterCleanupInterval  = time.Minute
)

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	db         database.Service
	redis      *redis.Client

	auth     *middlewares.Auth
	cors     func(http.Handler) http.Handler
	throttle *middlewares.RateLimiter
	metrics  *middlewares.PrometheusMiddleware

	authService       services.AuthService
	crateService      services.CrateService
	albumService      services.AlbumService
	assignmentService services.AssignmentService
	suggestionService services.SuggestionService

	stopBackground context.CancelFunc
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}

	userRepo := repositories.NewUserRepository(db)
	crateRepo := repositories.NewCrateRepository(db)
	albumRepo := repositories.NewAlbumRepository(db)
	if err := crateRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create crate indexes: %w", err)
	}
	if err := albumRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create album indexes: %w", err)
	}

	sealer, err := utils.NewTokenSealer(cfg.TokenSecret)
	if err != nil {
		return nil, err
	}

	background, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:            cfg,
		db:             db,
		auth:           middlewares.NewAuth(cfg),
		cors:           middlewares.Cors(cfg.AllowedOrigins),
		throttle:       middlewares.NewRateLimiter(globalRequestsPerSecond, globalBurst),
		metrics:        middlewares.NewPrometheusMiddleware(prometheus.DefaultRegisterer),
		stopBackground: stop,
	}
	go s.throttle.CleanupVisitors(background)

	batchLimiter, err := s.newBatchLimiter(ctx, background)
	if err != nil {
		stop()
		return nil, err
	}

	provider := services.InitializeGoth(cfg)
	spotifyClient := spotify.NewClient(cfg.SpotifyAPIURL, &http.Client{Timeout: 15 * time.Second})
	authService := services.NewAuthService(userRepo, sealer, provider, []byte(cfg.JWTSecret), cfg.JWTTTL)

	gateway, err := services.NewCompletionGateway(services.CompletionConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		stop()
		return nil, err
	}

	s.authService = authService
	s.crateService = services.NewCrateService(crateRepo)
	s.albumService = services.NewAlbumService(albumRepo, spotifyClient, authService)
	s.assignmentService = services.NewAssignmentService(albumRepo, s.crateService, batchLimiter)
	s.suggestionService = services.NewSuggestionService(
		s.crateService,
		albumRepo,
		services.NewGenreEnricher(spotifyClient),
		authService,
		gateway,
	)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	return s, nil
}

// newBatchLimiter shares the batch limit through Redis when configured and
// falls back to a per-process window otherwise.
func (s *Server) newBatchLimiter(ctx, background context.Context) (ratelimit.Limiter, error) {
	if s.cfg.RedisAddr == "" {
		sw, err := ratelimit.NewSlidingWindow(s.cfg.BatchRateLimit, s.cfg.BatchRateWindow)
		if err != nil {
			return nil, err
		}
		go sw.RunCleanup(background, limiterCleanupInterval)
		log.Info().Int("limit", s.cfg.BatchRateLimit).Dur("window", s.cfg.BatchRateWindow).Msg("Using in-memory batch rate limiter")
		return sw, nil
	}

	s.redis = redis.NewClient(&redis.Options{Addr: s.cfg.RedisAddr, Password: s.cfg.RedisPassword})
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", s.cfg.RedisAddr, err)
	}
	log.Info().Str("addr", s.cfg.RedisAddr).Msg("Using redis batch rate limiter")
	limiter, err := ratelimit.NewRedisSlidingWindow(s.redis, "cratedigger:ratelimit", s.cfg.BatchRateLimit, s.cfg.BatchRateWindow)
	if err != nil {
		return nil, err
	}
	return limiter, nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.cfg.Port).Str("env", s.cfg.Env).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	s.stopBackground()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}
	if err := s.db.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
