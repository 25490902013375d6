package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dimmer-site/internal/config"
	"dimmer-site/internal/database"
	custommiddleware "dimmer-site/internal/middleware"
	"dimmer-site/internal/repository"
	"dimmer-site/internal/service"
	"dimmer-site/internal/storage"
	"dimmer-site/internal/transport"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	dbService   database.Service
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, dbService database.Service) (*Server, error) {
	db := dbService.DB()

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"database": dbService.Health(r.Context()),
		})
	})

	// Image storage. Disabled when no bucket is configured, in which case
	// product image uploads are rejected and deletes are no-ops.
	images, err := newImageStore(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	// Redis backs rate limiting of the public lead form.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	leadFormLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		KeyPrefix:         "lead_form",
	}, logger)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	leadRepo := repository.NewLeadRepository(db)

	// Initialize services
	catalogService := service.NewCatalogService(productRepo, images, logger)
	leadService := service.NewLeadService(leadRepo, logger)

	// Initialize handlers
	productHandler := transport.NewProductHandler(catalogService, logger)
	leadHandler := transport.NewLeadHandler(leadService, logger)

	// Register routes
	productHandler.RegisterRoutes(router)
	leadHandler.RegisterRoutes(router, leadFormLimiter)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:      cfg,
		logger:      logger,
		dbService:   dbService,
		redisClient: redisClient,
	}

	return server, nil
}

func newImageStore(cfg config.StorageConfig, logger *zap.Logger) (storage.ImageStore, error) {
	if cfg.Bucket == "" {
		logger.Warn("S3 bucket not configured, image uploads disabled")
		return storage.NewS3ImageStore(nil, "", "", logger), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return storage.NewS3ImageStore(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.BaseURL, logger), nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if s.dbService != nil {
		if err := s.dbService.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
