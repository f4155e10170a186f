package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"luxtravel/internal/cache"
	"luxtravel/internal/catalog"
	"luxtravel/internal/config"
	"luxtravel/internal/database"
	"luxtravel/internal/external"
	"luxtravel/internal/handlers"
	"luxtravel/internal/logger"
	"luxtravel/internal/messaging"
	"luxtravel/internal/metrics"
	"luxtravel/internal/middleware"
	"luxtravel/internal/repository"
	"luxtravel/internal/search"
	"luxtravel/internal/service"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	services *service.Services
	metrics  *metrics.Metrics

	db           *database.DB
	nats         *messaging.NATSClient
	redis        *redis.Client
	catalogIndex *search.CatalogIndex
}

// NewServer подключает хранилище, каталог, кеш, NATS и платежный шлюз согласно конфигурации
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{config: cfg, metrics: metrics.New()}
	log := logger.Get()

	static, err := catalog.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var provider catalog.Provider = static
	if cfg.CatalogBackend == "elasticsearch" {
		s.catalogIndex, err = search.NewCatalogIndex(ctx, cfg.Elasticsearch, static)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
		}
		if cfg.Elasticsearch.SeedOnStart {
			if err := s.catalogIndex.IndexItems(ctx, static.Items()); err != nil {
				return nil, fmt.Errorf("failed to seed catalog index: %w", err)
			}
		}
		provider = s.catalogIndex
		log.Info("Catalog served from elasticsearch", "index", cfg.Elasticsearch.Index)
	}

	var store repository.BookingStore
	switch cfg.StorageBackend {
	case "postgres":
		s.db, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := s.db.RunMigrations(ctx); err != nil {
			s.Cleanup()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		store = repository.NewBookingRepository(s.db)
	default:
		log.Warn("Using in-memory booking store, bookings are lost on restart")
		store = repository.NewMemoryBookingRepository()
	}

	opts := []service.Option{
		service.WithMetrics(s.metrics),
		service.WithPaymentTimeout(cfg.Payment.Timeout),
		service.WithNotificationVerifier(external.NewNotificationVerifier(cfg.Payment)),
	}

	var queryCache service.QueryCache
	if cfg.Cache.Enabled {
		s.redis, err = cache.NewClient(ctx, cfg.Cache)
		if err != nil {
			s.Cleanup()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		queryCache = cache.NewCatalogCache(s.redis, cfg.Cache.CatalogTTL)
		opts = append(opts, service.WithIdempotencyStore(cache.NewIdempotencyStore(s.redis, cfg.Cache.IdempotencyTTL)))
	}

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATS.Enabled {
		s.nats, err = messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			s.Cleanup()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher = s.nats
	}

	gateway, err := external.NewGateway(cfg.Payment)
	if err != nil {
		s.Cleanup()
		return nil, fmt.Errorf("failed to create payment gateway: %w", err)
	}

	s.services = service.NewServices(provider, queryCache, store, gateway, publisher, opts...)
	s.setupRouter()

	return s, nil
}

// New собирает сервер из готовых сервисов, без внешних подключений
func New(cfg *config.Config, services *service.Services, m *metrics.Metrics) *Server {
	s := &Server{config: cfg, services: services, metrics: m}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	// Устанавливаем режим Gin
	gin.SetMode(s.config.GinMode)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	if s.metrics != nil {
		router.Use(s.metrics.Middleware())
	}
	router.Use(middleware.CORS(s.config.CORSOrigins))

	s.router = router
	s.setupRoutes()
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.Timeout(s.config.RequestTimeout))
	api.Use(middleware.UserID(s.config.DefaultUserID))
	{
		catalogRoutes := api.Group("/catalog")
		{
			catalogRoutes.GET("", h.ListCatalog)
			catalogRoutes.GET("/:id", h.GetCatalogItem)
		}

		api.GET("/addons", h.ListAddOns)
		api.POST("/quote", h.Quote)

		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("", h.ListBookings)
			bookings.GET("/:id", h.GetBooking)
			bookings.POST("/:id/pay", h.PayBooking)
			bookings.POST("/:id/cancel", h.CancelBooking)
			bookings.POST("/:id/complete", h.CompleteBooking)
			bookings.POST("/:id/reprice", h.RepriceBooking)
			bookings.PATCH("/pay", h.PayBookingByBody)
			bookings.PATCH("/cancel", h.CancelBookingByBody)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/notifications", h.OnPaymentUpdates)
		}
	}

	// Health check endpoint
	s.router.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if s.db != nil {
		dbHealth := s.db.HealthCheck(ctx)
		checks["database"] = dbHealth
		if dbHealth.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
	}
	if s.catalogIndex != nil {
		if err := s.catalogIndex.HealthCheck(ctx); err != nil {
			checks["elasticsearch"] = gin.H{"status": "unhealthy", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			checks["elasticsearch"] = gin.H{"status": "healthy"}
		}
	}
	if s.redis != nil {
		// кеш необязателен, его недоступность не делает сервис нездоровым
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = gin.H{"status": "degraded", "error": err.Error()}
		} else {
			checks["redis"] = gin.H{"status": "healthy"}
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": "luxtravel-api",
		"version": "1.0.0",
		"checks":  checks,
	})
}

// Services возвращает сервисы для фоновых задач
func (s *Server) Services() *service.Services {
	return s.services
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() {
	log := logger.Get()

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error("Error closing redis connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
		}
	}
}
