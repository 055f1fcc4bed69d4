package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"bikeshop-backend/internal/config"
	infraCache "bikeshop-backend/internal/infrastructure/cache"
	"bikeshop-backend/internal/infrastructure/database"
	"bikeshop-backend/internal/infrastructure/kafka"
	"bikeshop-backend/internal/infrastructure/memstore"
	"bikeshop-backend/internal/infrastructure/queue"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/pkg/cache"
	pkgdb "bikeshop-backend/pkg/database"
	"bikeshop-backend/pkg/jwt"
	"bikeshop-backend/pkg/logger"

	bookingHandler "bikeshop-backend/internal/domains/booking/handler"
	bookingService "bikeshop-backend/internal/domains/booking/service"
	couponHandler "bikeshop-backend/internal/domains/coupon/handler"
	couponRepo "bikeshop-backend/internal/domains/coupon/repository"
	couponService "bikeshop-backend/internal/domains/coupon/service"
	requestHandler "bikeshop-backend/internal/domains/request/handler"
	requestRepo "bikeshop-backend/internal/domains/request/repository"
	requestService "bikeshop-backend/internal/domains/request/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph shared by the API and the
// worker binaries. Every field is a singleton for the process lifetime.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	Catalog     *config.Catalog
	DB          *database.PostgresDB // nil with the memory driver
	Memory      *memstore.Store      // nil with the postgres driver
	Redis       *infraCache.RedisClient
	Cache       cache.Cache // nil when Redis is unreachable at startup
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client
	Events      shared.EventPublisher
	Transactor  pkgdb.Transactor

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	CouponRepo  couponRepo.CouponRepository
	UsageLedger couponRepo.UsageLedger
	RequestRepo requestRepo.RequestRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	CouponService  couponService.ServiceInterface
	RequestService requestService.ServiceInterface
	BookingService bookingService.ServiceInterface

	// ========================================
	// HANDLER LAYER
	// ========================================
	CouponPublicHandler *couponHandler.PublicHandler
	CouponAdminHandler  *couponHandler.AdminHandler
	RequestHandler      *requestHandler.Handler
	BookingHandler      *bookingHandler.Handler

	producer *kafka.Producer
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the graph in dependency order:
// config, infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)

	c := &Container{Config: cfg}
	logger.Info("Initializing container", map[string]interface{}{
		"environment":    cfg.App.Environment,
		"storage_driver": cfg.Storage.Driver,
	})

	catalog, err := config.LoadCatalog(cfg.Booking.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	c.Catalog = catalog

	if err := c.initStorage(); err != nil {
		return nil, err
	}
	c.initRedis()
	c.initEvents()

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)
	c.AsynqClient = asynq.NewClient(c.RedisConnOpt())

	c.initServices()
	c.initHandlers()

	logger.Info("Container initialized", nil)
	return c, nil
}

// RedisConnOpt is the asynq connection shared by client, server and scheduler.
func (c *Container) RedisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initStorage() error {
	if c.Config.Storage.Driver == "memory" {
		store := memstore.New()
		c.Memory = store
		c.Transactor = store
		c.CouponRepo = store.Coupons()
		c.UsageLedger = store.Usages()
		c.RequestRepo = store.Requests()
		logger.Warn("Using in-memory storage; data is lost on restart", nil)
		return nil
	}

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db

	pool := db.Pool
	c.Transactor = pkgdb.NewSerializableTransactor(pool)
	c.CouponRepo = couponRepo.NewPostgresRepository(pool)
	c.UsageLedger = couponRepo.NewPostgresUsageLedger(pool)
	c.RequestRepo = requestRepo.NewPostgresRepository(pool)
	return nil
}

// initRedis connects the cache. Redis is not critical for correctness:
// without it the available-coupon list is computed on every call.
func (c *Container) initRedis() {
	c.Redis = infraCache.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Redis.Connect(ctx); err != nil {
		logger.Warn("Redis connection failed, coupon cache disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	c.Cache = infraCache.NewRedisCache(c.Redis.Client)
}

func (c *Container) initEvents() {
	if !c.Config.Kafka.Enabled() {
		c.Events = shared.NopPublisher{}
		logger.Info("Kafka not configured, domain events are dropped", nil)
		return
	}

	c.producer = kafka.NewProducer(c.Config.Kafka.Brokers, c.Config.Kafka.Topic)
	c.Events = c.producer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.producer.CheckConnection(ctx); err != nil {
		logger.Warn("Kafka unreachable at startup", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Container) initServices() {
	couponOpts := []couponService.Option{couponService.WithCacheTTL(c.Config.Booking.CouponCacheTTL)}
	if c.Cache != nil {
		couponOpts = append(couponOpts, couponService.WithCache(c.Cache))
	}
	c.CouponService = couponService.NewCouponService(c.CouponRepo, c.UsageLedger, couponOpts...)

	c.RequestService = requestService.NewRequestService(c.RequestRepo,
		requestService.WithPublisher(c.Events),
		requestService.WithExpiryWindow(c.Config.Booking.ExpiryWindow),
		requestService.WithSweepBatchSize(c.Config.Jobs.SweepBatchSize),
	)

	c.BookingService = bookingService.NewBookingService(
		bookingService.NewPricer(c.Catalog),
		c.CouponService,
		c.RequestService,
		c.Transactor,
		bookingService.WithExpiryScheduler(queue.NewExpiryScheduler(c.AsynqClient)),
		bookingService.WithPublisher(c.Events),
	)
}

func (c *Container) initHandlers() {
	c.CouponPublicHandler = couponHandler.NewPublicHandler(c.CouponService)
	c.CouponAdminHandler = couponHandler.NewAdminHandler(c.CouponService)
	c.RequestHandler = requestHandler.NewHandler(c.RequestService)
	c.BookingHandler = bookingHandler.NewHandler(c.BookingService)
}

// ========================================
// HEALTH AND CLEANUP
// ========================================

// HealthCheck reports the state of each dependency ("ok", "disabled" or an error).
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"storage": "ok", "redis": "ok"}

	if c.DB != nil {
		if err := c.DB.HealthCheck(ctx); err != nil {
			status["storage"] = err.Error()
		}
	}

	if c.Redis != nil {
		if err := c.Redis.HealthCheck(ctx); err != nil {
			status["redis"] = err.Error()
		}
	}

	if c.producer == nil {
		status["kafka"] = "disabled"
	} else {
		status["kafka"] = "ok"
	}
	return status
}

// Cleanup releases connections on shutdown.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("Failed to close asynq client", err)
		}
	}

	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			logger.Error("Failed to close kafka producer", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("Failed to close database", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("Failed to close redis", err)
		}
	}

	logger.Info("Container cleanup completed", nil)
}
