package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"acai-delivery-backend/configs"
	"acai-delivery-backend/internal/handlers"
	"acai-delivery-backend/internal/middleware"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/repositories"
	"acai-delivery-backend/internal/services"
	"acai-delivery-backend/internal/upsell"
	"acai-delivery-backend/pkg/auth"
	"acai-delivery-backend/pkg/cache"
	"acai-delivery-backend/pkg/database"
	"acai-delivery-backend/pkg/events"
	"acai-delivery-backend/pkg/logger"
	"acai-delivery-backend/pkg/messaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const imageBucket = "product_images"

func main() {
	// Load configuration
	config := configs.LoadConfig()

	// Set Gin mode
	gin.SetMode(config.Server.Mode)

	zlog, err := logger.New(config.Server.Mode, config.Log.Level)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	db, err := database.NewDatabase(connectCtx, config.Database.PostgresURL, config.Database.MongoURL, config.Database.MongoDBName, zlog)
	cancel()
	if err != nil {
		zlog.Fatal("failed to connect to databases", zap.Error(err))
	}
	defer db.Close()

	if config.Database.AutoMigrate {
		if err := autoMigratePostgres(db); err != nil {
			zlog.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	// Initialize Redis cache
	redisCache, err := cache.NewRedisCache(ctx, config.Redis.URL, config.Redis.Password, config.Redis.DB)
	if err != nil {
		zlog.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	// Initialize Kafka
	kafkaProducer := messaging.NewKafkaProducer(config.Kafka.Brokers)
	defer kafkaProducer.Close()

	// Every instance needs every settings change, so each one reads with its
	// own group. The group survives restarts; a new one starts at the tail
	// since the current settings are loaded from the database anyway.
	kafkaConsumer := messaging.NewKafkaConsumer(config.Kafka.Brokers, messaging.InstanceGroupID(config.Kafka.GroupID), zlog, messaging.FromLatest())
	defer kafkaConsumer.Close()

	jwtManager := auth.NewJWTManager(config.JWT.SecretKey, config.JWT.ExpiryHours, config.JWT.RefreshExpiryDays)
	bus := events.NewBus()

	// Initialize repositories
	userRepo := repositories.NewAttendanceUserRepository(db.Postgres)
	saleRepo := repositories.NewSaleRepository(db.Postgres)
	settingsRepo := repositories.NewSettingsRepository(db.Postgres)

	// MongoDB repositories
	productRepo := repositories.NewProductRepository(db.MongoDB)
	imageStore, err := repositories.NewGridFSImageStore(db.MongoDB, imageBucket)
	if err != nil {
		zlog.Fatal("failed to open image bucket", zap.Error(err))
	}

	// Initialize services
	productService := services.NewProductService(productRepo, redisCache, bus, zlog.Named("products"), config.Upsell.CatalogCacheTTL)
	imageService := services.NewImageService(imageStore, productService, services.ImageOptions{
		MaxUploadBytes: config.Images.MaxUploadBytes,
		MaxDimension:   config.Images.MaxDimension,
		JPEGQuality:    config.Images.JPEGQuality,
	}, zlog.Named("images"))
	settingsService := services.NewSettingsService(settingsRepo, redisCache, bus, kafkaProducer, config.Kafka.SettingsTopic, zlog.Named("settings"))

	paidComplements := upsell.PaidComplements()
	suggestionService := services.NewSuggestionService(
		upsell.NewGenerator(upsell.DefaultPolicy(), paidComplements),
		productService,
		settingsService,
		bus,
		zlog.Named("suggestions"),
		services.SuggestionOptions{
			RotationInterval: config.Upsell.RotationInterval,
			IdleTTL:          config.Upsell.SessionIdleTTL,
		},
	)
	suggestionService.Start()
	defer suggestionService.Stop()

	cartService := services.NewCartService(redisCache, productService, suggestionService, paidComplements, config.Upsell.CartTTL, zlog.Named("carts"))
	attendanceService := services.NewAttendanceService(userRepo, jwtManager, zlog.Named("attendance"))
	saleService := services.NewSaleService(saleRepo, cartService, kafkaProducer, config.Kafka.SalesTopic, zlog.Named("sales"))

	bootstrapAdmin(ctx, attendanceService, config.Admin, zlog)

	go func() {
		err := kafkaConsumer.ConsumeMessages(ctx, config.Kafka.SettingsTopic, settingsService.HandleRemoteChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("settings consumer stopped", zap.Error(err))
		}
	}()

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	authHandler := handlers.NewAuthHandler(attendanceService)
	productHandler := handlers.NewProductHandler(productService, imageService)
	cartHandler := handlers.NewCartHandler(cartService, suggestionService, saleService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	saleHandler := handlers.NewSaleHandler(saleService)

	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(zlog.Named("http")))
	router.Use(middleware.RecoveryMiddleware(zlog))
	router.Use(middleware.CORSMiddleware(config.Server.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		if err := redisCache.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "redis unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "acai-delivery-backend",
		})
	})

	api := router.Group("/api/v1")

	authHandler.RegisterRoutes(api, authMiddleware)
	productHandler.RegisterRoutes(api, authMiddleware)
	cartHandler.RegisterRoutes(api, authMiddleware)
	settingsHandler.RegisterRoutes(api, authMiddleware)
	saleHandler.RegisterRoutes(api, authMiddleware)

	srv := &http.Server{
		Addr:              ":" + config.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("port", config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}
}

func autoMigratePostgres(db *database.Database) error {
	return db.Postgres.AutoMigrate(
		&models.AttendanceUser{},
		&models.Sale{},
		&models.SaleItem{},
		&models.OrderSettings{},
	)
}

// bootstrapAdmin creates the configured admin when no operator exists yet.
func bootstrapAdmin(ctx context.Context, svc *services.AttendanceService, cfg configs.AdminConfig, log *zap.Logger) {
	if cfg.Username == "" || cfg.Password == "" {
		return
	}
	users, err := svc.ListUsers(ctx)
	if err != nil {
		log.Warn("could not check for existing operators", zap.Error(err))
		return
	}
	if len(users) > 0 {
		return
	}
	user, err := svc.CreateUser(ctx, &services.CreateUserRequest{
		Username: cfg.Username,
		Password: cfg.Password,
		Name:     "Administrador",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		log.Error("failed to create bootstrap admin", zap.Error(err))
		return
	}
	log.Info("bootstrap admin created", zap.String("username", user.Username))
}
