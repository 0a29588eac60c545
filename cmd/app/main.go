package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbadapter "newsdesk/internal/adapters/database"
	"newsdesk/internal/adapters/httpapi"
	"newsdesk/internal/adapters/llm"
	"newsdesk/internal/adapters/mail"
	redisadapter "newsdesk/internal/adapters/redis"
	"newsdesk/internal/config"
	feedapp "newsdesk/internal/core/feed/service"
	"newsdesk/internal/core/post"
	postapp "newsdesk/internal/core/post/service"
	"newsdesk/internal/core/setting"
	settingapp "newsdesk/internal/core/setting/service"
	"newsdesk/internal/core/user"
	userapp "newsdesk/internal/core/user/service"
	"newsdesk/internal/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// فایل‌های env قبل از لاگر، چون APP_ENV حالت لاگر را تعیین می‌کند
	envFiles := config.LoadEnvFiles()

	logger, err := config.InitLogger(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer logger.Sync() // flush buffer
	for _, f := range envFiles {
		logger.Info("Loaded env file: " + f)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// اتصال به دیتابیس و اجرای مایگریشن‌ها
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("Error connecting to the database", zap.Error(err))
	}
	if err := db.AutoMigrate(&user.User{}, &post.Post{}, &setting.Setting{}); err != nil {
		logger.Fatal("Error during migrations", zap.Error(err))
	}
	logger.Info("✅ Database migrations completed")

	// اتصال به Redis
	redisClient, err := config.InitRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("Error connecting to Redis", zap.Error(err))
	}

	// بستن منابع بعد از اتمام کار سرور
	defer closeResources(logger, db, redisClient)

	// آداپترهای خروجی
	userRepo := dbadapter.NewUserRepositoryDatabase(db)
	postRepo := dbadapter.NewPostRepositoryDatabase(db)
	settingRepo := dbadapter.NewSettingRepositoryDatabase(db)
	feedCache := redisadapter.NewFeedCacheRedis(redisClient, logger)

	// یوزکیس/سرویس‌ها
	userSvc := userapp.NewUserService(userRepo, []byte(cfg.JWTSecret), logger)
	settingSvc := settingapp.NewSettingService(settingRepo)
	postSvc := postapp.NewPostService(postRepo, userRepo, cfg.AutoPublishDelayHours, logger)
	feedSvc := feedapp.NewFeedService(postRepo, feedCache, feedapp.Config{
		Title:       cfg.FeedTitle,
		Link:        cfg.FeedLink,
		Description: cfg.FeedDescription,
		CacheTTL:    cfg.FeedCacheTTL,
	}, logger)
	postSvc.SetFeedInvalidator(feedSvc.InvalidateHook())

	moderator := llm.NewOpenAIModerator(llm.Config{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	}, settingSvc, logger)
	if cfg.OpenAIKey == "" {
		logger.Warn("⚠️ OPENAI_API_KEY is not set; scheduled posts will be recorded as moderation errors")
	}

	notifier := mail.NewSMTPNotifier(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		To:       cfg.NotifyEmail,
	}, logger)

	// یک worker برای کل پروسه؛ توقف فقط با Stop تا tick جاری کامل شود
	autoPublish := workers.NewAutoPublishWorker(postRepo, userRepo, moderator, notifier, logger)
	autoPublish.OnPublish(feedSvc.InvalidateHook())
	autoPublish.Start(context.Background(), cfg.AutoPublishInterval)
	defer autoPublish.Stop()

	// تزریق یوزکیس به آداپتر ورودی
	r := httpapi.SetupRoutes(httpapi.RouterConfig{
		JWTSecret:    []byte(cfg.JWTSecret),
		IngestKeys:   cfg.IngestKeys,
		AllowOrigins: cfg.CORSAllowOrigins,
		Logger:       logger,
		HealthChecks: map[string]httpapi.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	}, userSvc, postSvc, settingSvc, feedSvc)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 App is running...", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

// closeResources بستن اتصالات به Redis و دیتابیس
func closeResources(logger *zap.Logger, db *gorm.DB, redisClient *redis.Client) {
	if err := redisClient.Close(); err != nil {
		logger.Error("Error closing Redis connection", zap.Error(err))
	}

	sqlDB, err := db.DB() // گرفتن *sql.DB از *gorm.DB
	if err != nil {
		logger.Error("Error getting raw DB", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing database connection", zap.Error(err))
	}
}
