package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/replyon/replyon-backend/internal/collaborator"
	"github.com/replyon/replyon-backend/internal/config"
	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/internal/handler"
	"github.com/replyon/replyon-backend/internal/middleware"
	"github.com/replyon/replyon-backend/internal/repository"
	"github.com/replyon/replyon-backend/internal/scheduler"
	"github.com/replyon/replyon-backend/internal/service"
	pkgcache "github.com/replyon/replyon-backend/pkg/cache"
	pkglogger "github.com/replyon/replyon-backend/pkg/logger"
	pkgredis "github.com/replyon/replyon-backend/pkg/redis"
	"github.com/replyon/replyon-backend/pkg/vault"
)

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	// 로거 초기화
	pkglogger.Init()
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	// MySQL 연결
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")

	if err := db.AutoMigrate(&domain.Review{}, &domain.StorePolicy{}, &domain.GenerationHistoryEntry{}); err != nil {
		pkglogger.Warn("Migration warning: %v", err)
	}

	go func() {
		for range time.Tick(15 * time.Second) {
			if sqlDB, err := db.DB(); err == nil {
				middleware.SetDBConnectionsActive(float64(sqlDB.Stats().InUse))
			}
		}
	}()

	// Redis 연결 (없어도 동작)
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Warn("Failed to connect to Redis: %v (continuing without cache)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}
	cacheService := pkgcache.NewService(redisClient)

	// 자격증명 볼트
	credVault, err := vault.New(cfg.Vault.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to init credential vault: %v", err)
	}

	// Repositories
	reviewRepo := repository.NewReviewRepository(db)
	policyRepo := repository.NewStorePolicyRepository(db)
	historyRepo := repository.NewGenerationHistoryRepository(db)

	// Collaborators
	registry := newAgentRegistry(cfg)
	generator := collaborator.NewOpenAIReplyGenerator(
		cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout.Std())

	// Services
	auto := cfg.Automation
	collectorSvc := service.NewCollectorService(policyRepo, reviewRepo, registry, credVault,
		auto.CrawlTimeout.Std(), auto.CollectFetchLimit)
	generationSvc := service.NewGenerationService(reviewRepo, policyRepo, historyRepo, generator,
		auto.GenerationConcurrency)
	postingSvc := service.NewPostingService(reviewRepo, policyRepo, registry, credVault,
		auto.PostTimeout.Std(), auto.NormalPostLimit, auto.BossPostLimit)
	statusSvc := service.NewStatusService(reviewRepo, historyRepo, cacheService)

	// Scheduler
	sched := scheduler.New(schedulerLogger{})
	automation := scheduler.NewAutomation(sched, collectorSvc, generationSvc, postingSvc,
		auto, schedulerLogger{})
	if os.Getenv("AUTOMATION_MODE") == "steady" {
		automation.StartSteady()
	} else {
		automation.StartBootstrap(context.Background())
	}
	defer automation.Stop()

	// Gin 라우터 생성
	if env != "local" && env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS 설정
	corsConfig := cors.Config{
		AllowOrigins:     splitAndTrim(corsOrigins(), ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.Metrics())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "replyon-backend",
			"time":    time.Now().Unix(),
		})
	})

	// API routes
	automationHandler := handler.NewAutomationHandler(automation, collectorSvc, statusSvc)
	api := router.Group("/api/v1")
	{
		api.GET("/automation/tasks", automationHandler.ListTasks)
		api.POST("/automation/collect", automationHandler.TriggerCollect)
		api.POST("/automation/generate", automationHandler.TriggerGenerate)
		api.POST("/automation/post", automationHandler.TriggerPost)
		api.POST("/automation/bootstrap", automationHandler.TriggerBootstrap)
		api.POST("/stores/:store_code/collect", automationHandler.CollectStore)
		api.GET("/stores/:store_code/pending-count", automationHandler.GetPendingCount)
		api.GET("/reviews/:review_id/status", automationHandler.GetReviewStatus)
		api.GET("/reviews/:review_id/history", automationHandler.GetGenerationHistory)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	pkglogger.Info("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newAgentRegistry 플랫폼별 브라우저 에이전트 클라이언트로 레지스트리 구성.
// 에이전트는 하나의 프로세스가 네 플랫폼 엔드포인트를 모두 제공한다.
func newAgentRegistry(cfg *config.Config) *collaborator.Registry {
	// 크롤/등록 중 더 긴 쪽에 맞춘다. 작업별 세부 제한은 서비스 ctx가 건다.
	timeout := cfg.Automation.PostTimeout.Std()
	if ct := cfg.Automation.CrawlTimeout.Std(); ct > timeout {
		timeout = ct
	}

	set := func(p domain.Platform) collaborator.PlatformSet {
		agent := collaborator.NewRemoteAgent(cfg.Agent.BaseURL, cfg.Agent.Token, p, timeout)
		return collaborator.PlatformSet{Crawler: agent, Poster: agent}
	}
	return collaborator.NewRegistry(
		set(domain.PlatformBaemin),
		set(domain.PlatformCoupang),
		set(domain.PlatformYogiyo),
		set(domain.PlatformNaver),
	)
}

// initDB MySQL 연결 초기화
func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("DSN 파싱 실패: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}
	mysqlCfg.Params["time_zone"] = "'+09:00'"

	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	db.Exec("SET NAMES utf8mb4")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}

func corsOrigins() string {
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		return v
	}
	return "http://localhost:3000"
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// schedulerLogger printf 로거를 스케줄러 Logger 인터페이스에 맞춘다
type schedulerLogger struct{}

func (schedulerLogger) Info(format string, args ...interface{}) {
	pkglogger.Info(format, args...)
}

func (schedulerLogger) Error(format string, args ...interface{}) {
	pkglogger.Error(format, args...)
}
