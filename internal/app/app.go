package app

import (
	"context"
	"edu_progress_backend/internal/config"
	"edu_progress_backend/internal/controller"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/service"
	"edu_progress_backend/internal/util"
	"edu_progress_backend/pkg/configwatcher"
	"edu_progress_backend/pkg/database"
	"edu_progress_backend/pkg/logger"
	"edu_progress_backend/pkg/monitoring"
	"edu_progress_backend/pkg/security"
	"edu_progress_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigPath      string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	cron            *cron.Cron
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	progress     *repository.ProgressRepository
	badge        *repository.BadgeRepository
	attempt      *repository.AttemptRepository
	subscription *repository.SubscriptionRepository
	catalog      repository.CatalogSource
}

type services struct {
	catalog      *service.CatalogService
	subscription *service.SubscriptionService
	completion   *service.CompletionService
}

type controllers struct {
	progress     *controller.ProgressController
	catalog      *controller.CatalogController
	subscription *controller.SubscriptionController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, cfg *config.Config) (*repositories, error) {
	source, err := repository.NewCatalogSource(&cfg.Catalog)
	if err != nil {
		return nil, err
	}
	return &repositories{
		user:         repository.NewUserRepository(db),
		progress:     repository.NewProgressRepository(db),
		badge:        repository.NewBadgeRepository(db),
		attempt:      repository.NewAttemptRepository(db),
		subscription: repository.NewSubscriptionRepository(db),
		catalog:      source,
	}, nil
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	policy, err := service.PolicyFromConfig(cfg.Progress)
	if err != nil {
		return nil, err
	}

	s := &services{}
	s.catalog = service.NewCatalogService(repos.catalog)
	s.subscription = service.NewSubscriptionService(repos.subscription, rdb,
		time.Duration(cfg.Redis.TierTTLSeconds)*time.Second)
	s.completion = service.NewCompletionService(
		repos.user,
		repos.progress,
		repos.badge,
		repos.attempt,
		s.catalog,
		s.subscription,
		service.NewPolicyStore(policy),
		util.SystemClock{Location: policy.Location},
	)
	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		progress:     controller.NewProgressController(s.completion),
		catalog:      controller.NewCatalogController(s.catalog),
		subscription: controller.NewSubscriptionController(s.subscription),
		health:       controller.NewHealthController(db, rdb, s.catalog),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// rateLimiter 认证之后挂载，才能按用户限流
func (a *App) rateLimiter(cfg *config.Config) gin.HandlerFunc {
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	return security.RateLimiter(a.ctx, maxRequests, window)
}

func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	// 启动时加载目录，失败时服务照常启动，等待下次刷新
	if _, err := s.catalog.Refresh(a.ctx); err != nil {
		logger.Log.Error("Initial catalog load failed", zap.Error(err))
	}

	a.cron = cron.New()
	if cfg.Catalog.RefreshCron != "" {
		_, err := a.cron.AddFunc(cfg.Catalog.RefreshCron, func() {
			ctx, cancel := context.WithTimeout(a.ctx, time.Minute)
			defer cancel()
			s.catalog.Refresh(ctx)
		})
		if err != nil {
			logger.Log.Error("Invalid catalog refresh schedule",
				zap.String("spec", cfg.Catalog.RefreshCron), zap.Error(err))
		}
	}
	a.cron.Start()

	// 配置热更新：只替换进度策略，其余配置需要重启
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		policy, err := service.PolicyFromConfig(newCfg.Progress)
		if err != nil {
			logger.Log.Error("Ignoring invalid progress policy", zap.Error(err))
			return
		}
		s.completion.UpdatePolicy(policy)
	})

	if a.ConfigPath != "" {
		go func() {
			err := configwatcher.WatchConfig(a.ctx, a.ConfigPath, func(newCfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(newCfg)
				}
			})
			if err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.ForceMigrate || cfg.Server.Mode == "debug"
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb
	app.ConfigPath = filepath.Join(configDir, "config.yaml")
	app.ctx, app.cancel = context.WithCancel(context.Background())

	repos, err := app.initRepositories(db, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize catalog source", zap.Error(err))
	}
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("progress-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)
	app.startBackgroundTasks(services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 停止定时任务和配置监听
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.cancel != nil {
		a.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
