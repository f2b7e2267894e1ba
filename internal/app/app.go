package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maintech_backend/internal/config"
	"maintech_backend/internal/controller"
	"maintech_backend/internal/repository"
	"maintech_backend/internal/service"
	"maintech_backend/pkg/configwatcher"
	"maintech_backend/pkg/database"
	"maintech_backend/pkg/logger"
	"maintech_backend/pkg/monitoring"
	"maintech_backend/pkg/security"
	"maintech_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	cron            *cron.Cron
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	course      *repository.CourseRepository
	quiz        *repository.QuizRepository
	progress    *repository.ProgressRepository
	order       *repository.OrderRepository
	certificate *repository.CertificateRepository
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	storage     *service.StorageService
	course      *service.CourseService
	quiz        *service.QuizService
	progress    *service.ProgressService
	payment     *service.PaymentService
	certificate *service.CertificateService
	email       *service.EmailService
}

type controllers struct {
	auth        *controller.AuthController
	course      *controller.CourseController
	quiz        *controller.QuizController
	progress    *controller.ProgressController
	order       *controller.OrderController
	certificate *controller.CertificateController
	user        *controller.UserController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		course:      repository.NewCourseRepository(db),
		quiz:        repository.NewQuizRepository(db),
		progress:    repository.NewProgressRepository(db),
		order:       repository.NewOrderRepository(db),
		certificate: repository.NewCertificateRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.email = service.NewEmailService(&cfg.Email)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, db)
	s.course = service.NewCourseService(repos.course, repos.quiz, s.storage, rdb)
	s.certificate = service.NewCertificateService(
		repos.certificate,
		repos.progress,
		repos.course,
		repos.order,
		repos.user,
		s.email,
	)
	s.quiz = service.NewQuizService(repos.quiz, repos.progress, repos.course, repos.order, s.certificate, cfg)
	s.progress = service.NewProgressService(repos.progress, repos.course, repos.quiz, repos.order, s.certificate)
	s.payment = service.NewPaymentService(repos.order, repos.course, repos.user, s.email, &cfg.Payment)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth, s.user),
		course:      controller.NewCourseController(s.course, s.payment),
		quiz:        controller.NewQuizController(s.quiz),
		progress:    controller.NewProgressController(s.progress),
		order:       controller.NewOrderController(s.payment),
		certificate: controller.NewCertificateController(s.certificate),
		user:        controller.NewUserController(s.user),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundJobs 定时任务：到点发布课程、清理过期的测验锁定
func (a *App) startBackgroundJobs(s *services, repos *repositories) {
	a.cron = cron.New()

	a.cron.AddFunc("@every 1m", func() {
		s.course.ProcessScheduledPublishes(context.Background())
	})

	a.cron.AddFunc("@hourly", func() {
		count, err := repos.progress.SweepExpiredLocks(time.Now())
		if err != nil {
			logger.Log.Error("Expired lock sweep failed", zap.Error(err))
			return
		}
		if count > 0 {
			logger.Log.Info("Cleared expired quiz locks", zap.Int64("count", count))
		}
	})

	a.cron.Start()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("maintech-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundJobs(services, repos)

	// 配置文件热加载，业务参数改动无需重启
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		logger.Log.Info("Config reloaded")
		app.Config.Quiz = newCfg.Quiz
		app.Config.RateLimit = newCfg.RateLimit
		for _, callback := range app.configCallbacks {
			callback(newCfg)
		}
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

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

	if a.cron != nil {
		a.cron.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
