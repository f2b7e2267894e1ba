package app

import (
	"maintech_backend/docs"
	"maintech_backend/internal/config"
	"maintech_backend/internal/middleware"
	"maintech_backend/internal/model"
	"maintech_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由（无需登录）
	a.registerPublicRoutes(router, c, cfg)

	// 2. 学员接口（需要登录）
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理端接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 目录与详情：游客可浏览，登录用户看到已报名课程的完整内容
		public.GET("/categories", c.course.ListCategories)
		public.GET("/courses", c.course.ListPublished)
		public.GET("/courses/:slug", middleware.TryAuthMiddleware(cfg), c.course.GetBySlug)

		// 证书公开验证
		public.GET("/certificates/:code/verify", c.certificate.Verify)

		// 支付网关回调，签名校验在服务内完成
		public.POST("/payments/webhook", c.order.Webhook)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.auth.UpdateProfile)
	rg.PUT("/profile/password", c.auth.ChangePassword)

	// 购买与报名
	rg.POST("/checkout", c.order.Checkout)
	rg.GET("/orders", c.order.ListOrders)
	rg.GET("/orders/:id", c.order.GetOrder)
	rg.GET("/enrollments", c.order.ListEnrollments)

	// 学习进度
	rg.POST("/progress/courses/:courseId/sync", c.progress.SyncProgress)
	rg.GET("/progress/courses/:courseId/summary", c.progress.GetSummary)
	rg.POST("/progress/chapters/:chapterId/read", c.progress.MarkRead)

	// 章节测验
	rg.GET("/chapters/:chapterId/quiz", c.quiz.GetStatus)
	rg.POST("/chapters/:chapterId/quiz/start", c.quiz.StartQuiz)
	rg.POST("/quiz/sessions/:sessionId/submit", c.quiz.SubmitQuiz)

	// 我的证书
	rg.GET("/certificates", c.certificate.ListMine)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Instructor, model.Admin),
	)
	{
		admin.GET("/courses", c.course.ListCourses)
		admin.POST("/courses", c.course.CreateCourse)
		admin.PUT("/courses/:id", c.course.UpdateCourse)
		admin.DELETE("/courses/:id", c.course.DeleteCourse)
		admin.PUT("/courses/:id/publish", c.course.SetPublished)
		admin.POST("/courses/:id/thumbnail", c.course.UploadThumbnail)
		admin.POST("/courses/:id/chapters", c.course.CreateChapter)

		admin.POST("/categories", c.course.CreateCategory)

		admin.PUT("/chapters/:chapterId", c.course.UpdateChapter)
		admin.DELETE("/chapters/:chapterId", c.course.DeleteChapter)
		admin.POST("/chapters/:chapterId/question-groups", c.course.CreateQuestionGroup)
		admin.DELETE("/question-groups/:groupId", c.course.DeleteQuestionGroup)

		admin.POST("/progress/:progressId/reset", c.progress.ResetProgress)
	}

	// 用户管理仅限管理员
	adminOnly := router.Group("/api/admin")
	adminOnly.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		adminOnly.GET("/users", c.user.ListUsers)
		adminOnly.PUT("/users/:id/disabled", c.user.SetDisabled)
	}
}
