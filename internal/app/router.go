package app

import (
	"edu_progress_backend/internal/config"
	"edu_progress_backend/internal/middleware"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), a.rateLimiter(cfg))
	{
		a.registerProgressRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	admin := authGroup.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/catalog/refresh", c.catalog.Refresh)
		admin.PUT("/subscriptions/:userId", c.subscription.UpdateTier)
	}
}

func (a *App) registerProgressRoutes(group *gin.RouterGroup, c *controllers) {
	courses := group.Group("/courses/:courseId")
	{
		courses.POST("/enroll", c.progress.Enroll)
		courses.GET("/progress", c.progress.GetProgress)
	}

	lessons := group.Group("/lessons/:slug")
	{
		lessons.POST("/complete", c.progress.CompleteLesson)
		lessons.POST("/quiz", c.progress.SubmitLessonQuiz)
		lessons.POST("/exercises/:exerciseId", c.progress.RecordExercise)
	}

	group.POST("/chapter-quizzes/:slug/submit", c.progress.SubmitChapterQuiz)
	group.POST("/exams/:slug/submit", c.progress.SubmitFinalExam)

	me := group.Group("/me")
	{
		me.GET("/ledger", c.progress.GetLedger)
		me.GET("/attempts", c.progress.ListAttempts)
	}

	group.GET("/catalog/courses/:idOrSlug", c.catalog.GetCourse)
}
