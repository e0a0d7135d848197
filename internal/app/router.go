package app

import (
	"classroom_backend/docs"
	"classroom_backend/internal/config"
	"classroom_backend/internal/middleware"
	"classroom_backend/internal/model"
	"classroom_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)

		// 学生/教师 共用接口，权限在服务层按角色区分
		a.registerSharedRoutes(authGroup, c)

		// 学生作答接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerTeacherRoutes(authGroup, c)

		// 管理员相关接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerSharedRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/classes", c.class.ListClasses)
	rg.GET("/assessments", c.assessment.ListAssessments)
	rg.GET("/assessments/:id", c.assessment.GetAssessment)
	rg.GET("/submissions/:id", c.submission.GetSubmission)
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/assessments/:id/start", c.submission.StartSubmission)
		student.PUT("/submissions/:id/answers", c.submission.SaveAnswers)
		student.POST("/submissions/:id/submit", c.submission.Submit)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		// 班级管理
		teacher.POST("/classes", c.class.CreateClass)
		teacher.GET("/classes/:id/members", c.class.ListMembers)
		teacher.POST("/classes/:id/members", c.class.AddMember)
		teacher.DELETE("/classes/:id/members/:studentId", c.class.RemoveMember)

		// 测评管理
		teacher.POST("/assessments", c.assessment.CreateAssessment)
		teacher.PUT("/assessments/:id", c.assessment.UpdateAssessment)
		teacher.DELETE("/assessments/:id", c.assessment.DeleteAssessment)
		teacher.POST("/assessments/:id/assign", c.assessment.AssignAssessment)
		teacher.POST("/assessments/:id/cancel", c.assessment.CancelAssessment)
		teacher.GET("/assessments/:id/submissions", c.assessment.ListSubmissions)
		teacher.POST("/assessments/:id/publish", c.assessment.PublishAll)
		teacher.POST("/assessments/:id/export", c.assessment.ExportResults)

		// 评分
		teacher.POST("/submissions/:id/grade", c.submission.Grade)
		teacher.PUT("/submissions/:id/answers/:answerId/score", c.submission.OverrideScore)
		teacher.POST("/submissions/:id/publish", c.submission.Publish)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/lifecycle/sweep", c.admin.RunSweep)
	}
}
