package router

import (
	"time"

	"budgetwise/api"
	"budgetwise/config"
	_ "budgetwise/docs"
	"budgetwise/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// 登录限流：同一IP每分钟最多10次尝试
	loginLimit := middleware.LoginRateLimit(10, time.Minute)

	// 认证相关路由
	authHandler := api.NewAuthHandler(cfg)
	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", loginLimit, authHandler.FormLogin)
		auth.POST("/user/login", loginLimit, authHandler.Login)
		auth.POST("/user/refresh-token", authHandler.RefreshToken)

		authed := auth.Group("", middleware.JWTAuth())
		{
			authed.GET("/protected-route", authHandler.ProtectedRoute)
			authed.DELETE("/account", authHandler.DeleteAccount)
		}
	}

	// 后台管理 API
	adminHandler := api.NewAdminHandler(cfg)
	admin := r.Group("/admin")
	{
		admin.POST("/login", loginLimit, adminHandler.Login)
		admin.POST("/register", adminHandler.Register)

		adminAuth := admin.Group("", middleware.AdminAuth())
		{
			adminAuth.GET("/users", adminHandler.GetAllUsers)
			adminAuth.GET("/expenses", adminHandler.GetAllExpenses)
			adminAuth.DELETE("/users/:id", adminHandler.DeleteUser)
			adminAuth.GET("/export/excel", adminHandler.ExportExcel)
		}
	}

	// 需要 JWT 认证的用户路由
	authorized := r.Group("", middleware.JWTAuth())
	{
		// 消费记录
		expenseHandler := api.NewExpenseHandler()
		expenses := authorized.Group("/expenses")
		{
			expenses.POST("/", expenseHandler.Create)
			expenses.GET("/", expenseHandler.List)
			expenses.GET("/statistics", expenseHandler.GetStatistics)
			expenses.GET("/export/csv", expenseHandler.ExportCSV)
			expenses.GET("/:id", expenseHandler.Get)
			expenses.PUT("/:id", expenseHandler.Update)
			expenses.DELETE("/:id", expenseHandler.Delete)
		}

		// 消费类别
		categoryHandler := api.NewCategoryHandler()
		categories := authorized.Group("/categories")
		{
			categories.POST("/", categoryHandler.Create)
			categories.GET("/", categoryHandler.List)
			categories.PUT("/:id", categoryHandler.Update)
			categories.DELETE("/:id", categoryHandler.Delete)
		}

		// 预算
		budgetHandler := api.NewBudgetHandler()
		budgets := authorized.Group("/budgets")
		{
			budgets.POST("/general", budgetHandler.CreateGeneralBudget)
			budgets.GET("/general", budgetHandler.ListGeneralBudgets)
			budgets.PUT("/general/:id", budgetHandler.UpdateGeneralBudget)
			budgets.DELETE("/general/:id", budgetHandler.DeleteGeneralBudget)
			budgets.POST("/category", budgetHandler.CreateCategoryBudget)
			budgets.GET("/category", budgetHandler.ListCategoryBudgets)
			budgets.PUT("/category/:id", budgetHandler.UpdateCategoryBudget)
			budgets.DELETE("/category/:id", budgetHandler.DeleteCategoryBudget)
		}

		// 提醒阈值
		alertHandler := api.NewAlertHandler()
		alerts := authorized.Group("/alerts")
		{
			alerts.POST("/", alertHandler.CreateAlert)
			alerts.GET("/", alertHandler.GetAlerts)
			alerts.PUT("/", alertHandler.UpdateAlert)
			alerts.DELETE("/", alertHandler.DeleteAlert)
		}

		// 通知
		notificationHandler := api.NewNotificationHandler()
		notifications := authorized.Group("/notifications")
		{
			notifications.GET("/", notificationHandler.List)
			notifications.GET("/stream", notificationHandler.Stream)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
			notifications.DELETE("/:id", notificationHandler.Delete)
		}

		// 共享群组
		groupHandler := api.NewGroupHandler()
		groups := authorized.Group("/groups")
		{
			groups.POST("/", groupHandler.Create)
			groups.GET("/", groupHandler.List)
			groups.DELETE("/:id", groupHandler.Delete)
			groups.POST("/:id/members", groupHandler.AddMember)
			groups.GET("/:id/members", groupHandler.ListMembers)
			groups.PUT("/:id/members/status", groupHandler.UpdateMemberStatus)
			groups.POST("/:id/expenses", groupHandler.CreateExpense)
			groups.GET("/:id/expenses", groupHandler.ListExpenses)
			groups.GET("/:id/debts", groupHandler.ListDebts)
			groups.POST("/:id/settlements", groupHandler.Settle)
		}
	}

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
