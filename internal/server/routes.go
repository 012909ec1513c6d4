package server

import (
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	authHandler *handlers.AuthHandler,
	budgetHandler *handlers.BudgetHandler,
	expenseHandler *handlers.RecordHandler,
	incomeHandler *handlers.RecordHandler,
	chatHandler *handlers.ChatHandler,
	completionHandler *handlers.CompletionHandler,
	statsHandler *handlers.StatsHandler,
	exportHandler *handlers.ExportHandler,
	notificationHandler *handlers.NotificationHandler,
	authMiddleware echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
	aiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", handlers.Health)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", authRateLimiter)

	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authHandler.Me, authMiddleware)

	budgets := api.Group("/budgets", authMiddleware)
	budgets.GET("", budgetHandler.List)
	budgets.POST("", budgetHandler.Create)
	budgets.DELETE("/:id", budgetHandler.Delete)

	expenses := api.Group("/expenses", authMiddleware)
	expenses.GET("", expenseHandler.List)
	expenses.POST("", expenseHandler.Create)
	expenses.DELETE("/:id", expenseHandler.Delete)

	incomes := api.Group("/incomes", authMiddleware)
	incomes.GET("", incomeHandler.List)
	incomes.POST("", incomeHandler.Create)
	incomes.DELETE("/:id", incomeHandler.Delete)

	chat := api.Group("/chat", authMiddleware)
	chat.POST("/messages", chatHandler.SendMessage, aiRateLimiter)
	chat.GET("/messages", chatHandler.History)
	chat.DELETE("/messages", chatHandler.ClearHistory)
	chat.GET("/actions", chatHandler.PendingActions)
	chat.POST("/actions/:id/confirm", chatHandler.ConfirmAction)
	chat.DELETE("/actions/:id", chatHandler.CancelAction)

	aiGroup := api.Group("/ai", authMiddleware, aiRateLimiter)
	aiGroup.POST("/completions", completionHandler.Complete)

	stats := api.Group("/stats", authMiddleware)
	stats.GET("/overview", statsHandler.Overview)
	stats.GET("/monthly", statsHandler.Monthly)

	exports := api.Group("/exports", authMiddleware)
	exports.GET("/json", exportHandler.ExportJSON)
	exports.GET("/csv", exportHandler.ExportCSV)

	notifications := api.Group("/notifications", authMiddleware)
	notifications.GET("/stream", notificationHandler.Stream)
}
