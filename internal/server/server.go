package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/finance-tracker/backend/internal/agent"
	"example.com/finance-tracker/backend/internal/ai"
	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/config"
	"example.com/finance-tracker/backend/internal/handlers"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/notifications"
	"example.com/finance-tracker/backend/internal/repository"
	"example.com/finance-tracker/backend/internal/store"
)

// New assembles the Echo HTTP server with all routes and dependencies.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	chatRepo := repository.NewChatRepository(db)
	agentLogRepo := repository.NewAgentLogRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	notificationHub := notifications.NewHub()

	aiClient := newAIClient(cfg.AI)
	ledger := store.NewLedger(budgetRepo, recordRepo)
	agentSvc := agent.New(aiClient, ledger, chatRepo, budgetRepo, recordRepo, agent.Options{
		HistorySize: cfg.Agent.HistorySize,
		Audit:       agentLogRepo,
		Logger:      logger,
	})

	authHandler := handlers.NewAuthHandler(userRepo, tokenRepo, tokenManager)
	budgetHandler := handlers.NewBudgetHandler(budgetRepo, recordRepo, ledger, notificationHub)
	expenseHandler := handlers.NewRecordHandler(models.RecordKindExpense, recordRepo, budgetRepo, ledger, notificationHub)
	incomeHandler := handlers.NewRecordHandler(models.RecordKindIncome, recordRepo, budgetRepo, ledger, notificationHub)
	chatHandler := handlers.NewChatHandler(agentSvc, chatRepo, notificationHub)
	completionHandler := handlers.NewCompletionHandler(aiClient)
	statsHandler := handlers.NewStatsHandler(statsRepo)
	exportHandler := handlers.NewExportHandler(budgetRepo, recordRepo)
	notificationHandler := handlers.NewNotificationHandler(notificationHub)

	registerRoutes(
		e,
		authHandler,
		budgetHandler,
		expenseHandler,
		incomeHandler,
		chatHandler,
		completionHandler,
		statsHandler,
		exportHandler,
		notificationHandler,
		auth.JWTMiddleware(tokenManager),
		authRateLimiter(cfg.Auth),
		newFixedWindowLimiter(cfg.AI.RateLimitWindow, cfg.AI.RateLimitCount).Middleware(),
	)

	return e
}

func newAIClient(cfg config.AIConfig) ai.Client {
	switch cfg.Provider {
	case "gemini":
		return ai.NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.Temperature, cfg.MaxOutputTokens)
	default:
		return ai.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.Temperature, cfg.MaxOutputTokens)
	}
}

// NewHTTPServer creates the net/http server with the configured timeouts.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.RateLimitBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
