// Package main runs the live lecture interaction server with WebSocket
// subscriptions and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/classpulse/backend/config"
	"github.com/classpulse/backend/internal/auth"
	"github.com/classpulse/backend/internal/catalog"
	"github.com/classpulse/backend/internal/events"
	"github.com/classpulse/backend/internal/lectures"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/internal/responses"
	"github.com/classpulse/backend/pkg/database"
	redisclient "github.com/classpulse/backend/pkg/redis"
	"github.com/classpulse/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// The Redis bridge is optional: without it the hub fans out to local
	// subscribers only.
	var bridge events.Bridge
	if cfg.Redis.Addr != "" {
		rdb, err := redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		bridge = events.NewRedisBridge(rdb.Client, logger)
	}

	hub := events.NewHub(logger, cfg.Hub.SubscriberBuffer, bridge)
	defer hub.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	oracles := catalog.NewClient(
		cfg.Catalog.ChapterBaseURL,
		cfg.Catalog.QuestionBaseURL,
		time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second,
		logger,
	)

	lectureRepo := lectures.NewRepository(pool)
	lectureSvc := lectures.NewService(lectureRepo, oracles, oracles, hub, logger)
	lectureHandler := lectures.NewHandler(lectureSvc, logger)

	responseRepo := responses.NewRepository(pool)
	responseSvc := responses.NewService(responseRepo, lectureRepo, oracles, hub, logger)
	responseHandler := responses.NewHandler(responseSvc, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/lectures", lectureHandler.List)
		api.GET("/lectures/:id", lectureHandler.GetByID)
		api.POST("/lectures", middleware.RequireRole(middleware.RoleFaculty), lectureHandler.Create)
		api.PATCH("/lectures/:id/status", middleware.RequireRole(middleware.RoleFaculty), lectureHandler.UpdateStatus)
		api.POST("/lectures/:id/questions", middleware.RequireRole(middleware.RoleFaculty), lectureHandler.AddQuestions)
		api.DELETE("/lectures/:id/questions", middleware.RequireRole(middleware.RoleFaculty), lectureHandler.RemoveQuestions)
		api.PATCH("/lecture-questions/:id/status", middleware.RequireRole(middleware.RoleFaculty), lectureHandler.UpdateQuestionStatus)

		api.POST("/lecture-questions/:id/responses", middleware.RequireRole(middleware.RoleStudent), responseHandler.Create)
		api.GET("/lecture-questions/:id/responses/count", responseHandler.Count)
	}

	// WebSocket subscriptions (token in query; no Authorization header).
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
