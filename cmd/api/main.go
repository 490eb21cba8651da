package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imageAttach/cmd/app"
	"imageAttach/internal/config"
	handlers "imageAttach/internal/handler"
	"imageAttach/internal/logger"
	"imageAttach/internal/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	// setting up config
	cfg := config.LoadConfig()

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.JWTSecretKey == "" {
		logger.Log.Fatal("JWT_SECRET_KEY is not set")
	}

	a := app.New(cfg)
	defer a.Close()

	handler := handlers.NewHandlers(a.Services, a.Storage, a.DB, cfg)

	// setting up routes
	router := mux.NewRouter()
	handler.Routes(router, handlers.RouteMiddleware{
		Upload:     middleware.NewThrottle(cfg.Throttle.UploadRate, cfg.Throttle.UploadBurst).Middleware,
		Idempotent: middleware.Idempotency(a.Idempotency, cfg.Idempotency.Namespace, cfg.Idempotency.TTL),
	})

	throttle := middleware.NewThrottle(cfg.Throttle.Rate, cfg.Throttle.Burst)

	handlerChain := middleware.Chain(
		router,
		throttle.Middleware,
		middleware.AuthMiddleware(a.Services.Auth),
		middleware.CORSMiddleware,
		middleware.LoggingMiddleware,
		middleware.RecoverMiddleware,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           handlerChain,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Starting the server
	go func() {
		logger.Log.Info("server started",
			zap.String("addr", server.Addr),
			zap.String("database", cfg.DB.DbNAME),
			zap.String("bucket", cfg.MinIO.BucketName),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}
}
