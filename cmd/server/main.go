package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/config"
	firestoreclient "github.com/weiwei-tsao/tenant-reconciler/internal/platform/firestore"
	apirouter "github.com/weiwei-tsao/tenant-reconciler/internal/platform/http"
	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/logging"
	"github.com/weiwei-tsao/tenant-reconciler/internal/repository"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	gin.SetMode(cfg.Server.GinMode)

	firestoreClient, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		logger.Fatal("firestore init", zap.Error(err))
	}
	defer firestoreClient.Close()

	if err := firestoreclient.Ping(ctx, firestoreClient); err != nil {
		logger.Fatal("firestore ping", zap.Error(err))
	}
	logger.Info("connected to firestore",
		zap.String("project", cfg.FirebaseProjectID),
		zap.String("credentials", credsSource))

	runRepo := repository.NewRunRepository(firestoreClient, cfg.Reconcile.RunsCollection)
	router := apirouter.NewRouter(runRepo, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("server listening", zap.String("port", cfg.Server.Port))

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
