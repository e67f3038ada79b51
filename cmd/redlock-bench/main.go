// Package main provides the entry point for the redlock benchmark server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lockforge/redlock/internal/config"
	"github.com/lockforge/redlock/internal/logging"
	"github.com/lockforge/redlock/internal/metrics"
	"github.com/lockforge/redlock/internal/middleware"
	"github.com/lockforge/redlock/pkg/redlock"
)

func main() {
	logger := logging.NewLogger("redlock-bench", "info")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	servers, closeBackends, err := buildBackends(ctx, cfg.Backends)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build lock server backends")
	}
	defer closeBackends()

	lockMetrics := redlock.NewMetrics()
	manager, err := redlock.NewManager(servers,
		redlock.WithLogger(logger),
		redlock.WithMetrics(lockMetrics, prometheus.DefaultRegisterer))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct lock manager")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"quorum": manager.Quorum(),
			"nodes":  len(cfg.Backends),
		})
	})

	metrics.RegisterMetricsEndpoint(router)

	admin := router.Group("/admin")
	admin.Use(middleware.PayloadLimitErrorHandler(logger))
	admin.Use(middleware.PayloadLimit(cfg.AdminMaxBody, logger))
	admin.POST("/bench", func(c *gin.Context) {
		var req benchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Clients <= 0 {
			req.Clients = 4
		}
		if req.DurationMs <= 0 {
			req.DurationMs = 1000
		}
		if req.TTLMs <= 0 {
			req.TTLMs = cfg.DefaultTTLMs
		}

		runID := uuid.NewString()
		runLogger := logging.LockLogger(logger, req.Resource, runID)
		runLogger.Info().Int("clients", req.Clients).Msg("starting contention run")

		result := runBench(c.Request.Context(), manager, runLogger, req)
		c.JSON(http.StatusOK, result)
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Int("backends", len(cfg.Backends)).Msg("starting redlock benchmark server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited properly")
}
