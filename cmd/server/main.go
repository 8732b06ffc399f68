package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/anhhuy04/ai-lms-prd/internal/api/http"
	"github.com/anhhuy04/ai-lms-prd/internal/auth"
	"github.com/anhhuy04/ai-lms-prd/internal/backendfactory"
	"github.com/anhhuy04/ai-lms-prd/internal/config"
	"github.com/anhhuy04/ai-lms-prd/internal/dataset"
	"github.com/anhhuy04/ai-lms-prd/internal/executor"
	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/metrics"
	"github.com/anhhuy04/ai-lms-prd/internal/queuefactory"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("DBOPS_CONFIG"))
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLevel(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)

	if err := cfg.ValidateForServer(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	logger.Info("Initializing dbops server...")

	store, err := backendfactory.Open(cfg.Connection())
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	m := metrics.NewMetrics(nil)

	exec := executor.NewExecutor(store, dataset.NewLoader(), executor.Defaults{
		Table:      cfg.Seed.Table,
		Policy:     cfg.Seed.Policy,
		KeyColumns: cfg.Seed.KeyColumns,
		LabelField: cfg.Seed.LabelField,
	})
	exec.SetMetrics(m)

	// Initialize queue if enabled
	if cfg.Queue.Enabled {
		q, err := queuefactory.NewQueue(&cfg.Queue)
		if err != nil {
			logger.Fatalf("Failed to create queue: %v", err)
		}
		defer func() { _ = q.Close() }()

		exec.SetQueue(q)
		logger.Infof("Queue enabled (%s) - async seed requests will be queued", cfg.Queue.Type)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Custom logger middleware that skips health check endpoints
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if param.Path == "/health" || param.Path == "/api/v1/health" || param.Path == "/metrics" {
			return ""
		}
		return fmt.Sprintf("[GIN] %s | %3d | %13v | %15s | %-7s %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.StatusCode,
			param.Latency,
			param.ClientIP,
			param.Method,
			param.Path,
		)
	}))
	router.Use(gin.Recovery())

	// Add CORS middleware - must be before routes
	router.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Executed-By")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	httpHandler := httpapi.NewHandler(exec, store, auth.NewTokenValidator(cfg.Server.APIToken), m)
	httpHandler.RegisterRoutes(router)

	router.GET("/health", httpHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting HTTP server on port %s", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("HTTP server forced to shutdown: %v", err)
		}
		return nil
	})

	logger.Infof("HTTP API available at http://localhost:%s/api/v1", cfg.Server.HTTPPort)

	if err := g.Wait(); err != nil {
		logger.Errorf("Server error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server exited")
}
