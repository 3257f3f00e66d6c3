package approuters

import (
	"Lumen/internal/configuration"
	"Lumen/internal/middleware"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

// StartServer runs the REST and websocket servers until ctx is cancelled, a
// termination signal arrives, or one of the servers fails.
func StartServer(ctx context.Context, container *configuration.Container) error {
	logger := container.Logger
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	window, err := container.Config.Server.RateLimit.WindowDuration()
	if err != nil {
		return err
	}
	limiter := middleware.NewIPRateLimiter(container.Config.Server.RateLimit.Requests, window)

	socketServer := createSocketServer(container)
	appServer := createAppServer(container, limiter)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("socket server starting", zap.String("addr", socketServer.Addr))
		if err := socketServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("socket server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("application server starting", zap.String("addr", appServer.Addr))
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("stopping hub and closing all websocket connections")
		container.Hub.Stop()

		var errs []error
		if err := socketServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("socket server shutdown: %w", err))
		}
		if err := appServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("app server shutdown: %w", err))
		}

		logger.Info("graceful shutdown complete")
		return errors.Join(errs...)
	})

	return g.Wait()
}

func createSocketServer(container *configuration.Container) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/"+container.Config.Server.SocketRoute, container.Hub.ServeWS)

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", container.Config.Server.SocketPort),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// NewRouter builds the REST engine with every route group registered.
func NewRouter(container *configuration.Container, limiter *middleware.IPRateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(container.Logger))

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     container.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to Lumen Application Server!",
		})
	})

	api := router.Group("/lumen/api")
	if limiter != nil {
		api.Use(middleware.RateLimitMiddleware(limiter))
	}
	api.Use(middleware.JWTAuthMiddleware([]byte(container.Config.Auth.JwtSecret)))

	ProfileRouters(api, container)
	ConversationRouters(api, container)
	MonitorRouters(api, container)

	return router
}

func createAppServer(container *configuration.Container, limiter *middleware.IPRateLimiter) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", container.Config.Server.AppPort),
		Handler:      NewRouter(container, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
