package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kantolabs/pokedex/internal/config"
	"github.com/kantolabs/pokedex/internal/db"
	dbMemory "github.com/kantolabs/pokedex/internal/db/memory"
	dbRedis "github.com/kantolabs/pokedex/internal/db/redis"
	logpkg "github.com/kantolabs/pokedex/internal/logger"
	"github.com/kantolabs/pokedex/internal/metrics"
	"github.com/kantolabs/pokedex/internal/repository/apicache"
	"github.com/kantolabs/pokedex/internal/repository/pokeapi"
	chiTransport "github.com/kantolabs/pokedex/internal/transport/chi"
	healthuc "github.com/kantolabs/pokedex/internal/usecase/health"
	pokemonuc "github.com/kantolabs/pokedex/internal/usecase/pokemon"
	recommenduc "github.com/kantolabs/pokedex/internal/usecase/recommend"
	"github.com/kantolabs/pokedex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pokedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	// Create cache store based on driver
	var store db.Store
	switch cfg.Cache.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	// Wait for cache to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to cache store")

	// Register upstream metrics explicitly (no init())
	metrics.RegisterUpstreamMetrics()

	// Build fetcher chain — composition root
	base := pokeapi.NewHTTPFetcher(pokeapi.FetcherConfig{
		Timeout:      time.Duration(cfg.Upstream.TimeoutSec) * time.Second,
		RateLimitRPS: cfg.Upstream.RateLimitRPS,
		Logger:       logger,
	})
	cached := apicache.New(
		base, store,
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.UpstreamCacheTotal, logger,
	)
	client := pokeapi.New(cfg.Upstream.BaseURL, cached, cfg.Upstream.FetchConcurrency, logger)

	// Create use case services
	recSvc := recommenduc.New(recommenduc.Config{
		Eps:              cfg.Recommender.Eps,
		MinSamples:       cfg.Recommender.MinSamples,
		DatasetLimit:     cfg.Recommender.DatasetLimit,
		MaxSearchResults: cfg.Recommender.MaxSearchResults,
		FetchConcurrency: cfg.Upstream.FetchConcurrency,
	}, client, logger).WithFitObserver(metrics.RecommenderFitSeconds)

	pokeSvc := pokemonuc.New(client, recSvc)
	healthSvc := healthuc.New(store, recSvc)

	// Fit the model in the background; the API serves proxy traffic
	// immediately and returns 503 on model endpoints until Ready.
	go func() {
		initCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Upstream.InitTimeoutSec)*time.Second)
		defer cancel()

		if err := recSvc.Initialize(initCtx); err != nil {
			logger.Error("Recommender initialization failed", zap.Error(err))
			return
		}
		logger.Info("Recommender ready", zap.Int("dataset_size", recSvc.Size()))
	}()

	// Create chi server
	server := chiTransport.NewServer(pokeSvc, recSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.Origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success":    false,
						"error":      "internal error",
						"error_code": "internal_error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
