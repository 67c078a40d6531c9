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
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/flockwise/retriever/internal/config"
	"github.com/flockwise/retriever/internal/db"
	dbRedis "github.com/flockwise/retriever/internal/db/redis"
	dbValkey "github.com/flockwise/retriever/internal/db/valkey"
	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/fusion"
	"github.com/flockwise/retriever/internal/domain/search/tier"
	"github.com/flockwise/retriever/internal/index"
	logpkg "github.com/flockwise/retriever/internal/logger"
	"github.com/flockwise/retriever/internal/metrics"
	"github.com/flockwise/retriever/internal/repository/embcache"
	searchrepo "github.com/flockwise/retriever/internal/repository/search"
	chiTransport "github.com/flockwise/retriever/internal/transport/chi"
	openaiEmb "github.com/flockwise/retriever/internal/transport/openai"
	"github.com/flockwise/retriever/internal/usecase/health"
	"github.com/flockwise/retriever/internal/usecase/localsearch"
	"github.com/flockwise/retriever/internal/usecase/remotesearch"
	"github.com/flockwise/retriever/internal/usecase/retrieval"
	"github.com/flockwise/retriever/internal/version"
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

	logger.Info("Starting retriever API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("mode", cfg.Retrieval.Mode),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Build embedder chain — composition root
	embedder := buildEmbedder(cfg, logger)

	tiers, err := tierList(cfg.Retrieval.Tiers)
	if err != nil {
		logger.Fatal("Invalid tier ladder", zap.Error(err))
	}

	fusionCfg := fusion.Config{
		Alpha:              cfg.Fusion.Alpha,
		RRFK:               cfg.Fusion.RRFK,
		Calibration:        cfg.Fusion.Calibration,
		MinScore:           cfg.Fusion.MinScore,
		DiversityThreshold: cfg.Fusion.DiversityThreshold,
	}
	if err := fusionCfg.Validate(); err != nil {
		logger.Fatal("Invalid fusion config", zap.Error(err))
	}

	ctx := context.Background()

	// Local search path. In remote mode the index is optional: when present
	// it serves as a fallback for remote outages.
	var (
		idx      *index.Index
		localSvc *localsearch.Service
		pool     *ants.Pool
	)
	idx, err = index.Load(cfg.Local.IndexDir, logger)
	switch {
	case err == nil:
		pool, err = ants.NewPool(cfg.Local.PoolSize)
		if err != nil {
			logger.Fatal("Failed to create scan pool", zap.Error(err))
		}
		defer pool.Release()
		localSvc = localsearch.New(embedder, idx, pool, tiers, localsearch.Config{
			Decay:       cfg.Local.Decay,
			BoostFactor: cfg.Local.BoostFactor,
		})
		logger.Info("Local search path ready", zap.Int("scan_pool_size", pool.Cap()))
	case cfg.Retrieval.Mode == "local":
		logger.Fatal("Failed to load local index", zap.Error(err))
	default:
		logger.Warn("Local index unavailable, remote mode runs without fallback", zap.Error(err))
	}

	// Remote search path
	var (
		store     db.Store
		remoteSvc *remotesearch.Service
	)
	if cfg.Retrieval.Mode == "remote" {
		switch cfg.Database.Driver {
		case "valkey":
			store, err = dbValkey.NewStore(dbValkey.Config{
				Addrs:    cfg.Database.Addrs,
				Password: cfg.Database.Password,
			})
		case "redis":
			store, err = dbRedis.NewStore(dbRedis.Config{
				Addrs:    cfg.Database.Addrs,
				Password: cfg.Database.Password,
			})
		default:
			logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
		}
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database",
			zap.Bool("native_hybrid", store.SupportsNativeHybrid(ctx)))

		repo := searchrepo.New(store, cfg.Database.Index)
		remoteSvc = remotesearch.New(
			repo, embedder, fusionCfg,
			time.Duration(cfg.Retrieval.SubQueryTimeoutSec)*time.Second,
			logger, metrics.RetrievalFusionPath,
		)
	}

	// Pass nil interfaces (not typed nil pointers!) for unwired components.
	var localSearcher retrieval.LocalSearcher
	if localSvc != nil {
		localSearcher = localSvc
	}
	var remoteSearcher retrieval.RemoteSearcher
	if remoteSvc != nil {
		remoteSearcher = remoteSvc
	}

	retrievalSvc := retrieval.New(
		localSearcher, remoteSearcher, retrieval.Mode(cfg.Retrieval.Mode),
		cfg.Fusion.DiversityThreshold,
		retrieval.BoostConfig{
			QualityMax: cfg.Boost.QualityMax,
			Breed:      cfg.Boost.Breed,
			Disease:    cfg.Boost.Disease,
			Medication: cfg.Boost.Medication,
		},
		logger,
	)

	var storePinger health.StorePinger
	if store != nil {
		storePinger = store
	}
	var indexReporter health.IndexReporter
	if idx != nil {
		indexReporter = idx
	}
	healthSvc := health.New(storePinger, embedder, indexReporter)

	server := chiTransport.NewServer(retrievalSvc, healthSvc, logger, cfg.Retrieval.DefaultK, cfg.Retrieval.MaxK)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

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

// buildEmbedder assembles the decorator chain: OpenAI -> Instruction -> Cached.
// The cache is outermost: retrieval callers key it on query plus hint.
func buildEmbedder(cfg config.Config, logger *zap.Logger) *embcache.CachedEmbedder {
	// Take the first vectorizer config
	var vecCfg config.VectorizerConfig
	var provName string
	for _, vc := range cfg.Embedding.Vectorizers {
		vecCfg = vc
		provName = vc.Provider
		break
	}
	provCfg := cfg.Embedding.Providers[provName]

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if vecCfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, vecCfg.QueryInstruction)
	}

	logger.Info("Embedder created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	return embcache.New(embedder, metrics.EmbeddingCacheTotal)
}

// tierList builds the threshold ladder from config, falling back to the
// built-in five-tier ladder when none is given.
func tierList(tiers []config.TierConfig) (tier.List, error) {
	if len(tiers) == 0 {
		return tier.Defaults(), nil
	}
	out := make([]tier.Tier, len(tiers))
	for i, t := range tiers {
		out[i] = tier.Tier{Name: t.Name, MinScore: t.Threshold}
	}
	return tier.New(out)
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
