// Package remotesearch retrieves against the remote search store. Stores
// with native hybrid support answer in one call; otherwise vector and
// lexical sub-queries run concurrently and merge through rank fusion.
package remotesearch

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/filter"
	"github.com/flockwise/retriever/internal/domain/search/fusion"
	"github.com/flockwise/retriever/internal/domain/search/result"
	"github.com/flockwise/retriever/internal/query"
)

// subQueryCapFactor caps each manual-path sub-query at 2k so fusion sees
// enough of both rankings without over-fetching the store.
const subQueryCapFactor = 2

// DefaultSubQueryTimeout bounds each manual-path sub-query independently.
const DefaultSubQueryTimeout = 2 * time.Second

// Fusion path labels for the fusionPath counter.
const (
	pathNative      = "native"
	pathManual      = "manual"
	pathVectorOnly  = "vector_only"
	pathLexicalOnly = "lexical_only"
)

// Service runs hybrid retrieval against the remote store.
type Service struct {
	repo            Repository
	embed           Embedder
	cfg             fusion.Config
	subQueryTimeout time.Duration
	logger          *zap.Logger
	fusionPath      *prometheus.CounterVec
}

// New creates a remote search service. fusionPath is a counter vec with
// label "path"; nil disables instrumentation.
func New(
	repo Repository, embed Embedder, cfg fusion.Config,
	subQueryTimeout time.Duration, logger *zap.Logger, fusionPath *prometheus.CounterVec,
) *Service {
	if subQueryTimeout <= 0 {
		subQueryTimeout = DefaultSubQueryTimeout
	}
	return &Service{
		repo:            repo,
		embed:           embed,
		cfg:             cfg,
		subQueryTimeout: subQueryTimeout,
		logger:          logger,
		fusionPath:      fusionPath,
	}
}

// Search returns up to k fused results. When the store lacks native hybrid
// support, or the native call fails, vector and lexical sub-queries run
// concurrently with independent timeouts; one sub-query failing degrades to
// the other's results, both failing surfaces ErrRetrievalUnavailable.
func (s *Service) Search(
	ctx context.Context, normalized string, k int, hint string, filters filter.Expression,
) ([]result.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	cacheKey := normalized + "|" + query.HintOrAny(hint)
	emb, err := s.embed.EmbedKeyed(ctx, cacheKey, normalized)
	if err != nil {
		return nil, domain.NewStageError(domain.StageEmbedding, err)
	}

	if s.repo.SupportsNativeHybrid(ctx) {
		results, err := s.repo.SearchHybrid(
			ctx, normalized, emb.Embedding, s.cfg.Alpha, filters, k, true,
		)
		if err == nil {
			s.incPath(pathNative)
			return results, nil
		}
		s.logger.Warn("native hybrid query failed, falling back to manual fusion",
			zap.Error(err))
	}

	return s.searchManual(ctx, normalized, emb.Embedding, k, filters)
}

// searchManual issues vector and lexical sub-queries concurrently. Each runs
// to completion or timeout on its own; a failure in one never blocks or
// cancels the other.
func (s *Service) searchManual(
	ctx context.Context, normalized string, vector []float32, k int, filters filter.Expression,
) ([]result.Result, error) {
	subCap := subQueryCapFactor * k

	var (
		vecResults, lexResults []result.Result
		vecErr, lexErr         error
	)

	var g errgroup.Group
	g.Go(func() error {
		subCtx, cancel := context.WithTimeout(ctx, s.subQueryTimeout)
		defer cancel()
		vecResults, vecErr = s.repo.SearchKNN(subCtx, vector, filters, subCap)
		return nil
	})
	g.Go(func() error {
		subCtx, cancel := context.WithTimeout(ctx, s.subQueryTimeout)
		defer cancel()
		lexResults, lexErr = s.repo.SearchBM25(subCtx, normalized, filters, subCap)
		return nil
	})
	_ = g.Wait()

	switch {
	case vecErr != nil && lexErr != nil:
		return nil, domain.NewStageError(domain.StageRemoteQuery,
			fmt.Errorf("%w: vector: %v; lexical: %v", domain.ErrRetrievalUnavailable, vecErr, lexErr))
	case vecErr != nil:
		s.logger.Warn("vector sub-query failed, proceeding with lexical results only",
			zap.Error(vecErr))
		s.incPath(pathLexicalOnly)
	case lexErr != nil:
		s.logger.Warn("lexical sub-query failed, proceeding with vector results only",
			zap.Error(lexErr))
		s.incPath(pathVectorOnly)
	default:
		s.incPath(pathManual)
	}

	return fuse(vecResults, lexResults, s.cfg, k), nil
}

func (s *Service) incPath(path string) {
	if s.fusionPath != nil {
		s.fusionPath.WithLabelValues(path).Inc()
	}
}
