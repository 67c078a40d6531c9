// Package retrieval orchestrates the retrieval pipeline: normalize the
// query, search the local or remote path, drop near-duplicates, boost by
// entity and quality metadata, and return the top k.
package retrieval

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/filter"
	"github.com/flockwise/retriever/internal/domain/search/result"
	"github.com/flockwise/retriever/internal/domain/search/tier"
	"github.com/flockwise/retriever/internal/metrics"
	"github.com/flockwise/retriever/internal/query"
)

// Mode selects the retrieval path configured at startup.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// fetchFactor over-fetches the search path so the diversity filter can drop
// duplicates and still fill k slots.
const fetchFactor = 2

// Service is the retrieval pipeline entry point.
type Service struct {
	local              LocalSearcher
	remote             RemoteSearcher
	mode               Mode
	diversityThreshold float64
	boost              BoostConfig
	logger             *zap.Logger
}

// New creates the pipeline service. local may be nil in remote-only
// deployments and vice versa; Validate in config prevents a mode without
// its searcher. A non-nil local alongside ModeRemote enables fallback when
// the remote store is unavailable.
func New(
	local LocalSearcher, remote RemoteSearcher, mode Mode,
	diversityThreshold float64, boost BoostConfig, logger *zap.Logger,
) *Service {
	return &Service{
		local:              local,
		remote:             remote,
		mode:               mode,
		diversityThreshold: diversityThreshold,
		boost:              boost,
		logger:             logger,
	}
}

// Retrieve returns up to k ranked passages for a free-text query. An empty
// slice with a nil error means the query genuinely matched nothing; an
// error means retrieval itself failed.
func (s *Service) Retrieve(
	ctx context.Context, q string, k int, hint string, filters filter.Expression,
) ([]result.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	normalized := query.Normalize(q)
	if hint == "" {
		hint = query.DetectHint(normalized)
	}

	results, err := s.search(ctx, normalized, fetchFactor*k, hint, filters)
	if err != nil {
		return nil, err
	}

	results = s.timed("diversity", func() []result.Result {
		return diversityFilter(results, s.diversityThreshold, k)
	})
	results = s.timed("boost", func() []result.Result {
		return rerank(boostScores(results, normalized, s.boost), k)
	})

	if len(results) == 0 {
		metrics.RetrievalEmptyResults.Inc()
	}
	recordTiers(results)

	return results, nil
}

// search runs the configured path. In remote mode a retrieval failure falls
// back to the local path when one is loaded.
func (s *Service) search(
	ctx context.Context, normalized string, k int, hint string, filters filter.Expression,
) ([]result.Result, error) {
	if s.mode == ModeLocal {
		return s.searchLocal(ctx, normalized, k, hint)
	}

	start := time.Now()
	results, err := s.remote.Search(ctx, normalized, k, hint, filters)
	metrics.RetrievalStageDuration.WithLabelValues(domain.StageRemoteQuery).
		Observe(time.Since(start).Seconds())
	if err == nil {
		return results, nil
	}

	if s.local == nil {
		return nil, err
	}
	s.logger.Warn("remote retrieval failed, falling back to local index",
		zap.Error(err))
	return s.searchLocal(ctx, normalized, k, hint)
}

func (s *Service) searchLocal(ctx context.Context, normalized string, k int, hint string) ([]result.Result, error) {
	start := time.Now()
	results, err := s.local.Search(ctx, normalized, k, hint)
	metrics.RetrievalStageDuration.WithLabelValues(domain.StageLocalScan).
		Observe(time.Since(start).Seconds())
	return results, err
}

func (s *Service) timed(stage string, fn func() []result.Result) []result.Result {
	start := time.Now()
	out := fn()
	metrics.RetrievalStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return out
}

// rerank sorts by boosted score descending and truncates to k. The sort is
// stable so equal scores keep their pre-boost order.
func rerank(results []result.Result, k int) []result.Result {
	sortStable(results)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func sortStable(results []result.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})
}

// recordTiers counts admissions beyond the normal tier on the local path.
func recordTiers(results []result.Result) {
	for _, r := range results {
		if t := r.Tier(); t != "" && t != tier.Normal {
			metrics.RetrievalTierEscalations.WithLabelValues(t).Inc()
		}
	}
}
