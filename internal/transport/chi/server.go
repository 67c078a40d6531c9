// Package chi exposes the retrieval pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/filter"
	"github.com/flockwise/retriever/internal/domain/search/result"
	healthuc "github.com/flockwise/retriever/internal/usecase/health"
	retrievaluc "github.com/flockwise/retriever/internal/usecase/retrieval"
)

// ErrorCode is a machine-readable error discriminator in error responses.
type ErrorCode string

const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeRetrievalUnavailable   ErrorCode = "retrieval_unavailable"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope. Stage names the pipeline stage
// that failed, when known.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
}

// RetrieveRequest is the POST /v1/retrieve body.
type RetrieveRequest struct {
	Query   string         `json:"query"`
	K       int            `json:"k,omitempty"`
	Hint    string         `json:"hint,omitempty"`
	Filters *FilterRequest `json:"filters,omitempty"`
}

// FilterRequest carries metadata constraints for the remote search path.
type FilterRequest struct {
	Must    map[string]string `json:"must,omitempty"`
	MustNot map[string]string `json:"must_not,omitempty"`
}

// RetrieveResponse is the POST /v1/retrieve response. Results is never null:
// a query that matched nothing returns an empty list with status 200.
type RetrieveResponse struct {
	Results []ResultResponse `json:"results"`
	Count   int              `json:"count"`
}

// ResultResponse is one ranked passage.
type ResultResponse struct {
	ID           string            `json:"id"`
	Text         string            `json:"text"`
	Score        float64           `json:"score"`
	Tier         string            `json:"tier,omitempty"`
	Source       string            `json:"source,omitempty"`
	Species      string            `json:"species,omitempty"`
	QualityScore *float64          `json:"quality_score,omitempty"`
	Breeds       []string          `json:"breeds,omitempty"`
	Diseases     []string          `json:"diseases,omitempty"`
	Medications  []string          `json:"medications,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg, stage string) bool

// Server hosts the retrieval HTTP API.
type Server struct {
	retrieval     *retrievaluc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	defaultK      int
	maxK          int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. defaultK fills requests that omit k,
// maxK caps it.
func NewServer(
	retrieval *retrievaluc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
	defaultK, maxK int,
) *Server {
	s := &Server{
		retrieval: retrieval,
		health:    health,
		logger:    logger,
		defaultK:  defaultK,
		maxK:      maxK,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, CodeRetrievalUnavailable),
		sentinelHandler(domain.ErrIndexNotLoaded, http.StatusServiceUnavailable, CodeRetrievalUnavailable),
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/retrieve", s.Retrieve)
	r.Get("/v1/explain", s.Explain)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	k := req.K
	if k == 0 {
		k = s.defaultK
	}
	if k < 0 || k > s.maxK {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "k is out of range")
		return
	}

	filters, err := filtersFromRequest(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	results, err := s.retrieval.Retrieve(r.Context(), req.Query, k, req.Hint, filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRetrieveResponse(results))
}

// Explain handles GET /v1/explain. It traces a query through the pipeline
// without boosting. Debug endpoint; answer generation never calls it.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	if q == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query parameter is required")
		return
	}

	k := s.defaultK
	if r.URL.Query().Has("k") {
		if err := runtime.BindQueryParameter("form", true, false, "k", r.URL.Query(), &k); err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "k must be an integer")
			return
		}
	}
	if k < 0 || k > s.maxK {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "k is out of range")
		return
	}

	hint := r.URL.Query().Get("hint")

	exp, err := s.retrieval.Explain(r.Context(), q, k, hint, filter.Expression{})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func filtersFromRequest(req *FilterRequest) (filter.Expression, error) {
	if req == nil {
		return filter.Expression{}, nil
	}

	var must, mustNot []filter.Condition
	for key, match := range req.Must {
		c, err := filter.NewMatch(key, match)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}
	for key, match := range req.MustNot {
		c, err := filter.NewMatch(key, match)
		if err != nil {
			return filter.Expression{}, err
		}
		mustNot = append(mustNot, c)
	}

	return filter.New(must, mustNot)
}

func toRetrieveResponse(results []result.Result) RetrieveResponse {
	items := make([]ResultResponse, len(results))
	for i := range results {
		doc := results[i].Document()
		items[i] = ResultResponse{
			ID:           doc.ID,
			Text:         doc.Text,
			Score:        results[i].Score(),
			Tier:         results[i].Tier(),
			Source:       doc.Metadata.Source,
			Species:      doc.Metadata.Species,
			QualityScore: doc.Metadata.QualityScore,
			Breeds:       doc.Metadata.Breeds,
			Diseases:     doc.Metadata.Diseases,
			Medications:  doc.Metadata.Medications,
			Metadata:     doc.Metadata.Extra,
		}
	}
	return RetrieveResponse{Results: items, Count: len(items)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrRetrievalUnavailable,
		domain.ErrIndexNotLoaded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg, stage string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, ErrorResponse{Code: code, Message: msg, Stage: stage})
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	stage := domain.StageOf(err)
	s.logger.Warn("domain error", zap.Error(err), zap.String("stage", stage))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg, stage) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
