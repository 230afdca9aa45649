package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/advanced-rag/fusion-engine/internal/config"
	"github.com/advanced-rag/fusion-engine/internal/core/domain"
	"github.com/advanced-rag/fusion-engine/internal/core/ports"
	"github.com/advanced-rag/fusion-engine/internal/observability/metrics"
)

const serviceName = "fusion-engine"

type Router struct {
	fusionUC ports.FusionService
	queryUC  ports.RAGQueryService
	defaults domain.FusionConfig
	cfg      config.Config
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	defaults domain.FusionConfig,
	fusionUC ports.FusionService,
	queryUC ports.RAGQueryService,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		fusionUC: fusionUC,
		queryUC:  queryUC,
		defaults: defaults,
		cfg:      cfg,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/fusion/search", rt.fusionSearch)
	mux.HandleFunc("/v1/rag/query", rt.queryRAG)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	if rt.cfg.APIMaxConcurrent > 0 {
		wait := time.Duration(rt.cfg.APIBackpressureWaitMS) * time.Millisecond
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrent, wait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fusionRequest struct {
	Question          string             `json:"question"`
	CollectionIDs     []string           `json:"collection_ids"`
	RRFK              *float64           `json:"rrf_k"`
	CollectionWeights map[string]float64 `json:"collection_weights"`
	DiversityPenalty  *float64           `json:"diversity_penalty"`
	MaxContextTokens  *int               `json:"max_context_tokens"`
}

func (r fusionRequest) fusionConfig(defaults domain.FusionConfig) domain.FusionConfig {
	cfg := defaults
	if r.RRFK != nil {
		cfg.RRFK = *r.RRFK
	}
	if r.DiversityPenalty != nil {
		cfg.DiversityFactor = *r.DiversityPenalty
	}
	if r.MaxContextTokens != nil {
		cfg.MaxContextTokens = *r.MaxContextTokens
	}
	if len(r.CollectionWeights) > 0 {
		merged := make(map[string]float64, len(defaults.CollectionWeights)+len(r.CollectionWeights))
		for id, weight := range defaults.CollectionWeights {
			merged[id] = weight
		}
		for id, weight := range r.CollectionWeights {
			merged[id] = weight
		}
		cfg.CollectionWeights = merged
	}
	return cfg
}

func (rt *Router) fusionSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req fusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	if len(req.CollectionIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "collection_ids is required"})
		return
	}

	start := time.Now()
	fused, err := rt.fusionUC.FuseAndSelect(r.Context(), req.Question, req.CollectionIDs, req.fusionConfig(rt.defaults))
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.recordFusion("/v1/fusion/search", fused.Diagnostics, len(fused.Results), fused.TotalTokens, time.Since(start))
	}
	writeJSON(w, http.StatusOK, fused)
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req fusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	if len(req.CollectionIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "collection_ids is required"})
		return
	}

	start := time.Now()
	answer, err := rt.queryUC.Answer(r.Context(), req.Question, req.CollectionIDs, req.fusionConfig(rt.defaults))
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.recordFusion("/v1/rag/query", answer.Diagnostics, len(answer.Sources), 0, time.Since(start))
		if len(answer.Sources) == 0 {
			rt.metrics.RecordNoContext(serviceName, "/v1/rag/query")
		}
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) recordFusion(endpoint string, diag domain.FusionDiagnostics, selected, tokens int, duration time.Duration) {
	rt.metrics.RecordFusion(
		serviceName,
		endpoint,
		diag.CollectionsSearched,
		diag.CollectionsFailed,
		diag.CandidatesConsidered,
		selected,
		tokens,
		duration,
	)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
