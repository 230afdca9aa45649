package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
	"github.com/advanced-rag/fusion-engine/internal/infrastructure/resilience"
)

const defaultCollectionPrefix = "knowledge_collection_"

// Client searches one Qdrant instance that hosts every Knowledge
// Collection, each under its own physical collection name. It returns
// rank-ordered candidate lists; scores stay in the collection's own
// embedding space.
type Client struct {
	baseURL          string
	collectionPrefix string
	scoreThreshold   float64
	httpClient       *http.Client
	limiter          *rate.Limiter
	executor         *resilience.Executor
}

type Options struct {
	// CollectionPrefix maps a logical collection id to its physical
	// Qdrant collection name. Defaults to "knowledge_collection_".
	CollectionPrefix string
	// ScoreThreshold drops candidates below this raw similarity.
	ScoreThreshold float64
	// RateLimitQPS caps search requests per second across collections;
	// 0 disables limiting.
	RateLimitQPS float64
	// HTTPTimeout bounds a single search request.
	HTTPTimeout time.Duration
	// ResilienceExecutor wraps searches with retry and circuit breaking.
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, opts Options) *Client {
	prefix := opts.CollectionPrefix
	if prefix == "" {
		prefix = defaultCollectionPrefix
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RateLimitQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitQPS), int(opts.RateLimitQPS)+1)
	}
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		collectionPrefix: prefix,
		scoreThreshold:   opts.ScoreThreshold,
		httpClient:       &http.Client{Timeout: timeout},
		limiter:          limiter,
		executor:         opts.ResilienceExecutor,
	}
}

func (c *Client) Search(ctx context.Context, collectionID string, queryVector []float32, topK int) ([]domain.Candidate, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var candidates []domain.Candidate
	call := func(callCtx context.Context) error {
		var err error
		candidates, err = c.search(callCtx, collectionID, queryVector, topK)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant.search", call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("qdrant search", err)
	}
	return candidates, nil
}

func (c *Client) search(ctx context.Context, collectionID string, queryVector []float32, topK int) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
	}
	if c.scoreThreshold > 0 {
		reqBody["score_threshold"] = c.scoreThreshold
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s%s/points/search", c.baseURL, c.collectionPrefix, collectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newHTTPStatusError("search", resp)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for i, r := range searchResp.Result {
		out = append(out, domain.Candidate{
			ChunkID:      getStringPayload(r.Payload, "chunk_id"),
			DocumentID:   getStringPayload(r.Payload, "document_id"),
			CollectionID: collectionID,
			Rank:         i + 1,
			RawScore:     r.Score,
			Text:         getStringPayload(r.Payload, "chunk_text"),
			Metadata:     parseMetadata(r.Payload),
		})
	}
	return out, nil
}

func parseMetadata(payload map[string]any) domain.ChunkMetadata {
	meta := domain.ChunkMetadata{
		Filename: getStringPayload(payload, "filename"),
		FileType: getStringPayload(payload, "file_type"),
	}
	if v, ok := payload["has_title"].(bool); ok {
		meta.HasTitle = v
	}
	if raw := getStringPayload(payload, "created_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			meta.CreatedAt = ts
		}
	}
	return meta
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
