// Package qa is the request/response boundary of the question answering
// pipeline. It validates caller input, runs retrieval, and shapes the
// extractive answer into the wire response.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/answer"
	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
)

// Config bounds a single request.
type Config struct {
	// DefaultTopK is used when the caller omits k (default: 4).
	DefaultTopK int

	// MaxTopK is the largest accepted k (default: 20).
	MaxTopK int

	// Answer configures the extractive answerer.
	Answer answer.Config
}

// DefaultConfig returns standard request bounds.
func DefaultConfig() Config {
	return Config{
		DefaultTopK: 4,
		MaxTopK:     20,
		Answer:      answer.DefaultConfig(),
	}
}

// Request is one question from a caller.
type Request struct {
	// Question is the natural language query. Required.
	Question string `json:"q"`

	// TopK is how many contexts to return. 0 means the default.
	TopK int `json:"k"`

	// Mode is "baseline" or "hybrid". Empty means hybrid.
	Mode string `json:"mode"`
}

// Response is the wire answer for one question. Answer is nil when the
// system abstains; contexts still carry whatever was retrieved.
type Response struct {
	Question     string            `json:"question"`
	Answer       *string           `json:"answer"`
	Contexts     []answer.Citation `json:"contexts"`
	RerankerUsed bool              `json:"reranker_used"`
	Mode         string            `json:"mode"`
}

// Service answers questions against the retrieval engine.
type Service struct {
	engine search.Engine
	config Config
}

// NewService creates the question answering service.
func NewService(engine search.Engine, config Config) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = 4
	}
	if config.MaxTopK <= 0 {
		config.MaxTopK = 20
	}
	return &Service{engine: engine, config: config}, nil
}

// Ask validates the request, retrieves evidence, and builds the response.
// Validation failures return a typed error; retrieval degradation and
// absent evidence resolve to a well-formed response instead.
func (s *Service) Ask(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ragerr.New(ragerr.ErrCodeQueryEmpty, "question must not be empty", nil)
	}

	k := req.TopK
	if k == 0 {
		k = s.config.DefaultTopK
	}
	if k < 1 || k > s.config.MaxTopK {
		return nil, ragerr.New(ragerr.ErrCodeInvalidTopK,
			fmt.Sprintf("k must be between 1 and %d", s.config.MaxTopK), nil).
			WithDetail("k", fmt.Sprintf("%d", req.TopK))
	}

	mode := search.Mode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if mode == "" {
		mode = search.ModeHybrid
	}
	if !search.ValidMode(mode) {
		return nil, ragerr.New(ragerr.ErrCodeInvalidMode,
			"mode must be 'baseline' or 'hybrid'", nil).
			WithDetail("mode", req.Mode)
	}

	result, err := s.engine.Search(ctx, question, search.Options{TopK: k, Mode: mode})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ragerr.New(ragerr.ErrCodeRetrieverTimeout, "retrieval timed out", err)
		}
		return nil, ragerr.New(ragerr.ErrCodeRetrieverUnavailable, "retrieval failed", err)
	}

	ans := answer.Build(question, result.Results, s.config.Answer)

	resp := &Response{
		Question:     question,
		Contexts:     ans.Citations,
		RerankerUsed: mode == search.ModeHybrid && !result.Degraded,
		Mode:         string(mode),
	}
	if !ans.Abstained {
		text := ans.Text
		resp.Answer = &text
	}

	slog.Info("question answered",
		slog.String("mode", string(mode)),
		slog.Int("k", k),
		slog.Int("contexts", len(resp.Contexts)),
		slog.Bool("abstained", ans.Abstained),
		slog.Bool("degraded", result.Degraded),
		slog.Duration("latency", time.Since(start)))

	return resp, nil
}
