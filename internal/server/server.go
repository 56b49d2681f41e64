// Package server exposes question answering over HTTP. The surface is
// deliberately small: POST /ask and GET /healthz on the stdlib mux.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/qa"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/telemetry"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the standard server settings.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the question answering API.
type Server struct {
	service *qa.Service
	engine  search.Engine
	metrics *telemetry.QueryMetrics
	config  Config
	started time.Time
	httpSrv *http.Server
}

// Option configures optional server components.
type Option func(*Server)

// WithTelemetry surfaces query metrics in the health payload.
func WithTelemetry(m *telemetry.QueryMetrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates an HTTP server over the QA service. The engine is
// used for health reporting.
func NewServer(service *qa.Service, engine search.Engine, config Config, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("qa service is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if config.Addr == "" {
		config = DefaultConfig()
	}

	s := &Server{
		service: service,
		engine:  engine,
		config:  config,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpSrv = &http.Server{
		Addr:         config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s, nil
}

// Handler returns the routed handler with request logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s.withRequestLog(mux)
}

// ListenAndServe starts the server and blocks until the context is
// cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.started = time.Now()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.String("addr", s.config.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return <-errCh
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog tags every request with an ID and logs method, path,
// status, and latency. An inbound X-Request-ID is honored.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		slog.Info("http request",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req qa.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ragerr.New(ragerr.ErrCodeInvalidInput, "request body is not valid JSON", err))
		return
	}

	resp, err := s.service.Ask(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status    string       `json:"status"`
	Documents int          `json:"documents"`
	Vectors   int          `json:"vectors"`
	UptimeSec int64        `json:"uptime_seconds"`
	Queries   *queryHealth `json:"queries,omitempty"`
}

// queryHealth summarizes query telemetry since startup.
type queryHealth struct {
	Total          int64   `json:"total"`
	ZeroResultRate float64 `json:"zero_result_rate"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	if stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	resp := healthResponse{
		Status:    "ok",
		Vectors:   stats.VectorCount,
		UptimeSec: int64(time.Since(s.started).Seconds()),
	}
	if stats.LexicalStats != nil {
		resp.Documents = stats.LexicalStats.DocumentCount
	}
	if s.metrics != nil {
		snap := s.metrics.Snapshot()
		resp.Queries = &queryHealth{
			Total:          snap.TotalQueries,
			ZeroResultRate: snap.ZeroResultRate(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// writeError maps a RagError to an HTTP status and serializes the
// envelope. Non-RagError values become a 500.
func writeError(w http.ResponseWriter, err error) {
	var re *ragerr.RagError
	if !errors.As(err, &re) {
		re = ragerr.InternalError("internal error", err)
	}
	writeJSON(w, statusForCode(re.Code), errorBody{Error: errorDetail{
		Code:    re.Code,
		Message: re.Message,
		Details: re.Details,
	}})
}

// statusForCode maps error code ranges to HTTP statuses: validation is
// the caller's fault, collaborator failures surface as gateway errors,
// everything else is internal.
func statusForCode(code string) int {
	switch code {
	case ragerr.ErrCodeRetrieverTimeout:
		return http.StatusGatewayTimeout
	case ragerr.ErrCodeRetrieverUnavailable:
		return http.StatusServiceUnavailable
	case ragerr.ErrCodeIngestLocked:
		return http.StatusConflict
	}
	if strings.HasPrefix(code, "ERR_4") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
