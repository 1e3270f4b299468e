// Package server exposes the attempt pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3CBolt/promptpractice/internal/model"
	"github.com/3CBolt/promptpractice/internal/orchestrator"
)

// Options configures the HTTP surface.
type Options struct {
	// EnableAttempts gates POST /attempts. When false the endpoint
	// answers 403.
	EnableAttempts bool

	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string
}

// Server holds the router and its dependencies.
type Server struct {
	orch *orchestrator.Orchestrator
	opts Options
}

// New creates a Server over the given orchestrator.
func New(orch *orchestrator.Orchestrator, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{orch: orch, opts: opts}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/attempts", s.handleCreateAttempt)
	r.Get("/evaluations/{attemptID}", s.handleGetEvaluation)
	r.Post("/compare", s.handleCompare)

	return r
}

// requestLogger logs method, path, status, and latency through zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeBody(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	if !s.opts.EnableAttempts {
		writeError(w, http.StatusForbidden, model.CodeFeatureOff, "attempt processing is disabled")
		return
	}

	var req model.AttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidation, "invalid request body")
		return
	}
	if req.AttemptID == "" {
		req.AttemptID = uuid.NewString()
	}

	result, err := s.orch.Process(r.Context(), req)
	if err != nil {
		status, code := classifyError(err)
		writeError(w, status, code, err.Error())
		return
	}

	// A processing exception comes back as an error result with the
	// artifact already written; the HTTP contract reports it as a server
	// error, not a completed attempt.
	if result.Code == model.CodeProcessing {
		writeBody(w, http.StatusInternalServerError, result)
		return
	}

	writeBody(w, http.StatusOK, result)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")

	result, err := s.orch.Status(r.Context(), attemptID)
	if err != nil {
		status, code := classifyError(err)
		writeError(w, status, code, err.Error())
		return
	}
	if !result.Found {
		writeError(w, http.StatusNotFound, model.CodeNotFound, "unknown attempt")
		return
	}

	writeBody(w, http.StatusOK, result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidation, "invalid request body")
		return
	}

	result, err := s.orch.Compare(r.Context(), req)
	if err != nil {
		status, code := classifyError(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeBody(w, http.StatusOK, result)
}

// classifyError maps pipeline errors to HTTP status and client code.
func classifyError(err error) (int, string) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, model.CodeValidation
	}
	var serr *model.SecurityError
	if errors.As(err, &serr) {
		return http.StatusBadRequest, model.CodeSecurity
	}
	return http.StatusInternalServerError, model.CodeProcessing
}

type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	CanRetry bool   `json:"canRetry"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeBody(w, status, errorBody{
		Error:    msg,
		Code:     code,
		CanRetry: model.CanRetry(code),
	})
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("http response encode failed", zap.Error(err))
	}
}
