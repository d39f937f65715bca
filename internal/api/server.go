// Package api exposes the generation engine over HTTP: a liveness check
// and a single generation endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/reasoning"
)

// Request count bounds for one /generate call.
const (
	minCount = 1
	maxCount = 10
)

// GenerateRequest is the POST body for /generate.
type GenerateRequest struct {
	Category ability.AttackCategory `json:"category"`
	Platform ability.Platform       `json:"platform"`
	Count    int                    `json:"count"`
}

// ValidationSummary aggregates the safety outcomes of one generation call.
type ValidationSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Blocked int `json:"blocked"`
	Warned  int `json:"warned"`
}

// GenerateResponse is the /generate response payload.
type GenerateResponse struct {
	Abilities         []*ability.Ability `json:"abilities"`
	Count             int                `json:"count"`
	ElapsedSeconds    float64            `json:"elapsed_seconds"`
	Model             string             `json:"model"`
	ValidationSummary ValidationSummary  `json:"validation_summary"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status      string `json:"status"`
	EngineReady bool   `json:"engine_ready"`
}

// Server serves the generation API.
type Server struct {
	engine *reasoning.Engine
	logger *slog.Logger
	http   *http.Server
}

// NewServer creates a Server bound to addr. The engine may be nil, in which
// case /generate answers 503 and /health reports engine_ready=false.
func NewServer(addr string, engine *reasoning.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: engine, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /generate", s.handleGenerate)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until the context is cancelled or
// the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "api server listening", "addr", s.http.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		EngineReady: s.engine != nil,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "Engine not initialised."})
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body: " + err.Error()})
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if err := validateRequest(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}

	start := time.Now()
	abilities, err := s.engine.GenerateAbilities(r.Context(), req.Category, req.Platform, req.Count)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}
	elapsed := time.Since(start).Seconds()

	summary := ValidationSummary{Total: len(abilities)}
	for _, a := range abilities {
		if a.ApprovalStatus == ability.ApprovalBlocked {
			summary.Blocked++
		} else {
			summary.Passed++
		}
		if a.GenerationTrace != nil && len(a.GenerationTrace.ValidationWarnings) > 0 {
			summary.Warned++
		}
	}

	if abilities == nil {
		abilities = []*ability.Ability{}
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		Abilities:         abilities,
		Count:             len(abilities),
		ElapsedSeconds:    float64(int(elapsed*100)) / 100,
		Model:             s.engine.Model(),
		ValidationSummary: summary,
	})
}

func validateRequest(req GenerateRequest) error {
	if !req.Category.IsValid() {
		return fmt.Errorf("unknown attack category: %q", req.Category)
	}
	if !req.Platform.IsValid() {
		return fmt.Errorf("unknown platform: %q", req.Platform)
	}
	if req.Count < minCount || req.Count > maxCount {
		return fmt.Errorf("count must be between %d and %d, got %d", minCount, maxCount, req.Count)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
