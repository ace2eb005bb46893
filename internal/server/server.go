// Package server exposes the validation API: extraction runs, the pending
// review queue, question answering, and memory inspection.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ledgerline/finsight/internal/hitl"
	"github.com/ledgerline/finsight/internal/memory"
	"github.com/ledgerline/finsight/internal/model"
	"github.com/ledgerline/finsight/internal/pipeline"
	"github.com/ledgerline/finsight/internal/qa"
)

// Server handles the HTTP validation boundary. Extraction itself stays in the
// pipeline; handlers only decode requests and encode results.
type Server struct {
	pipeline *pipeline.Pipeline
	answerer *qa.Answerer
	mem      *memory.Memory
	router   chi.Router
}

// New builds a server with routes registered.
func New(p *pipeline.Pipeline, answerer *qa.Answerer, mem *memory.Memory, allowedOrigins []string) *Server {
	s := &Server{pipeline: p, answerer: answerer, mem: mem}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/extract", s.handleExtract)
	r.Get("/pending", s.handlePendingList)
	r.Get("/pending/{id}", s.handlePendingGet)
	r.Post("/pending/{id}/corrections", s.handleCorrections)
	r.Post("/ask", s.handleAsk)
	r.Post("/answers/corrections", s.handleAnswerCorrection)
	r.Get("/memory/stats", s.handleMemoryStats)

	s.router = r
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the given port until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		srv.Close()
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	result, decision, err := s.pipeline.Run(r.Context())
	if err != nil {
		zap.L().Error("extraction run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result":           result,
		"needs_validation": decision.NeedsValidation,
		"rule":             decision.Rule,
	})
}

func (s *Server) handlePendingList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": s.pipeline.Registry().List(),
	})
}

func (s *Server) handlePendingGet(w http.ResponseWriter, r *http.Request) {
	review, err := s.pipeline.Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, hitl.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pending review not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleCorrections(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Corrections []model.CorrectionAction `json:"corrections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	validated, err := s.pipeline.Validate(r.Context(), chi.URLParam(r, "id"), req.Corrections)
	if err != nil {
		if eris.Is(err, hitl.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pending review not found")
			return
		}
		zap.L().Error("validation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}
	writeJSON(w, http.StatusOK, validated)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		zap.L().Error("question answering failed",
			zap.String("question", req.Question),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "answering failed")
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleAnswerCorrection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question  string       `json:"question"`
		Original  model.Answer `json:"original"`
		Corrected model.Answer `json:"corrected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	if err := s.mem.StoreQACorrection(r.Context(), req.Question, req.Original, req.Corrected); err != nil {
		zap.L().Error("qa correction store failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.mem.Stats(r.Context())
	if err != nil {
		zap.L().Error("memory stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
