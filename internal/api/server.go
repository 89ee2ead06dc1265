// Package api exposes the HTTP surface: the transcription endpoint plus
// read-side endpoints for domains, stored calls and service stats.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/MikeSquared-Agency/echo/internal/domains"
	"github.com/MikeSquared-Agency/echo/internal/metrics"
	"github.com/MikeSquared-Agency/echo/internal/pipeline"
	"github.com/MikeSquared-Agency/echo/internal/store"
)

// Processor runs the analysis pipeline for one uploaded recording.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// CallReader serves the read-side endpoints.
type CallReader interface {
	GetCall(ctx context.Context, id int64) (*store.CallDetail, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

type Server struct {
	router   *chi.Mux
	server   *http.Server
	pipeline Processor
	registry *domains.Registry
	store    CallReader
	logger   *slog.Logger
}

func NewServer(port int, p Processor, registry *domains.Registry, reader CallReader, m *metrics.Metrics, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		pipeline: p,
		registry: registry,
		store:    reader,
		logger:   logger,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		},
	}

	router.Get("/health", s.health)
	router.Post("/transcribe/", s.transcribe)
	router.Get("/api/v1/domains", s.listDomains)
	router.Get("/api/v1/calls/{callID}", s.getCall)
	router.Get("/api/v1/stats", s.stats)
	router.Handle("/metrics", m.Handler())

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listDomains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"domains": s.registry.Snapshot()})
}

type callResponse struct {
	ID              int64           `json:"id"`
	FileName        string          `json:"file_name"`
	Domain          string          `json:"domain"`
	Category        string          `json:"category"`
	AgentName       string          `json:"agent_name"`
	CustomerName    string          `json:"customer_name"`
	CallDirection   string          `json:"call_direction"`
	InteractionType string          `json:"interaction_type"`
	Sentiment       string          `json:"sentiment"`
	Intent          string          `json:"intent"`
	TokensInput     int             `json:"tokens_input"`
	TokensOutput    int             `json:"tokens_output"`
	TotalTokens     int             `json:"total_tokens"`
	DomainSpecific  json.RawMessage `json:"domain_specific_data"`
}

func (s *Server) getCall(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "callID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid call id")
		return
	}

	detail, err := s.store.GetCall(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}
	if err != nil {
		s.logger.Error("call lookup failed", "call_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "call lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, callResponse{
		ID:              detail.ID,
		FileName:        detail.General.FileName,
		Domain:          detail.General.Domain,
		Category:        detail.General.Category,
		AgentName:       detail.General.AgentName,
		CustomerName:    detail.General.CustomerName,
		CallDirection:   detail.General.CallDirection,
		InteractionType: detail.General.InteractionType,
		Sentiment:       detail.General.Sentiment,
		Intent:          detail.General.Intent,
		TokensInput:     detail.General.TokensInput,
		TokensOutput:    detail.General.TokensOutput,
		TotalTokens:     detail.General.TotalTokens,
		DomainSpecific:  detail.DomainSpecific,
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"total_calls":             st.TotalCalls,
		"domain_specific_records": st.DomainSpecificRecords,
		"stored_prompts":          st.StoredPrompts,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
