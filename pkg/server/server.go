package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/parser"
	"github.com/yurifrl/caixa/pkg/rates"
	"github.com/yurifrl/caixa/pkg/rules"
	"github.com/yurifrl/caixa/pkg/store"
)

const maxUploadBytes = 32 << 20

// Server exposes the ledger, rules and exchange rates as a JSON API.
type Server struct {
	logger   *log.Logger
	mux      *http.ServeMux
	ledger   *ledger.Ledger
	rules    *rules.Engine
	store    *store.Store
	ingestor *rates.Ingestor
	// ingesting serializes rate updates.
	ingesting sync.Mutex
}

// New creates a new HTTP server
func New(logger *log.Logger, l *ledger.Ledger, r *rules.Engine, s *store.Store, in *rates.Ingestor) *Server {
	srv := &Server{
		logger:   logger,
		mux:      http.NewServeMux(),
		ledger:   l,
		rules:    r,
		store:    s,
		ingestor: in,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /upload", s.withLogging(s.handleUpload))
	s.mux.HandleFunc("POST /upload/manual", s.withLogging(s.handleManual))

	s.mux.HandleFunc("GET /ledger", s.withLogging(s.handleLedger))
	s.mux.HandleFunc("GET /ledger/export", s.withLogging(s.handleExport))
	s.mux.HandleFunc("POST /ledger/set-category", s.withLogging(s.handleSetCategory))
	s.mux.HandleFunc("GET /ledger/sources", s.withLogging(s.handleSources))
	s.mux.HandleFunc("GET /ledger/currencies", s.withLogging(s.handleCurrencies))

	s.mux.HandleFunc("POST /rules", s.withLogging(s.handleCreateRule))
	s.mux.HandleFunc("GET /rules", s.withLogging(s.handleListRules))
	s.mux.HandleFunc("DELETE /rules/{id}", s.withLogging(s.handleDeleteRule))
	s.mux.HandleFunc("POST /rules/{id}/apply", s.withLogging(s.handleApplyRule))
	s.mux.HandleFunc("GET /rules/{id}/preview", s.withLogging(s.handlePreviewRule))

	s.mux.HandleFunc("GET /categories", s.withLogging(s.handleCategories))
	s.mux.HandleFunc("POST /categories", s.withLogging(s.handleCreateCategory))
	s.mux.HandleFunc("DELETE /categories/{id}", s.withLogging(s.handleDeleteCategory))

	s.mux.HandleFunc("POST /rates/update", s.withLogging(s.handleRatesUpdate))
	s.mux.HandleFunc("GET /rates", s.withLogging(s.handleRates))
	s.mux.HandleFunc("GET /rates/currencies", s.withLogging(s.handleRateCurrencies))
	s.mux.HandleFunc("GET /rates/available_currencies", s.withLogging(s.handleAvailableCurrencies))
	s.mux.HandleFunc("POST /rates/available_currencies", s.withLogging(s.handleSetAvailableCurrencies))

	s.mux.HandleFunc("GET /version", s.withLogging(s.handleVersion))

	s.mux.HandleFunc("GET /ynab/budgets", s.withLogging(s.handleBudgets))
	s.mux.HandleFunc("GET /ynab/budgets/{id}/accounts", s.withLogging(s.handleBudgetAccounts))
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) respondOK(w http.ResponseWriter, body map[string]any) {
	if body == nil {
		body = map[string]any{}
	}
	body["success"] = true
	if err := s.writeJSON(w, http.StatusOK, body); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path, "request_id", w.Header().Get("X-Request-ID"))
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path, "request_id", w.Header().Get("X-Request-ID"))
	}
	_ = s.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// fail maps domain errors to a status: bad input is 400, unknown ids 404,
// everything else 500 with message as the only detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, parser.ErrUnrecognizedLayout):
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, rules.ErrRuleNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, store.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, err.Error(), err)
	default:
		s.respondError(w, r, http.StatusInternalServerError, message, err)
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
		return false
	}
	return true
}

// withLogging wraps a handler to tag the request, log it and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr, "request_id", id)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path, "request_id", id)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
				return
			}
			s.logger.Debug("http request done", "path", r.URL.Path, "request_id", id, "took", time.Since(start))
		}()
		next(w, r)
	}
}
