package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yurifrl/caixa/pkg/csv"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/store"
	"github.com/yurifrl/caixa/pkg/version"
	"github.com/yurifrl/caixa/pkg/ynab"
)

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, r, http.StatusBadRequest, "invalid id", err)
		return 0, false
	}
	return id, true
}

// ---------------- ledger ----------------

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "file is required", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to read file", err)
		return
	}

	res, err := s.ledger.Upload(r.Context(), header.Filename, data)
	if err != nil {
		s.fail(w, r, "failed to process file", err)
		return
	}
	s.respondOK(w, map[string]any{"data": res})
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	var m ledger.ManualEntry
	if !s.decodeJSON(w, r, &m) {
		return
	}
	inserted, err := s.ledger.AddManual(r.Context(), m)
	if err != nil {
		s.fail(w, r, "failed to add entry", err)
		return
	}
	s.respondOK(w, map[string]any{"inserted": inserted})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) ([]ledger.Row, bool) {
	f, err := ledger.ParseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, "invalid filter", err)
		return nil, false
	}
	rows, err := s.ledger.Query(r.Context(), f)
	if err != nil {
		s.fail(w, r, "failed to query ledger", err)
		return nil, false
	}
	return rows, true
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.query(w, r)
	if !ok {
		return
	}
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = newRow(row)
	}
	s.respondOK(w, map[string]any{"data": out})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.query(w, r)
	if !ok {
		return
	}
	body, err := csv.Ledger(rows, nil)
	if err != nil {
		s.fail(w, r, "failed to render csv", err)
		return
	}
	filename := fmt.Sprintf("caixa-%s.csv", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("failed to write csv response", "err", err)
	}
}

func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID       int64  `json:"id"`
		Category string `json:"category"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if err := s.ledger.SetCategory(r.Context(), body.ID, body.Category); err != nil {
		s.fail(w, r, "failed to set category", err)
		return
	}
	s.respondOK(w, nil)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.ledger.Sources(r.Context())
	if err != nil {
		s.fail(w, r, "failed to list sources", err)
		return
	}
	s.respondOK(w, map[string]any{"data": sources})
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := s.ledger.Currencies(r.Context())
	if err != nil {
		s.fail(w, r, "failed to list currencies", err)
		return
	}
	s.respondOK(w, map[string]any{"data": currencies})
}

// ---------------- rules ----------------

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var body RuleBody
	if !s.decodeJSON(w, r, &body) {
		return
	}
	rule, err := s.rules.Create(r.Context(), body.Rule())
	if err != nil {
		s.fail(w, r, "failed to create rule", err)
		return
	}
	s.respondOK(w, map[string]any{"data": newRuleBody(rule)})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.rules.List(r.Context())
	if err != nil {
		s.fail(w, r, "failed to list rules", err)
		return
	}
	out := make([]RuleBody, len(list))
	for i, rule := range list {
		out[i] = newRuleBody(rule)
	}
	s.respondOK(w, map[string]any{"data": out})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.rules.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "failed to delete rule", err)
		return
	}
	s.respondOK(w, nil)
}

func (s *Server) handleApplyRule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	n, err := s.rules.Apply(r.Context(), id)
	if err != nil {
		s.fail(w, r, "failed to apply rule", err)
		return
	}
	s.respondOK(w, map[string]any{"updated": n})
}

func (s *Server) handlePreviewRule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	n, err := s.rules.Preview(r.Context(), id)
	if err != nil {
		s.fail(w, r, "failed to preview rule", err)
		return
	}
	s.respondOK(w, map[string]any{"matches": n})
}

// ---------------- categories ----------------

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.Categories(r.Context())
	if err != nil {
		s.fail(w, r, "failed to list categories", err)
		return
	}
	s.respondOK(w, map[string]any{"data": categories})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	id, err := s.store.CreateCategory(r.Context(), body.Name)
	if err != nil {
		s.fail(w, r, "failed to create category", err)
		return
	}
	s.respondOK(w, map[string]any{"data": models.Category{ID: id, Name: strings.TrimSpace(body.Name)}})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	deleted, err := s.store.DeleteCategory(r.Context(), id)
	if err != nil {
		s.fail(w, r, "failed to delete category", err)
		return
	}
	if !deleted {
		s.respondError(w, r, http.StatusNotFound, "category not found", nil)
		return
	}
	s.respondOK(w, nil)
}

// ---------------- rates ----------------

func (s *Server) handleRatesUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.ingesting.TryLock() {
		s.respondError(w, r, http.StatusConflict, "rate update already running", nil)
		return
	}
	defer s.ingesting.Unlock()

	report, err := s.ingestor.Run(r.Context())
	if err != nil && report == nil {
		s.fail(w, r, "failed to update rates", err)
		return
	}
	if err != nil {
		s.logger.Warn("rate update interrupted", "err", err, "persisted", report.Persisted)
	}
	s.respondOK(w, map[string]any{"data": report})
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RateFilter{Currencies: ledger.List(strings.ToUpper(q.Get("currencies")))}
	var err error
	if v := q.Get("start"); v != "" {
		if f.Start, err = ledger.ParseDate(v); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid start", err)
			return
		}
	}
	if v := q.Get("end"); v != "" {
		if f.End, err = ledger.ParseDate(v); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid end", err)
			return
		}
	}
	list, err := s.store.QueryRates(r.Context(), f)
	if err != nil {
		s.fail(w, r, "failed to query rates", err)
		return
	}
	out := make([]Rate, len(list))
	for i, rate := range list {
		out[i] = newRate(rate)
	}
	s.respondOK(w, map[string]any{"data": out})
}

func (s *Server) handleRateCurrencies(w http.ResponseWriter, r *http.Request) {
	codes, err := s.store.RateCurrencies(r.Context())
	if err != nil {
		s.fail(w, r, "failed to list rate currencies", err)
		return
	}
	s.respondOK(w, map[string]any{"data": codes})
}

func (s *Server) handleAvailableCurrencies(w http.ResponseWriter, r *http.Request) {
	codes, err := s.store.AvailableCurrencies(r.Context())
	if err != nil {
		s.fail(w, r, "failed to list available currencies", err)
		return
	}
	s.respondOK(w, map[string]any{"data": codes})
}

func (s *Server) handleSetAvailableCurrencies(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Currencies []string `json:"currencies"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if err := s.store.SetAvailableCurrencies(r.Context(), body.Currencies); err != nil {
		s.fail(w, r, "failed to save available currencies", err)
		return
	}
	s.respondOK(w, nil)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, map[string]any{
		"version":    version.Version,
		"build_time": version.BuildTime,
		"commit":     version.GitCommit,
	})
}

// ---------------- ynab ----------------

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.respondError(w, r, http.StatusBadRequest, "token required", nil)
		return
	}

	budgets, err := ynab.New(token).Budget().GetBudgets()
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to fetch budgets", err)
		return
	}
	s.logger.Info("budgets response", "budgets_count", len(budgets))
	s.respondOK(w, map[string]any{"budgets": budgets})
}

func (s *Server) handleBudgetAccounts(w http.ResponseWriter, r *http.Request) {
	budgetID := r.PathValue("id")
	token := r.URL.Query().Get("token")
	if token == "" {
		s.respondError(w, r, http.StatusBadRequest, "token required", nil)
		return
	}

	snapshot, err := ynab.New(token).Account().GetAccounts(budgetID, nil)
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to fetch accounts", err)
		return
	}
	var accounts any = []any{}
	if snapshot != nil && snapshot.Accounts != nil {
		accounts = snapshot.Accounts
	}
	s.logger.Info("accounts response", "budget_id", budgetID)
	s.respondOK(w, map[string]any{"accounts": accounts})
}
