package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/analytics"
	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
)

// ReportsHandler exposes the four analytics views.
type ReportsHandler struct {
	engine     *analytics.Engine
	production bool
	log        zerolog.Logger
}

func NewReportsHandler(engine *analytics.Engine, production bool, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{engine: engine, production: production, log: log}
}

// ExpensesByCategory handles GET /api/reports/expenses-by-category with an
// optional inclusive startDate/endDate range.
func (h *ReportsHandler) ExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	var from, to *time.Time
	if v := r.URL.Query().Get("startDate"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid startDate format.")
			return
		}
		from = &d
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid endDate format.")
			return
		}
		to = &d
	}

	rows, err := h.engine.ExpensesByCategory(r.Context(), ownerID, from, to)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Failed to compute category breakdown")
		middleware.WriteDomainError(w, err, h.production)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rows)
}

// MonthlySpending handles GET /api/reports/monthly-spending.
func (h *ReportsHandler) MonthlySpending(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	series, err := h.engine.MonthlySpending(r.Context(), ownerID)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Failed to compute monthly spending")
		middleware.WriteDomainError(w, err, h.production)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, series)
}

// IncomeVsExpense handles GET /api/reports/income-vs-expense.
func (h *ReportsHandler) IncomeVsExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	series, err := h.engine.IncomeVsExpense(r.Context(), ownerID)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Failed to compute income vs expense")
		middleware.WriteDomainError(w, err, h.production)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, series)
}

// Summary handles GET /api/reports/summary.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	summary, err := h.engine.DashboardSummary(r.Context(), ownerID)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Failed to compute dashboard summary")
		middleware.WriteDomainError(w, err, h.production)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}
