package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
)

// TransactionsHandler handles manual transaction entry and management.
type TransactionsHandler struct {
	store      ledger.TransactionStore
	categories ledger.CategoryStore
	production bool
	log        zerolog.Logger
}

func NewTransactionsHandler(store ledger.TransactionStore, categories ledger.CategoryStore, production bool, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store:      store,
		categories: categories,
		production: production,
		log:        log,
	}
}

type createTransactionRequest struct {
	Type          string   `json:"type"`
	Amount        float64  `json:"amount"`
	Date          string   `json:"date"`
	Description   string   `json:"description"`
	CategoryID    string   `json:"categoryId"`
	PaymentMethod string   `json:"paymentMethod"`
	Tags          []string `json:"tags"`
	MerchantName  string   `json:"merchantName"`
}

// Create handles POST /api/transactions.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if req.Type == "" || req.Amount == 0 || req.Date == "" || req.CategoryID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Missing required transaction fields: type, amount, date, categoryId.")
		return
	}
	kind := domain.TransactionKind(req.Type)
	if !domain.ValidKind(kind) {
		middleware.WriteError(w, http.StatusBadRequest, `Invalid transaction type. Must be "income" or "expense".`)
		return
	}
	if req.Amount <= 0 || math.IsNaN(req.Amount) {
		middleware.WriteError(w, http.StatusBadRequest, "Amount must be a positive number.")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date format.")
		return
	}

	category, derr := h.usableCategory(r, ownerID, req.CategoryID, kind)
	if derr != nil {
		middleware.WriteDomainError(w, derr, h.production)
		return
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	tx := &domain.Transaction{
		OwnerID:       ownerID,
		Kind:          kind,
		Amount:        req.Amount,
		Date:          date,
		Description:   req.Description,
		MerchantName:  req.MerchantName,
		Category:      category.Ref(),
		PaymentMethod: req.PaymentMethod,
		Tags:          tags,
		Source:        domain.SourceManual,
	}
	if err := h.store.Insert(r.Context(), tx); err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Failed to insert transaction")
		middleware.WriteDomainError(w, domain.E(domain.CodePersistenceFailed, "Failed to save transaction.", err), h.production)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Transaction added successfully!",
		"transaction": tx,
	})
}

// List handles GET /api/transactions with filtering, sorting and pagination.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	query := r.URL.Query()
	filter := ledger.TransactionFilter{OwnerID: ownerID}

	if v := query.Get("startDate"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid startDate format.")
			return
		}
		filter.From = &d
	}
	if v := query.Get("endDate"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid endDate format.")
			return
		}
		filter.To = &d
	}
	if v := domain.TransactionKind(query.Get("type")); domain.ValidKind(v) {
		filter.Kind = &v
	}
	filter.CategoryID = query.Get("categoryId")

	opts := ledger.ListOptions{
		SortBy:  query.Get("sortBy"),
		SortAsc: query.Get("sortOrder") == "asc",
		Page:    queryInt(query.Get("page"), 1),
		Limit:   queryInt(query.Get("limit"), 10),
	}

	txs, total, err := h.store.List(r.Context(), filter, opts)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Failed to list transactions")
		middleware.WriteDomainError(w, err, h.production)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions":      txs,
		"currentPage":       opts.Page,
		"totalPages":        totalPages(total, opts.Limit),
		"totalTransactions": total,
	})
}

type updateTransactionRequest struct {
	Type          *string  `json:"type"`
	Amount        *float64 `json:"amount"`
	Date          *string  `json:"date"`
	Description   *string  `json:"description"`
	MerchantName  *string  `json:"merchantName"`
	PaymentMethod *string  `json:"paymentMethod"`
	Tags          []string `json:"tags"`
	CategoryID    *string  `json:"categoryId"`
}

// Update handles PUT /api/transactions/{id}. Partial update; every supplied
// field is re-validated before the atomic owner-scoped write.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	upd := ledger.TransactionUpdate{
		Description:   req.Description,
		MerchantName:  req.MerchantName,
		PaymentMethod: req.PaymentMethod,
		Tags:          req.Tags,
	}

	if req.Amount != nil {
		if *req.Amount <= 0 || math.IsNaN(*req.Amount) {
			middleware.WriteError(w, http.StatusBadRequest, "Amount must be a positive number.")
			return
		}
		upd.Amount = req.Amount
	}

	var newKind *domain.TransactionKind
	if req.Type != nil {
		kind := domain.TransactionKind(*req.Type)
		if !domain.ValidKind(kind) {
			middleware.WriteError(w, http.StatusBadRequest, `Invalid transaction type. Must be "income" or "expense".`)
			return
		}
		newKind = &kind
		upd.Kind = &kind
	}

	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format.")
			return
		}
		upd.Date = &d
	}

	if req.CategoryID != nil {
		// The category must be compatible with the transaction's kind after
		// the update: the new kind when supplied, the stored one otherwise.
		kind := domain.KindExpense
		if newKind != nil {
			kind = *newKind
		} else {
			existing, err := h.store.Get(r.Context(), ownerID, id)
			if errors.Is(err, ledger.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, "Transaction not found or you do not have permission to update it.")
				return
			}
			if err != nil {
				h.log.Error().Err(err).Str("owner", ownerID).Str("id", id).Msg("Failed to load transaction")
				middleware.WriteDomainError(w, err, h.production)
				return
			}
			kind = existing.Kind
		}

		category, derr := h.usableCategory(r, ownerID, *req.CategoryID, kind)
		if derr != nil {
			middleware.WriteDomainError(w, derr, h.production)
			return
		}
		ref := category.Ref()
		upd.Category = &ref
	}

	tx, err := h.store.Update(r.Context(), ownerID, id, upd)
	if errors.Is(err, ledger.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found or you do not have permission to update it.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Str("id", id).Msg("Failed to update transaction")
		middleware.WriteDomainError(w, domain.E(domain.CodePersistenceFailed, "Failed to update transaction.", err), h.production)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Transaction updated successfully!",
		"transaction": tx,
	})
}

// Delete handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	err := h.store.Delete(r.Context(), ownerID, id)
	if errors.Is(err, ledger.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found or you do not have permission to delete it.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Str("id", id).Msg("Failed to delete transaction")
		middleware.WriteDomainError(w, err, h.production)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted successfully!"})
}

// usableCategory loads a category and checks the caller may attach it to a
// transaction of the given kind.
func (h *TransactionsHandler) usableCategory(r *http.Request, ownerID, categoryID string, kind domain.TransactionKind) (*domain.Category, error) {
	category, err := h.categories.Get(r.Context(), categoryID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, domain.Errf(domain.CodeNotFound, "Selected category not found.")
	}
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "Failed to load category.", err)
	}

	if !category.Global() && *category.OwnerID != ownerID {
		return nil, domain.Errf(domain.CodeForbidden, "You do not have permission to use this category.")
	}
	if !category.Allows(kind) {
		return nil, domain.Errf(domain.CodeInvalidRequest,
			"Selected category %q is a %q category, but transaction is %q.", category.Name, category.Type, kind)
	}
	return category, nil
}

func parseDate(v string) (time.Time, error) {
	if d, err := time.Parse(time.RFC3339, v); err == nil {
		return d, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", v, err)
	}
	return d, nil
}

func queryInt(v string, fallback int64) int64 {
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func totalPages(total, limit int64) int64 {
	if limit < 1 {
		return 0
	}
	return (total + limit - 1) / limit
}
