package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
)

// CategoriesHandler handles category listing.
type CategoriesHandler struct {
	categories ledger.CategoryStore
	production bool
	log        zerolog.Logger
}

func NewCategoriesHandler(categories ledger.CategoryStore, production bool, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{categories: categories, production: production, log: log}
}

// List handles GET /api/categories: the owner's categories plus the global
// ones, sorted by name.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required. User not found.")
		return
	}

	cats, err := h.categories.ListVisible(r.Context(), ownerID)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Failed to list categories")
		middleware.WriteDomainError(w, err, h.production)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, cats)
}
