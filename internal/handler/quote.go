package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/service"
)

// QuoteHandler handles HTTP requests for quote endpoints.
type QuoteHandler struct {
	quoteSvc *service.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quoteSvc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteSvc: quoteSvc}
}

// GetQuote handles GET /quotes/{symbol}.
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.quoteSvc.Lookup(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quoteResponse{
		Symbol:       q.Symbol,
		Name:         q.Name,
		Price:        q.Price,
		PriceDisplay: domain.FormatUSD(q.Price),
	})
}
