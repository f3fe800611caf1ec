package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/service"
)

// TradeHandler handles HTTP requests for trading, history, and portfolio
// endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// orderRequest is the JSON request body for POST /users/{user_id}/buy and
// /sell. shares is kept raw so any scalar reaches share parsing and is
// reported as invalid_quantity rather than a decode error.
type orderRequest struct {
	Symbol string          `json:"symbol"`
	Shares json.RawMessage `json:"shares"`
}

// historyResponse is the JSON response for GET /users/{user_id}/history.
type historyResponse struct {
	UserID string          `json:"user_id"`
	Trades []tradeResponse `json:"trades"`
}

type orderFunc func(ctx context.Context, userID, symbol, rawShares string) (*domain.TradeEvent, error)

// Buy handles POST /users/{user_id}/buy.
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.tradeSvc.Buy)
}

// Sell handles POST /users/{user_id}/sell.
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.tradeSvc.Sell)
}

func (h *TradeHandler) submit(w http.ResponseWriter, r *http.Request, execute orderFunc) {
	var req orderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	shares, _ := rawScalar(req.Shares)
	event, err := execute(r.Context(), chi.URLParam(r, "user_id"), req.Symbol, shares)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, newTradeResponse(event))
}

// History handles GET /users/{user_id}/history.
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	events, err := h.tradeSvc.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	trades := make([]tradeResponse, 0, len(events))
	for _, e := range events {
		trades = append(trades, newTradeResponse(e))
	}
	WriteJSON(w, http.StatusOK, historyResponse{UserID: userID, Trades: trades})
}

// Portfolio handles GET /users/{user_id}/portfolio.
func (h *TradeHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	v, err := h.tradeSvc.Portfolio(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newPortfolioResponse(v))
}
