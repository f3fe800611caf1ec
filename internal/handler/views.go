package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05.000Z"

// userResponse is the JSON view of a user account.
type userResponse struct {
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	Cash        decimal.Decimal `json:"cash"`
	CashDisplay string          `json:"cash_display"`
	CreatedAt   string          `json:"created_at"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		UserID:      u.UserID,
		Username:    u.Username,
		Cash:        u.Cash,
		CashDisplay: domain.FormatUSD(u.Cash),
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

// tradeResponse is the JSON view of one ledger entry. Shares is signed:
// negative for a sell.
type tradeResponse struct {
	TradeID       string          `json:"trade_id"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Shares        int64           `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	PriceDisplay  string          `json:"price_display"`
	Amount        decimal.Decimal `json:"amount"`
	AmountDisplay string          `json:"amount_display"`
	ExecutedAt    string          `json:"executed_at"`
}

func newTradeResponse(e *domain.TradeEvent) tradeResponse {
	amount := e.Amount()
	return tradeResponse{
		TradeID:       e.TradeID,
		Symbol:        e.Symbol,
		Side:          string(e.Side()),
		Shares:        e.Shares,
		Price:         e.Price,
		PriceDisplay:  domain.FormatUSD(e.Price),
		Amount:        amount,
		AmountDisplay: domain.FormatUSD(amount),
		ExecutedAt:    formatTime(e.ExecutedAt),
	}
}

// holdingResponse is a single priced position. Price and value are null when
// the quote was unavailable; Error then carries the reason.
type holdingResponse struct {
	Symbol       string           `json:"symbol"`
	Name         string           `json:"name"`
	Shares       int64            `json:"shares"`
	Price        *decimal.Decimal `json:"price"`
	PriceDisplay *string          `json:"price_display"`
	Value        *decimal.Decimal `json:"value"`
	ValueDisplay *string          `json:"value_display"`
	Error        string           `json:"error,omitempty"`
}

// portfolioResponse is the JSON response for GET /users/{user_id}/portfolio.
type portfolioResponse struct {
	UserID        string            `json:"user_id"`
	Holdings      []holdingResponse `json:"holdings"`
	Cash          decimal.Decimal   `json:"cash"`
	CashDisplay   string            `json:"cash_display"`
	HoldingsValue decimal.Decimal   `json:"holdings_value"`
	Total         decimal.Decimal   `json:"total"`
	TotalDisplay  string            `json:"total_display"`
	Partial       bool              `json:"partial"`
}

func newPortfolioResponse(v *domain.Valuation) portfolioResponse {
	holdings := make([]holdingResponse, 0, len(v.Holdings))
	for _, h := range v.Holdings {
		hr := holdingResponse{
			Symbol: h.Symbol,
			Name:   h.Name,
			Shares: h.Shares,
			Price:  h.Price,
			Value:  h.Value,
		}
		if h.Price != nil {
			hr.PriceDisplay = displayPtr(*h.Price)
		}
		if h.Value != nil {
			hr.ValueDisplay = displayPtr(*h.Value)
		}
		if h.Err != nil {
			hr.Error = h.Err.Error()
		}
		holdings = append(holdings, hr)
	}

	return portfolioResponse{
		UserID:        v.UserID,
		Holdings:      holdings,
		Cash:          v.Cash,
		CashDisplay:   domain.FormatUSD(v.Cash),
		HoldingsValue: v.HoldingsValue,
		Total:         v.Total,
		TotalDisplay:  domain.FormatUSD(v.Total),
		Partial:       v.Partial,
	}
}

// quoteResponse is the JSON response for GET /quotes/{symbol}.
type quoteResponse struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	PriceDisplay string          `json:"price_display"`
}

func displayPtr(d decimal.Decimal) *string {
	s := domain.FormatUSD(d)
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
