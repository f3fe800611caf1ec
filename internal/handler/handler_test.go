package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/engine"
	"github.com/efreitasn/finance/internal/oracle"
	"github.com/efreitasn/finance/internal/service"
	"github.com/efreitasn/finance/internal/store"
)

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router http.Handler
	prices *oracle.Static
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()
	prices, err := oracle.ParseStatic("AAPL=50.00:Apple Inc.,MSFT=300.00:Microsoft Corporation")
	if err != nil {
		t.Fatalf("ParseStatic: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := engine.NewUserLocks()
	executor := engine.NewExecutor(st, prices, locks, logger, false)
	portfolio := engine.NewPortfolio(st, prices, locks, logger)

	accountSvc := service.NewAccountService(st, decimal.RequireFromString("10000.00"), logger)
	quoteSvc := service.NewQuoteService(prices)
	tradeSvc := service.NewTradeService(executor, portfolio, st)

	return &testEnv{
		router: NewRouter(accountSvc, quoteSvc, tradeSvc, logger),
		prices: prices,
	}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

// expectError asserts the status code and error code of a response.
func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	var resp errorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error != code {
		t.Errorf("error = %q, want %q", resp.Error, code)
	}
	if resp.Message == "" {
		t.Error("message is empty")
	}
}

// registerUser registers a user via the API and returns its user_id.
func (env *testEnv) registerUser(t *testing.T, username string, cash any) string {
	t.Helper()
	body := map[string]any{"username": username}
	if cash != nil {
		body["initial_cash"] = cash
	}
	rr := env.doJSON(t, "POST", "/users", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, rr.Code, rr.Body.String())
	}
	var resp userResponse
	decodeJSON(t, rr, &resp)
	return resp.UserID
}

func (env *testEnv) order(t *testing.T, userID, side, symbol string, shares any) *httptest.ResponseRecorder {
	t.Helper()
	return env.doJSON(t, "POST", "/users/"+userID+"/"+side, map[string]any{
		"symbol": symbol,
		"shares": shares,
	})
}

func (env *testEnv) getUser(t *testing.T, userID string) userResponse {
	t.Helper()
	rr := env.doJSON(t, "GET", "/users/"+userID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get user: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp userResponse
	decodeJSON(t, rr, &resp)
	return resp
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestRegisterUser(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "POST", "/users", map[string]any{
		"username":     "alice",
		"initial_cash": "2500.50",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp userResponse
	decodeJSON(t, rr, &resp)
	if resp.UserID == "" || resp.Username != "alice" {
		t.Errorf("got %+v", resp)
	}
	if !resp.Cash.Equal(decimal.RequireFromString("2500.50")) {
		t.Errorf("cash = %s, want 2500.50", resp.Cash)
	}
	if resp.CashDisplay != "$2,500.50" {
		t.Errorf("cash_display = %q, want %q", resp.CashDisplay, "$2,500.50")
	}
}

func TestRegisterUser_DefaultCash(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "bob", nil)

	if got := env.getUser(t, userID); got.CashDisplay != "$10,000.00" {
		t.Errorf("cash_display = %q, want $10,000.00", got.CashDisplay)
	}
}

func TestRegisterUser_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "taken", nil)

	tests := []struct {
		name   string
		body   string
		ct     string
		status int
		code   string
	}{
		{"wrong content type", `{"username":"x"}`, "text/plain", 400, "invalid_request"},
		{"malformed json", `{`, "application/json", 400, "invalid_request"},
		{"unknown field", `{"username":"x","admin":true}`, "application/json", 400, "invalid_request"},
		{"bad username", `{"username":"no spaces"}`, "application/json", 400, "validation_error"},
		{"negative cash", `{"username":"x","initial_cash":-5}`, "application/json", 400, "validation_error"},
		{"sub-cent cash", `{"username":"x","initial_cash":1.001}`, "application/json", 400, "validation_error"},
		{"boolean cash", `{"username":"x","initial_cash":true}`, "application/json", 400, "validation_error"},
		{"non-numeric cash", `{"username":"x","initial_cash":"lots"}`, "application/json", 400, "validation_error"},
		{"numeric username", `{"username":5}`, "application/json", 400, "invalid_request"},
		{"trailing data", `{"username":"x"} {}`, "application/json", 400, "invalid_request"},
		{"duplicate", `{"username":"taken"}`, "application/json", 409, "user_already_exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doRaw(t, "POST", "/users", tt.ct, tt.body)
			expectError(t, rr, tt.status, tt.code)
		})
	}
}

func TestRegisterUser_DecodeMessages(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, "empty"},
		{"truncated", `{"username":`, "truncated"},
		{"unknown field", `{"username":"x","admin":true}`, `"admin"`},
		{"wrong type", `{"username":5}`, `"username"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doRaw(t, "POST", "/users", "application/json", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp errorResponse
			decodeJSON(t, rr, &resp)
			if !strings.Contains(resp.Message, tt.want) {
				t.Errorf("message = %q, want it to mention %s", resp.Message, tt.want)
			}
			if strings.Contains(resp.Message, "Content-Type") {
				t.Errorf("message = %q blames the content type", resp.Message)
			}
		})
	}
}

func TestCheckUsername(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "taken", nil)

	for username, want := range map[string]bool{"taken": false, "free": true, "": false} {
		rr := env.doJSON(t, "GET", "/users/check?username="+username, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp usernameCheckResponse
		decodeJSON(t, rr, &resp)
		if resp.Available != want {
			t.Errorf("available(%q) = %v, want %v", username, resp.Available, want)
		}
	}
}

func TestGetUser_NotFound(t *testing.T) {
	env := newTestEnv(t)

	expectError(t, env.doJSON(t, "GET", "/users/missing", nil), 404, "user_not_found")
	expectError(t, env.doJSON(t, "GET", "/users/missing/portfolio", nil), 404, "user_not_found")
	expectError(t, env.doJSON(t, "GET", "/users/missing/history", nil), 404, "user_not_found")
	expectError(t, env.order(t, "missing", "buy", "AAPL", 1), 404, "user_not_found")
}

func TestBuySellScenario(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "alice", "10000.00")

	rr := env.order(t, userID, "buy", "AAPL", 10)
	if rr.Code != http.StatusCreated {
		t.Fatalf("buy: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var buy tradeResponse
	decodeJSON(t, rr, &buy)
	if buy.Side != "buy" || buy.Shares != 10 || buy.AmountDisplay != "-$500.00" {
		t.Errorf("buy = %+v", buy)
	}
	if got := env.getUser(t, userID).CashDisplay; got != "$9,500.00" {
		t.Errorf("cash after buy = %s, want $9,500.00", got)
	}

	if err := env.prices.Set("AAPL", "Apple Inc.", decimal.RequireFromString("120")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	rr = env.order(t, userID, "sell", "aapl", "2")
	if rr.Code != http.StatusCreated {
		t.Fatalf("sell: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := env.getUser(t, userID).CashDisplay; got != "$9,740.00" {
		t.Errorf("cash after sell = %s, want $9,740.00", got)
	}

	rr = env.doJSON(t, "GET", "/users/"+userID+"/history", nil)
	var history historyResponse
	decodeJSON(t, rr, &history)
	if len(history.Trades) != 2 || history.Trades[1].Shares != -2 || history.Trades[1].Side != "sell" {
		t.Errorf("history = %+v", history.Trades)
	}

	rr = env.doJSON(t, "GET", "/users/"+userID+"/portfolio", nil)
	var pf portfolioResponse
	decodeJSON(t, rr, &pf)
	if len(pf.Holdings) != 1 || pf.Holdings[0].Shares != 8 || pf.Holdings[0].Name != "Apple Inc." {
		t.Fatalf("holdings = %+v", pf.Holdings)
	}
	if pf.TotalDisplay != "$10,700.00" || pf.Partial {
		t.Errorf("total = %s, partial = %v", pf.TotalDisplay, pf.Partial)
	}
}

func TestOrder_Rejections(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "alice", "100.00")

	tests := []struct {
		name   string
		side   string
		symbol string
		shares any
		status int
		code   string
	}{
		{"fractional shares", "buy", "AAPL", 1.5, 400, "invalid_quantity"},
		{"fractional string", "buy", "AAPL", "2.50", 400, "invalid_quantity"},
		{"zero shares", "buy", "AAPL", 0, 400, "invalid_quantity"},
		{"negative shares", "sell", "AAPL", -3, 400, "invalid_quantity"},
		{"non-numeric string", "buy", "AAPL", "abc", 400, "invalid_quantity"},
		{"boolean shares", "buy", "AAPL", true, 400, "invalid_quantity"},
		{"empty string", "sell", "AAPL", "", 400, "invalid_quantity"},
		{"null shares", "buy", "AAPL", nil, 400, "invalid_quantity"},
		{"unknown symbol buy", "buy", "ZZZZ", 1, 400, "invalid_symbol"},
		{"unknown symbol sell", "sell", "ZZZZ", 1, 400, "invalid_symbol"},
		{"empty symbol", "buy", "", 1, 400, "invalid_symbol"},
		{"insufficient funds", "buy", "AAPL", 3, 422, "insufficient_funds"},
		{"never bought", "sell", "MSFT", 1, 422, "insufficient_shares"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.order(t, userID, tt.side, tt.symbol, tt.shares), tt.status, tt.code)
		})
	}

	t.Run("missing shares", func(t *testing.T) {
		rr := env.doRaw(t, "POST", "/users/"+userID+"/buy", "application/json", `{"symbol":"AAPL"}`)
		expectError(t, rr, 400, "invalid_quantity")
	})

	if got := env.getUser(t, userID).CashDisplay; got != "$100.00" {
		t.Errorf("cash after rejections = %s, want $100.00", got)
	}
}

func TestOrder_ConcurrentDoubleBuy(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "alice", "500.00")

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = env.order(t, userID, "buy", "AAPL", 10).Code
		}(i)
	}
	wg.Wait()

	created, rejected := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
			rejected++
		}
	}
	if created != 1 || rejected != 1 {
		t.Errorf("codes = %v, want one 201 and one 422", codes)
	}
}

func TestPortfolio_PartialOnDelistedSymbol(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "alice", "1000.00")

	if rr := env.order(t, userID, "buy", "MSFT", 1); rr.Code != http.StatusCreated {
		t.Fatalf("buy: %d %s", rr.Code, rr.Body.String())
	}
	env.prices.Delist("MSFT")

	rr := env.doJSON(t, "GET", "/users/"+userID+"/portfolio", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var pf portfolioResponse
	decodeJSON(t, rr, &pf)
	if !pf.Partial || len(pf.Holdings) != 1 {
		t.Fatalf("portfolio = %+v", pf)
	}
	h := pf.Holdings[0]
	if h.Price != nil || h.Value != nil || !strings.HasPrefix(h.Error, domain.ErrQuoteUnavailable.Error()) {
		t.Errorf("holding = %+v", h)
	}
	if pf.TotalDisplay != "$700.00" {
		t.Errorf("total = %s, want $700.00", pf.TotalDisplay)
	}
}

func TestGetQuote(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "GET", "/quotes/msft", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var q quoteResponse
	decodeJSON(t, rr, &q)
	if q.Symbol != "MSFT" || q.PriceDisplay != "$300.00" {
		t.Errorf("quote = %+v", q)
	}

	expectError(t, env.doJSON(t, "GET", "/quotes/ZZZZ", nil), 400, "invalid_symbol")
}

func TestGetQuote_OracleUnavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	down := oracle.Func(func(ctx context.Context, symbol string) (*domain.Quote, error) {
		return nil, io.ErrUnexpectedEOF
	})
	router := NewRouter(nil, service.NewQuoteService(down), nil, logger)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/quotes/AAPL", nil))
	expectError(t, rr, 503, "oracle_unavailable")
}
