package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/finance/internal/service"
)

// NewRouter creates a chi router with all routes registered, request logging,
// Content-Type validation, and no-cache response headers.
func NewRouter(
	accountSvc *service.AccountService,
	quoteSvc *service.QuoteService,
	tradeSvc *service.TradeService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(noCache)
	r.Use(contentTypeJSON)

	// Create handlers.
	accountH := NewAccountHandler(accountSvc)
	quoteH := NewQuoteHandler(quoteSvc)
	tradeH := NewTradeHandler(tradeSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Account routes.
	r.Post("/users", accountH.Register)
	r.Get("/users/check", accountH.CheckUsername)
	r.Get("/users/{user_id}", accountH.Get)

	// Trading routes.
	r.Get("/users/{user_id}/portfolio", tradeH.Portfolio)
	r.Get("/users/{user_id}/history", tradeH.History)
	r.Post("/users/{user_id}/buy", tradeH.Buy)
	r.Post("/users/{user_id}/sell", tradeH.Sell)

	// Quote routes.
	r.Get("/quotes/{symbol}", quoteH.GetQuote)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// noCache marks every response as non-cacheable. Balances and prices change
// between requests.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Expires", "0")
		h.Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
