package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/finance/internal/config"
	"github.com/efreitasn/finance/internal/engine"
	"github.com/efreitasn/finance/internal/handler"
	"github.com/efreitasn/finance/internal/service"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	envFile := flag.String("env-file", ".env", "Optional file of KEY=VALUE pairs loaded before reading the environment")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", slog.String("path", *envFile), slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store.
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	// Price oracle.
	livePrices, quotes, closeOracle, err := buildOracle(cfg, logger)
	if err != nil {
		logger.Error("failed to build price oracle", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeOracle()

	// Engine.
	locks := engine.NewUserLocks()
	executor := engine.NewExecutor(st, livePrices, locks, logger, cfg.AllowShortSales)
	portfolio := engine.NewPortfolio(st, quotes, locks, logger)
	if cfg.AllowShortSales {
		logger.Warn("short sales enabled: sells are not checked against held shares")
	}

	// Services.
	accountSvc := service.NewAccountService(st, cfg.InitialCash, logger)
	quoteSvc := service.NewQuoteService(quotes)
	tradeSvc := service.NewTradeService(executor, portfolio, st)

	// Router.
	router := handler.NewRouter(accountSvc, quoteSvc, tradeSvc, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: drain in-flight requests before the store closes.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
