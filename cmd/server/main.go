package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/settlewise/internal/auth"
	"github.com/mmynk/settlewise/internal/config"
	"github.com/mmynk/settlewise/internal/ledger"
	"github.com/mmynk/settlewise/internal/metrics"
	"github.com/mmynk/settlewise/internal/middleware"
	"github.com/mmynk/settlewise/internal/notify"
	"github.com/mmynk/settlewise/internal/reminder"
	"github.com/mmynk/settlewise/internal/service"
	"github.com/mmynk/settlewise/internal/storage"
	"github.com/mmynk/settlewise/internal/storage/postgres"
	"github.com/mmynk/settlewise/internal/storage/sqlite"
	"github.com/mmynk/settlewise/pkg/api"
	"github.com/mmynk/settlewise/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	hub := notify.New(notify.WithBuffer(cfg.HubBuffer), notify.WithMetrics(m))
	defer hub.Close()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	ledgerOpts := []ledger.Option{ledger.WithPublisher(hub), ledger.WithMetrics(m)}
	settler := ledger.NewSettler(store, ledgerOpts...)
	bills := ledger.NewBillBook(store, ledgerOpts...)

	if cfg.ReminderSchedule != "" {
		c, err := reminder.New(store, settler, store, hub, m).Start(cfg.ReminderSchedule)
		if err != nil {
			return err
		}
		defer func() { <-c.Stop().Done() }()
	}

	// Outermost first: metrics see every call, logging sees the authenticated user.
	interceptors := connect.WithInterceptors(
		middleware.MetricsInterceptor(m),
		middleware.RequireAuth(jwtManager, api.PublicProcedures...),
		middleware.LoggingInterceptor(),
		middleware.TimeoutInterceptor(cfg.RequestTimeout),
	)

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(service.NewAuthService(authenticator, jwtManager, store, slog.Default()), interceptors))
	mux.Handle(api.NewGroupServiceHandler(service.NewGroupService(ledger.NewGroups(store)), interceptors))
	mux.Handle(api.NewBillServiceHandler(service.NewBillService(bills, settler), interceptors))
	mux.Handle(api.NewSummaryServiceHandler(service.NewSummaryService(ledger.NewBalances(store)), interceptors))
	mux.Handle("GET /ws/{group_id}", notify.NewHandler(hub, jwtManager, store, notify.WithOriginPatterns(cfg.AllowedOrigins...)))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /health", healthHandler(store))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux, cfg.AllowedOrigins)), &http2.Server{})
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")

		// Websocket streams are hijacked and not tracked by Shutdown.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver)
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver, "database", cfg.DBPath)
		return store, nil
	}
}
