// Command tallyd serves one token ledger over HTTP.
//
// Configuration comes from the environment (see package config). Without
// TALLY_TOKEN_ID the token deployed under TALLY_TOKEN_SYMBOL is reopened,
// or deployed on first start.
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

	"golang.org/x/sync/errgroup"

	"github.com/xraph/tally"
	"github.com/xraph/tally/api"
	audithook "github.com/xraph/tally/audit_hook"
	"github.com/xraph/tally/config"
	"github.com/xraph/tally/kafkahook"
	"github.com/xraph/tally/observability"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/store/mongo"
	"github.com/xraph/tally/store/postgres"
	"github.com/xraph/tally/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("tallyd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	metrics := observability.NewPrometheusFactory(nil)

	opts := []tally.Option{
		tally.WithLogger(logger),
		tally.WithPlugin(audithook.New(audithook.LogRecorder(logger), audithook.WithLogger(logger))),
		tally.WithPlugin(observability.NewMetricsExtension(metrics)),
	}
	if len(cfg.KafkaBrokers) > 0 {
		w := kafkahook.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		opts = append(opts, tally.WithPlugin(kafkahook.New(w, kafkahook.WithLogger(logger))))
	}
	if cfg.MintEvent {
		opts = append(opts, tally.WithMintEvent())
	}

	l, err := openLedger(ctx, cfg, st, opts)
	if err != nil {
		return err
	}
	defer l.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("/", api.New(l,
		api.WithLogger(logger),
		api.WithAllowedOrigin(cfg.Domain),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	).Handler())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr, "token_id", l.ID().String(), "symbol", l.Symbol())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreRocks:
		return openRocks(cfg.DSN)
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.StoreSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.StoreMongo:
		return mongo.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: store %q", tally.ErrInvalidConfiguration, cfg.Store)
	}
}

func openLedger(ctx context.Context, cfg *config.Config, st store.Store, opts []tally.Option) (*tally.Ledger, error) {
	if tid := cfg.ParsedTokenID(); !tid.IsNil() {
		return tally.Open(ctx, st, tid, opts...)
	}

	params, err := cfg.TokenParams()
	if err != nil {
		return nil, err
	}
	l, fresh, err := tally.OpenOrDeploy(ctx, st, params, opts...)
	if err != nil {
		return nil, err
	}
	if fresh && cfg.Store == config.StoreMemory {
		slog.Warn("memory store: balances are lost on exit", "token_id", l.ID().String())
	}
	return l, nil
}
