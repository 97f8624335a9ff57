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
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gridwatt/exchange/internal/api"
	"github.com/gridwatt/exchange/internal/bank"
	"github.com/gridwatt/exchange/internal/chain"
	"github.com/gridwatt/exchange/internal/config"
	"github.com/gridwatt/exchange/internal/listing"
	"github.com/gridwatt/exchange/internal/match"
	"github.com/gridwatt/exchange/internal/reputation"
	"github.com/gridwatt/exchange/internal/store"
	"github.com/gridwatt/exchange/internal/trade"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.Redis.URL != "" {
			opt, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				slog.Error("invalid redis url", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.Redis.TTL.Duration)
			slog.Info("redis cache enabled", "ttl", cfg.Redis.TTL.Duration)
		}
	} else {
		slog.Warn("database.url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Ordering counter ---
	heights := chain.NewCounter(cfg.Chain.StartHeight)
	go heights.Run(ctx, cfg.Chain.TickInterval.Duration)

	// --- Engine components, leaves first ---
	bk := bank.NewLedger()
	tracker := reputation.NewTracker(st)
	registry := listing.NewRegistry(st, heights, cfg.Market.MinAmount, cfg.Market.MaxAmount)
	ledger := trade.NewLedger(st, registry, tracker, bk, heights,
		cfg.Market.CustodyAccount, cfg.Market.FeeBps)
	matcher := match.NewMatcher(registry, tracker, ledger, heights, cfg.Market.MatchWindow)

	// --- WebSocket hub ---
	hub := api.NewHub()
	go hub.Run()

	// --- HTTP server ---
	server := api.NewServer(registry, ledger, tracker, matcher, bk, st, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("exchange-engine listening",
			"port", cfg.Server.Port,
			"fee_bps", cfg.Market.FeeBps,
			"match_window", cfg.Market.MatchWindow,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	slog.Info("shutting down exchange-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("exchange-engine stopped")
}
