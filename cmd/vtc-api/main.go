// README: Entry point; loads config, wires stores and live data sources, starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"vtc/internal/config"
	httptransport "vtc/internal/http"
	"vtc/internal/infra"
	"vtc/internal/logger"
	"vtc/internal/maps"
	"vtc/internal/modules/compliance"
	"vtc/internal/modules/cost"
	"vtc/internal/modules/pricing"
)

func main() {
	configPath := flag.String("config", os.Getenv("VTC_CONFIG"), "optional config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := serve(ctx, cfg, log)
	stop()
	_ = log.Sync()
	os.Exit(code)
}

// serve runs the service and maps its outcome to a process exit code, leaving the
// logger flush and signal cleanup to main.
func serve(ctx context.Context, cfg config.Config, log *zap.Logger) int {
	if err := run(ctx, cfg, log); err != nil {
		log.Error("vtc-api stopped", zap.Error(err))
		return 1
	}
	log.Info("vtc-api stopped")
	return 0
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	var dbPool *pgxpool.Pool
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		dbPool = pool
	} else {
		log.Warn("db.dsn not set, organization quotes are disabled")
	}

	counterStore, closeStore, err := newCounterStore(ctx, cfg.Counter, dbPool)
	if err != nil {
		return err
	}
	defer closeStore()

	var fuelCache cost.FuelPriceCache
	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		defer redisClient.Close()
		fuelCache = cost.NewRedisFuelPriceCache(redisClient, cfg.Redis.FuelPriceTTL)
	}

	live := pricing.DataSources{Costs: cost.NewLiveResolver(nil, fuelCache, nil, log.Named("cost"))}
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey, maps.Options{
			Language: cfg.Maps.Language,
			Region:   cfg.Maps.Region,
			Timeout:  cfg.Maps.Timeout,
		})
		if err != nil {
			return err
		}
		live.Routes = routes
	} else {
		log.Warn("maps.api_key not set, live quotes use estimated routing")
	}

	deps := httptransport.RouterDeps{
		Log:         log.Named("http"),
		Calculator:  pricing.NewCalculator(log.Named("pricing")),
		LiveSources: live,
		Counters:    compliance.NewCounterService(counterStore, log.Named("rse")),
	}
	if dbPool != nil {
		deps.Contexts = pricing.NewStore(dbPool)
	}

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.NewRouter(deps), cfg.HTTP.ShutdownTimeout, log)
	return server.Run(ctx)
}

func newCounterStore(ctx context.Context, cfg config.CounterConfig, pool *pgxpool.Pool) (compliance.CounterStore, func(), error) {
	switch cfg.Backend {
	case "postgres":
		return compliance.NewPostgresStore(pool), func() {}, nil
	case "sqlite":
		db, err := infra.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := compliance.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	default:
		return compliance.NewMemoryStore(), func() {}, nil
	}
}
