package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/gridwatt/energy-market/internal/adapter/cache"
	"github.com/gridwatt/energy-market/internal/adapter/in_memory"
	"github.com/gridwatt/energy-market/internal/adapter/pg"
	"github.com/gridwatt/energy-market/internal/api/http"
	"github.com/gridwatt/energy-market/internal/config"
	"github.com/gridwatt/energy-market/internal/core"
	"github.com/gridwatt/energy-market/internal/port"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	ctx := context.Background()

	var repo port.Repository
	if cfg.Database.DSN != "" {
		pgRepo, err := pg.NewPgRepo(ctx, cfg.Database.DSN)
		if err != nil {
			log.Error("connect to postgres", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pgRepo.Close(ctx)
		repo = pgRepo
		log.Info("using postgres repository")
	} else {
		repo = in_memory.NewMemoryRepo()
		log.Warn("no database DSN configured, using in-memory repository")
	}

	var c port.Cache
	if cfg.Redis.Addr != "" {
		c = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		log.Info("using redis cache", slog.String("addr", cfg.Redis.Addr))
	} else {
		c = in_memory.NewCache()
	}

	// Stand-in for the host ledger's transfer primitive.
	treasury := in_memory.NewTreasury()

	eng := core.NewEngine(repo, c, treasury, port.SystemClock{}, log, core.Options{
		MarketID:     cfg.Market.ID,
		Owner:        cfg.Market.Owner,
		PricePerUnit: cfg.Market.PricePerUnit,
		Scaling:      core.ScalingMode(cfg.Market.Scaling),
	})
	if err := eng.Restore(ctx); err != nil {
		log.Error("restore market state", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := http.NewHTTPServer(eng, log, cfg.Server.RateLimit)
	log.Info("starting HTTP server", slog.String("addr", cfg.Server.Addr))
	if err := server.Run(cfg.Server.Addr); err != nil {
		log.Error("HTTP server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
