package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/linkmint/linkmint/internal/auth"
	"github.com/linkmint/linkmint/internal/cachestore"
	"github.com/linkmint/linkmint/internal/clicks"
	"github.com/linkmint/linkmint/internal/config"
	"github.com/linkmint/linkmint/internal/datastore"
	"github.com/linkmint/linkmint/internal/httpserver"
	"github.com/linkmint/linkmint/internal/shortener"
)

var (
	version   = "dev"
	gitCommit = "none"
)

//go:embed apidocs.swagger.json
var swaggerJSON []byte

func main() {
	ctx, shutdown := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer shutdown()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting linkmint service", "version", version, "commit", gitCommit)

	db, err := datastore.NewStore(ctx, logger, cfg.App.DBAddress)
	if err != nil {
		logger.Error("failed to connect to datastore", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache, err := cachestore.NewCache(ctx, logger, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	var wg sync.WaitGroup

	counter := clicks.NewCounter(logger, db, cfg.Clicks)
	counter.Run(ctx, &wg)

	svc := shortener.NewService(logger, db, cache, counter, cfg.App.ReservedAliases)
	svc.RunReaper(ctx, &wg, cfg.Reaper.Interval)

	authMgr := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	limiter := cachestore.NewRateLimiter(logger, cache, cfg.RateLimiter)

	httpSrv := httpserver.NewServer(logger, svc, db, authMgr, httpserver.Options{
		Addr:          cfg.App.HTTPEndpoint,
		PublicBaseURL: cfg.App.PublicBaseURL,
		SwaggerJSON:   swaggerJSON,
		Limiter:       &limiter,
		HealthPingers: []httpserver.Pinger{db, cache},
	})
	if runErr := httpSrv.Run(ctx, &wg); runErr != nil {
		logger.Error("failed to run HTTP server", "error", runErr)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("powering down linkmint service")
	wg.Wait()
}
