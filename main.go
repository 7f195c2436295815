package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"

	"github.com/linlinbupt123-crypto/seed_custody/api"
	"github.com/linlinbupt123-crypto/seed_custody/chain"
	"github.com/linlinbupt123-crypto/seed_custody/config"
	"github.com/linlinbupt123-crypto/seed_custody/db"
	"github.com/linlinbupt123-crypto/seed_custody/domain"
	"github.com/linlinbupt123-crypto/seed_custody/ratelimit"
	"github.com/linlinbupt123-crypto/seed_custody/repository"
	"github.com/linlinbupt123-crypto/seed_custody/service"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Crit("Failed to load config", "path", *configPath, "err", err)
	}
	useColor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	logger, err := config.NewLogger(cfg.Log, os.Stderr, useColor)
	if err != nil {
		log.Crit("Failed to build logger", "err", err)
	}
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 初始化存储
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Crit("Failed to open store", "driver", cfg.Store.Driver, "err", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("Failed to close store", "err", err)
		}
	}()

	// 2. 初始化依赖
	limiter := ratelimit.New(ratelimit.Config{
		Interval: cfg.RateLimit.Interval,
		Burst:    cfg.RateLimit.Burst,
		TTL:      cfg.RateLimit.TTL,
	})
	go limiter.Run(ctx, time.Minute)

	walletService := service.NewWalletService(
		store,
		domain.NewSeedVault(domain.WithIterations(cfg.Vault.Iterations)),
		service.WithLimiter(limiter),
		service.WithValidators(chain.NewValidators(cfg.Bitcoin.MainNet)),
		service.WithMaxConcurrent(cfg.Vault.MaxConcurrent),
	)

	// 3. Gin
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.NewWalletHandler(walletService), log.New("module", "http"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Seed custody service started", "port", cfg.Port, "store", cfg.Store.Driver, "kdf_iterations", cfg.Vault.Iterations)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server start failed", "err", err)
		return
	}
	log.Info("Seed custody service stopped")
}

func openStore(ctx context.Context, c config.StoreConfig) (repository.Store, error) {
	switch c.Driver {
	case config.StoreSQLite:
		return repository.OpenSQLiteStore(c.SQLitePath)
	default:
		m, err := db.NewMongoRepo(ctx, c.MongoURI, c.MongoDB)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoStore(m), nil
	}
}
