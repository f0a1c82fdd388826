package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holdingsd/internal/config"
	"holdingsd/internal/exchange"
	"holdingsd/internal/holdings"
	apphttp "holdingsd/internal/http"
	"holdingsd/internal/secrets"
	storepkg "holdingsd/internal/store"
	"holdingsd/internal/store/memory"
	"holdingsd/internal/store/postgres"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var st storepkg.Store
	if cfg.StoreMode == "postgres" && cfg.DatabaseURL != "" {
		pgStore, err := postgres.NewStore(cfg.DatabaseURL)
		if err != nil {
			log.Printf("postgres store unavailable, falling back to memory store: %v", err)
			st = memory.NewStore()
		} else {
			st = pgStore
		}
	} else {
		st = memory.NewStore()
	}

	var source secrets.Source
	if cfg.SecretDocument != "" {
		source = secrets.Static{Documents: map[string]string{cfg.SecretName: cfg.SecretDocument}}
	} else {
		source = secrets.File{Dir: cfg.SecretDir}
	}

	creds := exchange.NewCredentialCache(source, cfg.SecretName, cfg.SecretCacheTTL)
	client := exchange.NewClient(cfg.ExchangeBaseURL, cfg.UserAgent, creds, cfg.HTTPTimeout)
	holdingsSvc := holdings.NewService(client, st, cfg.CacheTTL)

	srv := apphttp.NewServer(cfg, st, holdingsSvc, creds)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("%s listening on %s", cfg.AppName, cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
