package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"pro-client-access/internal/adapters/auth/identity"
	"pro-client-access/internal/adapters/auth/jwtlocal"
	"pro-client-access/internal/adapters/cache/rediscache"
	"pro-client-access/internal/adapters/queue/rabbit"
	"pro-client-access/internal/adapters/storage/postgres"
	"pro-client-access/internal/config"
	"pro-client-access/internal/platform/logger"
	"pro-client-access/internal/ports/auth"
	"pro-client-access/internal/queue"
	"pro-client-access/internal/router"
)

// @title        Professional Client Access API
// @version      1.0
// @description  Relaciones profesional-cliente y autorización de permisos sobre datos de salud.
// @BasePath     /
func main() {
	_ = godotenv.Load() // .env opcional; en prod las vars vienen del entorno

	cfg := config.Load()
	lg := logger.NewFromEnv()

	var db *sql.DB
	if cfg.DBDSN != "" {
		opened, err := postgres.Open(cfg.DBDSN)
		if err != nil {
			log.Fatalf("postgres open: %v", err)
		}
		db = opened
	}

	var events queue.Publisher
	if cfg.AMQPURL != "" {
		events = rabbit.NewPublisher(cfg.AMQPURL, lg)
	}

	rdb := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if cfg.RedisAddr != "" && rdb == nil {
		lg.Warn("redis unavailable, running without decision cache", map[string]any{"addr": cfg.RedisAddr})
	}

	r, svcs := router.NewRouter(router.Options{
		AuthVerifier: buildVerifier(cfg, lg),
		DB:           db,
		Redis:        rdb,
		Events:       events,
		Log:          lg,
		InviteTTL:    cfg.InviteTTL,
		CacheTTL:     cfg.CacheTTL,
	})

	// Janitor: barrido best-effort de invitaciones vencidas. El canje
	// expira lazy igual; esto solo mantiene las tablas limpias.
	go func() {
		ticker := time.NewTicker(cfg.JanitorInterval)
		defer ticker.Stop()
		for range ticker.C {
			svcs.Invitations.ExpireStale(context.Background(), 100)
		}
	}()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lg.Info("starting server", map[string]any{"addr": addr, "env": cfg.Env})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// buildVerifier elige el verifier: identity remoto si está configurado,
// si no JWT local, si no nil (modo dev con headers X-Debug-*).
func buildVerifier(cfg config.Config, lg logger.Logger) auth.AuthVerifier {
	if cfg.IdentityBaseURL != "" {
		client, err := identity.NewClient(identity.Config{
			BaseURL: cfg.IdentityBaseURL,
			APIKey:  cfg.IdentityAPIKey,
		})
		if err != nil {
			log.Fatalf("identity client: %v", err)
		}
		return identity.NewVerifier(client)
	}
	if cfg.JWTSecret != "" {
		return jwtlocal.NewVerifier(cfg.JWTSecret)
	}
	lg.Warn("no verifier configured, running in dev mode", nil)
	return nil
}
