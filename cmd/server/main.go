package main

import (
	"context"

	"github.com/sparklink-app/sparklink/internal/app"
	"github.com/sparklink-app/sparklink/internal/cache"
	"github.com/sparklink-app/sparklink/internal/config"
	"github.com/sparklink-app/sparklink/internal/db"
	"github.com/sparklink-app/sparklink/internal/identity"
	"github.com/sparklink-app/sparklink/internal/logger"
	"github.com/sparklink-app/sparklink/internal/realtime"
	"github.com/sparklink-app/sparklink/internal/server"
	"github.com/sparklink-app/sparklink/internal/service/account"
	"github.com/sparklink-app/sparklink/internal/service/matching"
	"github.com/sparklink-app/sparklink/internal/token"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		log.Warn("running with the default JWT secret, set JWT_SECRET in production")
	}

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := db.EnsureDemoData(database, log); err != nil {
			log.Error("failed to seed demo data", "err", err)
		}
	}

	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	google := identity.NewGoogleVerifier(cfg.Auth.GoogleClientID)

	accounts := account.NewService(appCtx, tokens, google)
	matchSvc := matching.NewService(appCtx)
	hub := realtime.NewHub(log)

	handlers := server.NewHandlers(appCtx, accounts, matchSvc, hub)
	router := server.NewRouter(handlers, tokens)

	if err := server.StartHTTPServer(cfg, router); err != nil {
		log.Error("failed to start http server", "err", err)
	}
}
