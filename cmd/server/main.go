package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/reelacademy/ra-lms/internal/api"
	"github.com/reelacademy/ra-lms/internal/config"
	"github.com/reelacademy/ra-lms/internal/data"
	"github.com/reelacademy/ra-lms/internal/drm"
	"github.com/reelacademy/ra-lms/internal/events"
	"github.com/reelacademy/ra-lms/internal/license"
	"github.com/reelacademy/ra-lms/internal/metrics"
	"github.com/reelacademy/ra-lms/internal/middleware"
	"github.com/reelacademy/ra-lms/internal/playback"
	"github.com/reelacademy/ra-lms/internal/ratelimit"
	"github.com/reelacademy/ra-lms/internal/session"
	"github.com/reelacademy/ra-lms/internal/tokens"
)

const serviceName = "ra-lms"

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Config, with hot reload of the rate-limit section.
	cfgMgr, err := config.NewManager(*configPath)
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}
	cfgMgr.StartWatcher(ctx)
	cfg := cfgMgr.Current()

	jwtKey := cfg.Auth.JWTSigningKey
	if jwtKey == "" {
		jwtKey = "dev-secret-do-not-use-in-prod"
	}

	// DB. Single handle, constructed once and passed by reference.
	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("DB open error: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("DB ping error: %v", err)
	}
	defer db.Close()

	// Shared Redis client.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})

	// NATS is optional: no broker, no events, service still runs.
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name(serviceName))
		if err != nil {
			log.Printf("Warning: NATS connect failed: %v. Event publishing disabled.", err)
			nc = nil
		} else {
			defer nc.Close()
		}
	}
	publisher := events.NewPublisher(nc, cfg.NATS.PublishRetryMax)

	// Components.
	collector := metrics.NewCollector()
	licenseRepo := data.LicenseModel{DB: db}
	validator := license.NewValidator(licenseRepo, collector)
	binder := license.NewBinder(licenseRepo, publisher, collector)

	drmClient := drm.NewClient(cfg.DRM.APIBase, cfg.DRM.APISecret, time.Duration(cfg.DRM.Timeout))
	authorizer := playback.NewAuthorizer(licenseRepo, drmClient, collector)
	tracker := playback.NewTracker(4096, 10*time.Minute, publisher)

	sessionMgr := session.NewManager(rdb)
	tokenMgr := tokens.NewManager(jwtKey)

	authMW := middleware.NewAuth(tokenMgr, sessionMgr)
	limiter := ratelimit.NewLimiter(rdb, cfg.RateLimit.Salt)
	rlMW := middleware.NewRateLimit(limiter, cfgMgr)

	router := api.NewRouter(api.Deps{
		License:  &api.LicenseHandler{Validator: validator},
		Binding:  &api.BindingHandler{Binder: binder, Sessions: sessionMgr, Tokens: tokenMgr},
		Playback: &api.PlaybackHandler{Authorizer: authorizer, Videos: drmClient, PlayerHost: cfg.DRM.PlayerHost},
		Events:   &api.PlaybackEventsHandler{Tokens: tokenMgr, Sessions: sessionMgr, Tracker: tracker},
		Admin: &api.AdminHandler{
			Store:        licenseRepo,
			Tokens:       tokenMgr,
			Events:       publisher,
			Username:     cfg.Auth.AdminUsername,
			PasswordHash: cfg.Auth.AdminPasswordHash,
		},
		Auth:           authMW,
		RateLimit:      rlMW,
		Observer:       collector,
		MetricsHandler: collector.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("%s listening on %s", serviceName, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
