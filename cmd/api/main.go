package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach-platform/internal/auth"
	"outreach-platform/internal/calls"
	"outreach-platform/internal/campaign"
	"outreach-platform/internal/config"
	"outreach-platform/internal/dialer"
	"outreach-platform/internal/events"
	"outreach-platform/internal/lead"
	"outreach-platform/internal/lease"
	"outreach-platform/internal/telephony"
	"outreach-platform/pkg/logger"
	"outreach-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, "api")
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Event publishing is optional; a nil publisher drops everything.
	var publisher *events.Publisher
	if cfg.AMQP.URL != "" {
		publisher, err = events.Connect(cfg.AMQP.URL, log)
		if err != nil {
			log.Error("amqp init failed", "err", err)
			os.Exit(1)
		}
		defer publisher.Close()
	}

	provider, err := telephony.NewTwilioProvider(telephony.TwilioConfig{
		AccountSID:      cfg.Twilio.AccountSID,
		AuthToken:       cfg.Twilio.AuthToken,
		CallbackBaseURL: cfg.Twilio.CallbackBaseURL,
	})
	if err != nil {
		log.Error("telephony init failed", "err", err)
		os.Exit(1)
	}

	campaignRepo := campaign.NewPostgresRepo(db)
	leadRepo := lead.NewPostgresRepo(db)
	attemptRepo := calls.NewPostgresRepo(db)

	d := dialer.New(
		campaignRepo, leadRepo, attemptRepo,
		provider, lease.NewRedisLease(rdb), publisher,
		dialer.Config{
			LeaseTTL:           cfg.Dialer.LeaseTTL,
			DefaultMaxAttempts: cfg.Dialer.DefaultMaxAttempts,
			DefaultTimezone:    cfg.Dialer.DefaultTimezone,
		},
		log,
	)
	processor := dialer.NewStatusProcessor(attemptRepo, leadRepo, d, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		authMW:       auth.RequireAccessToken(authManager),
		processor:    processor,
		campaignRepo: campaignRepo,
		leadRepo:     leadRepo,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
