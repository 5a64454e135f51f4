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

	"outreach-platform/internal/calls"
	"outreach-platform/internal/campaign"
	"outreach-platform/internal/config"
	"outreach-platform/internal/dialer"
	"outreach-platform/internal/events"
	"outreach-platform/internal/lead"
	"outreach-platform/internal/lease"
	"outreach-platform/internal/scheduler"
	"outreach-platform/internal/telephony"
	"outreach-platform/pkg/logger"
	"outreach-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// The scheduler process may run replicated: the campaign lease serializes
// dialing across processes, so additional replicas only add polling
// redundancy.
func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, "scheduler")
	slog.SetDefault(log)

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

	sched, err := scheduler.New(campaignRepo, leadRepo, d, publisher, scheduler.Config{
		TickInterval:  cfg.Dialer.TickInterval,
		Workers:       cfg.Dialer.Workers,
		SweepSchedule: cfg.Dialer.SweepSchedule,
	}, log)
	if err != nil {
		log.Error("scheduler init failed", "err", err)
		os.Exit(1)
	}

	go func() {
		if err := sched.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("scheduler loop failed", "err", err)
			stop()
		}
	}()

	// /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("scheduler admin listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
