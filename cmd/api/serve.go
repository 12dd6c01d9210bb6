package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freelancehub/api/internal/config"
	"github.com/freelancehub/api/internal/db"
	"github.com/freelancehub/api/internal/logger"
	"github.com/freelancehub/api/internal/realtime"
	"github.com/freelancehub/api/internal/router"
	"github.com/freelancehub/api/internal/services/session"
	"github.com/freelancehub/api/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default command)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting freelancehub api", cfg.LogFields()...)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := db.Migrate(gdb, log); err != nil {
			return err
		}
	}

	policy, err := store.ParseAwardPolicy(cfg.BidAwardPolicy)
	if err != nil {
		return err
	}
	st := store.New(gdb, policy)

	rdb := realtime.NewRedis(cfg)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return errors.Join(errors.New("redis is not reachable"), err)
	}
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))

	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	relay := &realtime.Relay{RDB: rdb, Hub: hub, Log: log}
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("notification relay stopped", zap.Error(err))
		}
	}()

	app := router.New(router.Deps{
		Config:   cfg,
		Log:      log,
		Repo:     st,
		Sessions: session.NewManager(cfg, session.NewRedisRevocations(rdb)),
		Notifier: realtime.NewNotifier(rdb, log),
		Hub:      hub,
		Checks: map[string]func(context.Context) error{
			"database": st.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("port", cfg.AppPort))
	return app.Listen(":" + cfg.AppPort)
}
