package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"

	"gearrental/internal/httpapi"
	"gearrental/internal/notify"
	"gearrental/pkg/config"
	"gearrental/pkg/db"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid config")
	}
	if cfg.IsProd() && cfg.Auth.TokenSecret == "" {
		logger.Fatal("AUTH_TOKEN_SECRET is required in prod")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("db open")
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
			logger.WithError(err).Fatal("migrate")
		}
	}

	// In-process bus for status notifications. The sender only logs until an SMS gateway is wired.
	wmLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	notifications, err := notify.NewRouter(pubSub, notify.LogSender{Logger: logger}, wmLogger)
	if err != nil {
		logger.WithError(err).Fatal("notification router")
	}
	go func() {
		if err := notifications.Run(ctx); err != nil {
			logger.WithError(err).Error("notification router stopped")
		}
	}()
	<-notifications.Running()

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:      cfg,
		DB:       conn,
		Logger:   logger,
		Notifier: notify.NewPublisher(pubSub),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http serve")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = notifications.Close()
	_ = pubSub.Close()
}
