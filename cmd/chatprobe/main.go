package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FarhanAli04/multi-sub000/internal/client"
	"github.com/FarhanAli04/multi-sub000/internal/conn"
	"github.com/FarhanAli04/multi-sub000/pkg/config"
	"github.com/FarhanAli04/multi-sub000/pkg/logging"
	"github.com/FarhanAli04/multi-sub000/pkg/session"
)

// chatprobe dials the messaging backend as a single user and logs every
// event it receives until interrupted. Useful for exercising the realtime
// engine against a live server without the UI.
func main() {
	bootLogger := logging.New(logging.LevelInfo)
	cfg, err := config.Load(bootLogger, "chatprobe")
	if err != nil {
		bootLogger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identity := session.NewStaticProvider(session.Identity{
		UserID:      cfg.Server.UserID,
		DisplayName: cfg.Server.DisplayName,
		Token:       cfg.Server.Token,
	})
	if subject := session.Subject(cfg.Server.Token); subject != "" && subject != cfg.Server.UserID {
		logger.Warn("configured userID does not match token subject",
			slog.String("userID", cfg.Server.UserID), slog.String("subject", subject))
	}

	cl := client.New(client.Options{
		Logger:   logger,
		Config:   cfg,
		Identity: identity,
		OnState: func(s conn.State) {
			logger.Info("connection state changed", slog.String("state", s.String()))
		},
	})

	cl.Connect()
	<-ctx.Done()
	cl.Disconnect()
	logger.Info("probe shut down")
}
