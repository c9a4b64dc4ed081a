package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"asamanthinks/handler"
	"asamanthinks/internal/app"
	"asamanthinks/internal/config"
	"asamanthinks/internal/httpapi"
	"asamanthinks/internal/observability"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("info", nil).Error("failed to load config", "err", err)
		os.Exit(1)
	}
	log := observability.NewLogger(cfg.LogLevel, os.Stdout)

	// ---- Clients, pipelines and session ----
	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Error("failed to build app", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	srv, err := httpapi.NewServer(httpapi.Deps{
		Session:  a.Session,
		Recorder: a.Recorder,
		Chunks:   a.Device,
		Log:      log,
	})
	if err != nil {
		log.Error("failed to create http api", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(srv)
	if err != nil {
		log.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
