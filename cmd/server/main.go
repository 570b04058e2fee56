package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/server"
	"github.com/avoronova/notekeeper/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
