package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/avoronova/notekeeper/internal/client/cli"
	"github.com/avoronova/notekeeper/internal/client/config"
	"github.com/avoronova/notekeeper/internal/logging"
)

// logOutput keeps structured logs out of the interactive session unless
// NOTEKEEPER_LOG points at a file.
func logOutput() io.Writer {
	path := os.Getenv("NOTEKEEPER_LOG")
	if path == "" {
		return io.Discard
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return io.Discard
	}
	return f
}

func main() {
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(logOutput())

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(context.Background())
}
