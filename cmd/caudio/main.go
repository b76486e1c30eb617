package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/algesten/caudio/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		logging.ForService("caudio").Error("command failed", "error", err)
		os.Exit(1)
	}
}
